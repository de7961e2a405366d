package health

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Predicates(t *testing.T) {
	tests := []struct {
		status    Status
		healthy   bool
		degraded  bool
		unhealthy bool
	}{
		{status: NewHealthy("a", ""), healthy: true},
		{status: NewDegraded("a", ""), degraded: true},
		{status: NewUnhealthy("a", ""), unhealthy: true},
		{status: Status{}},
	}

	for _, tt := range tests {
		t.Run(tt.status.Status, func(t *testing.T) {
			assert.Equal(t, tt.healthy, tt.status.IsHealthy())
			assert.Equal(t, tt.healthy, tt.status.Healthy)
			assert.Equal(t, tt.degraded, tt.status.IsDegraded())
			assert.Equal(t, tt.unhealthy, tt.status.IsUnhealthy())
		})
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		subs []Status
		want string
	}{
		{name: "no checks", want: StatusHealthy},
		{name: "all healthy", subs: []Status{NewHealthy("a", ""), NewHealthy("b", "")}, want: StatusHealthy},
		{name: "one degraded", subs: []Status{NewHealthy("a", ""), NewDegraded("b", "")}, want: StatusDegraded},
		{name: "unhealthy wins", subs: []Status{NewDegraded("a", ""), NewUnhealthy("b", "")}, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("viewer", tt.subs)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, "viewer", got.Component)
			assert.Len(t, got.SubStatuses, len(tt.subs))
		})
	}
}

func TestWithDetail_DoesNotShareMap(t *testing.T) {
	base := NewHealthy("labels", "ok").WithDetail("hits", 1)
	derived := base.WithDetail("misses", 2)

	assert.Len(t, base.Details, 1)
	assert.Len(t, derived.Details, 2)
}

func TestFromError(t *testing.T) {
	assert.True(t, FromError("labels", nil).IsHealthy())

	err := fmt.Errorf("SPARQLQuerier.Label: query endpoint failed: Get \"http://10.0.0.4:8890/sparql?query=x\": dial tcp 10.0.0.4:8890: connection refused")
	status := FromError("labels", err)
	assert.True(t, status.IsUnhealthy())
	assert.NotContains(t, status.Message, "10.0.0.4")
	assert.NotContains(t, status.Message, "8890")
	assert.Contains(t, status.Message, "[URL]")
	assert.Contains(t, status.Message, "connection refused")
}

func TestSanitizeErrorMessage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"open /etc/sparviewer/viewer.yaml: permission denied", "open [PATH]: permission denied"},
		{"auth failed password=hunter2", "auth failed [REDACTED]"},
		{"no label", "no label"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeErrorMessage(tt.in))
		})
	}
}

func TestMonitor_Check(t *testing.T) {
	m := NewMonitor("sparviewer")
	m.Register("labels", func(context.Context) Status { return NewHealthy("", "ok") })
	m.Register("decorator", func(context.Context) Status { return NewDegraded("", "lookups dropped") })

	assert.Equal(t, []string{"decorator", "labels"}, m.Names())

	status := m.Check(context.Background())
	assert.True(t, status.IsDegraded())
	assert.Equal(t, "sparviewer", status.Component)
	require.Len(t, status.SubStatuses, 2)
	assert.Equal(t, "decorator", status.SubStatuses[0].Component)
	assert.Equal(t, "labels", status.SubStatuses[1].Component)

	m.Register("decorator", func(context.Context) Status { return NewHealthy("", "ok") })
	assert.True(t, m.Check(context.Background()).IsHealthy())
	assert.Len(t, m.Names(), 2)
}

func TestStatus_JSON(t *testing.T) {
	data, err := json.Marshal(NewHealthy("viewer", "ok").WithDetail("platform", "TEST"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "healthy", decoded["status"])
	assert.Equal(t, true, decoded["healthy"])
	assert.Equal(t, map[string]any{"platform": "TEST"}, decoded["details"])
	assert.NotContains(t, decoded, "sub_statuses")
}
