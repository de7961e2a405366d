package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tledoux/spar-mets-viewer/decorate"
	"github.com/tledoux/spar-mets-viewer/errors"
	"github.com/tledoux/spar-mets-viewer/health"
	"github.com/tledoux/spar-mets-viewer/labels"
	"github.com/tledoux/spar-mets-viewer/metric"
	"github.com/tledoux/spar-mets-viewer/pkg/cache"
)

type testEnv struct {
	server   *httptest.Server
	registry *metric.MetricsRegistry
	monitor  *health.Monitor
}

func newTestEnv(t *testing.T, querier labels.Querier) *testEnv {
	t.Helper()

	registry := metric.NewMetricsRegistry()
	svc, err := labels.NewService(querier, labels.ServiceConfig{
		Cache:    cache.DefaultConfig(),
		Source:   "test",
		Registry: registry,
	})
	require.NoError(t, err)

	decorator := decorate.New(decorate.ServiceSource{Service: svc}, decorate.Config{Registry: registry})
	require.NoError(t, decorator.Start(context.Background()))
	t.Cleanup(func() { _ = decorator.Stop(time.Second) })

	monitor := health.NewMonitor("sparviewer")

	srv, err := NewServer(Config{
		Timeout:        2 * time.Second,
		MaxRequestSize: 4096,
		MetricsPath:    "/metrics",
		Languages:      []string{"en", "fr"},
	}, Dependencies{
		Labels:    svc,
		Decorator: decorator,
		Monitor:   monitor,
		Registry:  registry,
	})
	require.NoError(t, err)

	server := httptest.NewServer(srv.Handler())
	t.Cleanup(server.Close)
	return &testEnv{server: server, registry: registry, monitor: monitor}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, headers map[string]string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(Config{MaxRequestSize: 1}, Dependencies{})
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))

	svc, err := labels.NewService(labels.FixtureQuerier{}, labels.ServiceConfig{})
	require.NoError(t, err)
	_, err = NewServer(Config{}, Dependencies{Labels: svc})
	assert.True(t, errors.IsInvalid(err))
}

func TestLabels(t *testing.T) {
	env := newTestEnv(t, labels.FixtureQuerier{})

	resp, body := env.do(t, http.MethodGet, "/labels/ark:/12148/br2d2wf", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	_, err := uuid.Parse(resp.Header.Get(RequestIDHeader))
	assert.NoError(t, err)

	var results labels.Results
	require.NoError(t, json.Unmarshal([]byte(body), &results))
	label, ok := results.FirstLabel()
	require.True(t, ok)
	assert.Equal(t, "Format TIFF NB G4", label)

	resp, body = env.do(t, http.MethodGet, "/labels/unknown:thing", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"bindings":[]`)
}

func TestLabels_IdentifierWithDoubleSlash(t *testing.T) {
	var got string
	querier := labels.QuerierFunc(func(_ context.Context, identifier, _ string) (*labels.Results, error) {
		got = identifier
		return labels.EmptyResults(), nil
	})
	env := newTestEnv(t, querier)

	resp, _ := env.do(t, http.MethodGet, "/labels/http://id.loc.gov/vocabulary/iso639-2/fre", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://id.loc.gov/vocabulary/iso639-2/fre", got)
}

func TestLabels_RequestIDIsPropagated(t *testing.T) {
	env := newTestEnv(t, labels.FixtureQuerier{})

	resp, _ := env.do(t, http.MethodGet, "/labels/x", nil, map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))

	resp, _ = env.do(t, http.MethodGet, "/nowhere", nil, map[string]string{RequestIDHeader: "def-456"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "def-456", resp.Header.Get(RequestIDHeader))
}

func TestLabels_Language(t *testing.T) {
	var mu sync.Mutex
	var langs []string
	querier := labels.QuerierFunc(func(_ context.Context, _, lang string) (*labels.Results, error) {
		mu.Lock()
		defer mu.Unlock()
		langs = append(langs, lang)
		return labels.EmptyResults(), nil
	})
	env := newTestEnv(t, querier)

	tests := []struct {
		path    string
		headers map[string]string
		want    string
	}{
		{path: "/labels/a1", want: "en"},
		{path: "/labels/a2?lang=fr", want: "fr"},
		{path: "/labels/a3", headers: map[string]string{"Accept-Language": "fr-FR,fr;q=0.9,en;q=0.8"}, want: "fr"},
		{path: "/labels/a4?lang=en", headers: map[string]string{"Accept-Language": "fr"}, want: "en"},
		{path: "/labels/a5", headers: map[string]string{"Accept-Language": "de"}, want: "en"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, _ := env.do(t, http.MethodGet, tt.path, nil, tt.headers)
			assert.Equal(t, tt.want, resp.Header.Get("Content-Language"))
		})
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"en", "fr", "fr", "en", "en"}, langs)
}

func TestLabels_BackendError(t *testing.T) {
	querier := labels.QuerierFunc(func(context.Context, string, string) (*labels.Results, error) {
		return nil, errors.WrapTransient(errors.ErrBackendUnavailable, "test", "Label", "query http://10.0.0.1/sparql")
	})
	env := newTestEnv(t, querier)

	resp, body := env.do(t, http.MethodGet, "/labels/ark:/12148/br2d2wf", nil, nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Equal(t, "service temporarily unavailable", payload["error"])
	assert.Equal(t, float64(http.StatusBadGateway), payload["status"])
	assert.NotContains(t, body, "10.0.0.1")
}

func TestDecorate(t *testing.T) {
	env := newTestEnv(t, labels.FixtureQuerier{})

	page := `<html><body>
<span class="rdfLabel" lookup="ark:/12148/br2d2wf">G4</span>
<span class="rdfTooltip">sparprovenance:digitization</span>
</body></html>`

	resp, body := env.do(t, http.MethodPost, "/decorate", strings.NewReader(page),
		map[string]string{"Content-Type": "text/html", "Accept-Language": "fr"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "2", resp.Header.Get(LabelledHeader))
	assert.Contains(t, body, "Format TIFF NB G4 (G4)")
	assert.Contains(t, body, `title="Numérisation"`)
}

func TestDecorate_TooLarge(t *testing.T) {
	env := newTestEnv(t, labels.FixtureQuerier{})

	resp, body := env.do(t, http.MethodPost, "/decorate", strings.NewReader(strings.Repeat("a", 4097)), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Contains(t, body, "request body too large")
}

func TestDecorate_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, labels.FixtureQuerier{})

	resp, body := env.do(t, http.MethodGet, "/decorate", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Contains(t, body, "method GET not allowed")
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, labels.FixtureQuerier{})
	env.monitor.Register("labels", func(context.Context) health.Status { return health.NewHealthy("", "ok") })

	resp, body := env.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status health.Status
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.True(t, status.IsHealthy())
	require.Len(t, status.SubStatuses, 1)
	assert.Equal(t, "labels", status.SubStatuses[0].Component)

	env.monitor.Register("decorator", func(context.Context) health.Status { return health.NewUnhealthy("", "stopped") })
	resp, _ = env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, labels.FixtureQuerier{})

	env.do(t, http.MethodGet, "/labels/ark:/12148/br2d2wf", nil, nil)
	resp, body := env.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Contains(t, body, `sparviewer_http_requests_total{code="200",route="/labels/{identifier:.+}"} 1`)
	assert.Contains(t, body, `sparviewer_labels_lookups_total{outcome="found",source="test"} 1`)
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusInternalServerError},
		{"invalid", errors.WrapInvalid(errors.ErrParsingFailed, "c", "m", "parse"), http.StatusBadRequest},
		{"transient", errors.WrapTransient(errors.ErrBackendUnavailable, "c", "m", "query"), http.StatusServiceUnavailable},
		{"timeout", errors.WrapTransient(context.DeadlineExceeded, "c", "m", "query"), http.StatusGatewayTimeout},
		{"endpoint timeout", errors.WrapTransient(errors.ErrConnectionTimeout, "c", "m", "query"), http.StatusGatewayTimeout},
		{"too large", errors.WrapInvalid(errors.ErrRequestTooLarge, "c", "m", "read"), http.StatusRequestEntityTooLarge},
		{"fatal", errors.WrapFatal(errors.ErrMissingConfig, "c", "m", "init"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapErrorToHTTPStatus(tt.err))
		})
	}
}
