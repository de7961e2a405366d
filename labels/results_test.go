package labels

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResults_FirstLabel(t *testing.T) {
	tests := []struct {
		name    string
		results *Results
		want    string
		wantOK  bool
	}{
		{name: "nil", results: nil},
		{name: "empty bindings", results: EmptyResults()},
		{name: "literal", results: LiteralResults("Numérisation", "fr"), want: "Numérisation", wantOK: true},
		{name: "empty value", results: LiteralResults("", "fr")},
		{
			name: "other variable",
			results: &Results{Results: ResultSet{Bindings: []Binding{
				{"name": Term{Type: "literal", Value: "x"}},
			}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.results.FirstLabel()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResults_Decode(t *testing.T) {
	// distinct/ordered as strings, as some endpoints send them
	payload := `{
		"head": {"link": [], "vars": ["label"]},
		"results": {"distinct": "false", "ordered": true, "bindings": [
			{"label": {"type": "literal", "xml:lang": "fr", "value": "Processus ING_1"}}
		]}
	}`

	var res Results
	require.NoError(t, json.Unmarshal([]byte(payload), &res))
	want := Results{
		Head: Head{Link: []string{}, Vars: []string{"label"}},
		Results: ResultSet{Ordered: true, Bindings: []Binding{
			{LabelVar: {Type: "literal", Lang: "fr", Value: "Processus ING_1"}},
		}},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("decoded results mismatch (-want +got):\n%s", diff)
	}

	label, ok := res.FirstLabel()
	require.True(t, ok)
	assert.Equal(t, "Processus ING_1", label)
	assert.Equal(t, "fr", res.Results.Bindings[0][LabelVar].Lang)

	var bad Results
	assert.Error(t, json.Unmarshal([]byte(`{"results": {"distinct": "maybe"}}`), &bad))
}

func TestLiteralResults(t *testing.T) {
	want := &Results{
		Head: Head{Link: []string{}, Vars: []string{LabelVar}},
		Results: ResultSet{Ordered: true, Bindings: []Binding{
			{LabelVar: {Type: "literal", Lang: "en", Value: "performer"}},
		}},
	}
	if diff := cmp.Diff(want, LiteralResults("performer", "en")); diff != "" {
		t.Errorf("LiteralResults mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(EmptyResults().Head, want.Head); diff != "" {
		t.Errorf("EmptyResults head mismatch (-want +got):\n%s", diff)
	}
}

func TestResults_EncodeLang(t *testing.T) {
	data, err := json.Marshal(LiteralResults("exécutant", "fr"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"xml:lang":"fr"`)
	assert.Contains(t, string(data), `"bindings":[{"label":`)

	data, err = json.Marshal(EmptyResults())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"bindings":[]`)
}

func TestFixtureQuerier(t *testing.T) {
	tests := []struct {
		identifier string
		want       string
		wantOK     bool
	}{
		{"sparprovenance:digitization", "Numérisation", true},
		{"sparprovenance:packageCreation", "Création de paquet", true},
		{"sparprovenance:hasPerformer", "exécutant", true},
		{"ark:/12148/br2d2wf", "Format TIFF NB G4", true},
		{"ark:/12148/br2d27h", "Processus ING_1", true},
		{"ark:/12148/br2d27h/v1.release1", "Processus ING_1", true},
		{"0f8fad5b-d9cb-469f-a165-70867728950e", "DSC - atelier RES", true},
		{"ark:/12148/bpt6k1234", "", false},
		{"sparprovenance:unknown", "", false},
		{"", "", false},
	}

	q := FixtureQuerier{}
	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			res, err := q.Label(context.Background(), tt.identifier, "en")
			require.NoError(t, err)
			got, ok := res.FirstLabel()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
