// Package labels resolves identifiers displayed by the viewer (ARKs, SPAR
// prefixed names, info: URIs, agent UUIDs) to human readable labels.
//
// Lookups return SPARQL 1.1 JSON results reduced to a single "label" variable.
// Only the first binding is meaningful; an empty bindings list means "no label"
// and is not an error.
package labels

import (
	"encoding/json"
	"strconv"
)

// LabelVar is the SPARQL variable carrying the label.
const LabelVar = "label"

// Term is one RDF term of a binding.
type Term struct {
	Type  string `json:"type"`
	Lang  string `json:"xml:lang,omitempty"`
	Value string `json:"value"`
}

// Binding maps variable names to terms.
type Binding map[string]Term

// Head lists the variables of the result set.
type Head struct {
	Link []string `json:"link"`
	Vars []string `json:"vars"`
}

// ResultSet holds the bindings of a SELECT query.
type ResultSet struct {
	Distinct FlexBool  `json:"distinct"`
	Ordered  FlexBool  `json:"ordered"`
	Bindings []Binding `json:"bindings"`
}

// Results is a SPARQL JSON results document.
type Results struct {
	Head    Head      `json:"head"`
	Results ResultSet `json:"results"`
}

// FirstLabel returns the label of the first binding, and false when there is
// no binding or the label is missing or empty.
func (r *Results) FirstLabel() (string, bool) {
	if r == nil || len(r.Results.Bindings) == 0 {
		return "", false
	}
	term, ok := r.Results.Bindings[0][LabelVar]
	if !ok || term.Value == "" {
		return "", false
	}
	return term.Value, true
}

// EmptyResults returns a results document without bindings.
func EmptyResults() *Results {
	return &Results{
		Head:    Head{Link: []string{}, Vars: []string{LabelVar}},
		Results: ResultSet{Ordered: true, Bindings: []Binding{}},
	}
}

// LiteralResults returns a results document with a single literal label.
func LiteralResults(value, lang string) *Results {
	res := EmptyResults()
	res.Results.Bindings = []Binding{
		{LabelVar: Term{Type: "literal", Lang: lang, Value: value}},
	}
	return res
}

// FlexBool decodes booleans sent either as JSON booleans or as strings
// ("true"/"false"), as some endpoints do.
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = FlexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*b = FlexBool(parsed)
	return nil
}
