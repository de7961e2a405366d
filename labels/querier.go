package labels

import (
	"context"
	"strings"

	"github.com/tledoux/spar-mets-viewer/vocabulary"
)

// Querier fetches the label results for an identifier in a language.
type Querier interface {
	Label(ctx context.Context, identifier, lang string) (*Results, error)
}

// QuerierFunc adapts a function to the Querier interface.
type QuerierFunc func(ctx context.Context, identifier, lang string) (*Results, error)

// Label calls f.
func (f QuerierFunc) Label(ctx context.Context, identifier, lang string) (*Results, error) {
	return f(ctx, identifier, lang)
}

// FixtureQuerier answers from a fixed set of labels, for the TEST platform
// and for demos without a SPARQL endpoint.
type FixtureQuerier struct{}

const fixtureLang = "fr"

var fixtureLabels = map[string]string{
	"sparprovenance:digitization":    "Numérisation",
	"sparprovenance:packageCreation": "Création de paquet",
	"sparprovenance:hasPerformer":    "exécutant",
	"ark:/12148/br2d2wf":             "Format TIFF NB G4",
}

const (
	fixtureProcessArk   = "ark:/12148/br2d27h"
	fixtureProcessLabel = "Processus ING_1"
	fixtureAgentLabel   = "DSC - atelier RES"
)

// Label implements Querier. Unknown identifiers get empty results.
func (FixtureQuerier) Label(_ context.Context, identifier, _ string) (*Results, error) {
	if value, ok := fixtureLabels[identifier]; ok {
		return LiteralResults(value, fixtureLang), nil
	}
	if vocabulary.AbstractArk(identifier) == fixtureProcessArk {
		return LiteralResults(fixtureProcessLabel, fixtureLang), nil
	}
	if vocabulary.IsUUID(strings.TrimSpace(identifier)) {
		return LiteralResults(fixtureAgentLabel, fixtureLang), nil
	}
	return EmptyResults(), nil
}
