package vocabulary

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	arkPattern  = regexp.MustCompile(`^(ark:/\d{5}/[0-9bcdfghjkmnpqrstvwxz]+)`)
	uuidPattern = regexp.MustCompile(`(?i)^[a-f\d]{8}-[a-f\d]{4}-[a-f\d]{4}-[a-f\d]{4}-[a-f\d]{12}$`)
)

// AbstractArk returns the ARK without qualifiers ("ark:/NAAN/name"), or ""
// when value is not an ARK.
func AbstractArk(value string) string {
	m := arkPattern.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsArk reports whether value starts with a well-formed ARK.
func IsArk(value string) bool {
	return AbstractArk(value) != ""
}

// IsUUID reports whether value has the canonical 8-4-4-4-12 hex layout.
func IsUUID(value string) bool {
	return uuidPattern.MatchString(value)
}

// SparqlConsultationURL is the public SPARQL endpoint used to describe
// reference data ARKs.
const SparqlConsultationURL = "http://consultation.spar.bnf.fr/sparql"

// Checked in order.
var arkCatalogues = []struct {
	prefix string
	format string
}{
	{"ark:/12148/cb", "http://catalogue.bnf.fr/%s"},
	{"ark:/12148/cc", "http://archivesetmanuscrits.bnf.fr/%s"},
	{"ark:/12148/bpt6k", "http://gallicaintramuros.bnf.fr/%s"},
	{"ark:/12148/bttv", "http://gallicaintramuros.bnf.fr/%s"},
}

const referenceDataPrefix = "ark:/12148/br2d2"

// ArkLink returns the URL of a page describing ark, and false when no known
// service resolves it.
func ArkLink(ark string) (string, bool) {
	pure := AbstractArk(ark)
	if pure == "" {
		return "", false
	}

	for _, c := range arkCatalogues {
		if strings.HasPrefix(ark, c.prefix) {
			return fmt.Sprintf(c.format, pure), true
		}
	}

	if strings.HasPrefix(ark, referenceDataPrefix) {
		query := "SELECT ?s ?p ?o WHERE { GRAPH ?g { " +
			"?s a ?kind. ?s ?p ?o. " +
			"VALUES ?s { <" + pure + "> } " +
			"VALUES ?kind { " +
			"sparcontext:channel " +
			"sparrepresentation:knownFormat sparrepresentation:managedFormat " +
			"sparagent:softwareAgent sparagent:sparProcess sparagent:personAgent " +
			"} FILTER (!ISBLANK(?o)) } } ORDER BY ?s"
		return SparqlConsultationURL + "?" + url.Values{"query": {query}}.Encode(), true
	}

	return "", false
}
