package http

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

// LangParam is the query parameter selecting the lookup language.
const LangParam = "lang"

// Negotiator picks the lookup language of a request among the supported ones.
// The first supported language is the default.
type Negotiator struct {
	supported []language.Tag
	matcher   language.Matcher
}

// NewNegotiator builds a negotiator for tags such as "en" and "fr".
// Unparseable tags are ignored; with none left, English is supported.
func NewNegotiator(languages []string) *Negotiator {
	var tags []language.Tag
	for _, l := range languages {
		tag, err := language.Parse(strings.TrimSpace(l))
		if err != nil {
			continue
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		tags = []language.Tag{language.English}
	}
	return &Negotiator{supported: tags, matcher: language.NewMatcher(tags)}
}

// Default returns the default language.
func (n *Negotiator) Default() string {
	return n.supported[0].String()
}

// Resolve returns the language from the lang query parameter, then from
// Accept-Language, then the default.
func (n *Negotiator) Resolve(r *http.Request) string {
	if value := strings.TrimSpace(r.URL.Query().Get(LangParam)); value != "" {
		if tag, err := language.Parse(value); err == nil {
			return n.match(tag)
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			return n.match(tags...)
		}
	}
	return n.Default()
}

func (n *Negotiator) match(tags ...language.Tag) string {
	_, index, confidence := n.matcher.Match(tags...)
	if confidence == language.No {
		return n.Default()
	}
	return n.supported[index].String()
}
