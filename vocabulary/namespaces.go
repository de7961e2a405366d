package vocabulary

import (
	"regexp"
	"strings"
)

// Rule rewrites URIs starting with Prefix into Short.
// An Exact rule only applies when the whole URI equals Prefix.
type Rule struct {
	Prefix string
	Short  string
	Exact  bool
}

// Apply returns the rewritten URI and true when the rule matches.
func (r Rule) Apply(uri string) (string, bool) {
	if r.Exact {
		if uri == r.Prefix {
			return r.Short, true
		}
		return "", false
	}
	if strings.HasPrefix(uri, r.Prefix) {
		return strings.Replace(uri, r.Prefix, r.Short, 1), true
	}
	return "", false
}

// DefaultRules is the ordered abbreviation table used by TranslateNs.
// More specific prefixes must come before shorter ones they overlap with.
var DefaultRules = []Rule{
	{Prefix: RdfType, Short: "a", Exact: true},
	{Prefix: SparStructureNamespace, Short: "sparstructure:"},
	{Prefix: SparContextNamespace, Short: "sparcontext:"},
	{Prefix: SparProvenanceNamespace, Short: "sparprovenance:"},
	{Prefix: SparRepresentationNamespace, Short: "sparrepresentation:"},
	{Prefix: SparReferenceNamespace, Short: "sparreference:"},
	{Prefix: SparFixityNamespace, Short: "sparfixity:"},
	{Prefix: SparTextMDNamespace, Short: "textmd:"},
	{Prefix: OreNamespace, Short: "oai-ore:"},
	{Prefix: DcElementsNamespace, Short: "dc:"},
	{Prefix: RdfsNamespace, Short: "rdfs:"},
	{Prefix: OwlNamespace, Short: "owl:"},
	{Prefix: FoafNamespace, Short: "foaf:"},
	{Prefix: SparEventNamespace, Short: "event:"},
}

var arkNumberedSegment = regexp.MustCompile(`/([a-z]+)\d+([./])`)

// Translator abbreviates URIs with an ordered rule table.
type Translator struct {
	rules []Rule
}

// NewTranslator returns a Translator over a copy of rules.
func NewTranslator(rules []Rule) *Translator {
	r := make([]Rule, len(rules))
	copy(r, rules)
	return &Translator{rules: r}
}

var defaultTranslator = NewTranslator(DefaultRules)

// Translate returns the abbreviation of original, or original itself when no
// rule matches.
func (t *Translator) Translate(original string) string {
	for _, rule := range t.rules {
		if short, ok := rule.Apply(original); ok {
			return short
		}
	}
	if strings.HasPrefix(original, ArkScheme) {
		return SimplifyArk(original)
	}
	return original
}

// TranslateNs abbreviates original with DefaultRules.
func TranslateNs(original string) string {
	return defaultTranslator.Translate(original)
}

// SimplifyArk shortens the qualifiers of an ARK for display. Each substitution
// applies to the first occurrence only:
//   - ".version" becomes ".V"
//   - ".release" becomes ".R"
//   - "/<letters><digits><. or />" becomes "/<letters>XXX<. or />"
func SimplifyArk(ark string) string {
	s := strings.Replace(ark, ".version", ".V", 1)
	s = strings.Replace(s, ".release", ".R", 1)
	return replaceFirst(arkNumberedSegment, s, "/${1}XXX${2}")
}

func replaceFirst(re *regexp.Regexp, src, template string) string {
	loc := re.FindStringSubmatchIndex(src)
	if loc == nil {
		return src
	}
	var out []byte
	out = append(out, src[:loc[0]]...)
	out = re.ExpandString(out, template, src, loc)
	out = append(out, src[loc[1]:]...)
	return string(out)
}
