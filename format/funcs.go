package format

import (
	"html/template"

	"github.com/tledoux/spar-mets-viewer/vocabulary"
)

// FuncMap returns the helpers for html/template, named after the page script
// functions they replace.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"numberFormatter":  Number,
		"sizeFormatter":    Size,
		"currentYearMonth": CurrentYearMonth,
		"extractDate":      ExtractDate,
		"translateNs":      vocabulary.TranslateNs,
		"arkLink":          arkLink,
		"defaultSizeUnits": func() []string { return DefaultSizeUnits },
		"fullSizeUnits":    func() []string { return FullSizeUnits },
	}
}

// arkLink renders an ARK as a link to the catalogue able to display it, or
// as plain text when no catalogue is known.
func arkLink(ark string) template.HTML {
	href, ok := vocabulary.ArkLink(ark)
	if !ok {
		return template.HTML(template.HTMLEscapeString(ark))
	}
	return template.HTML(`<a href="` + template.HTMLEscapeString(href) + `" target="_blank">` +
		template.HTMLEscapeString(ark) + `</a>`)
}
