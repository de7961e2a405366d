// Package vocabulary holds the RDF namespaces the viewer knows about and the
// helpers that turn raw identifiers into something readable.
//
// # Namespace abbreviation
//
// TranslateNs rewrites a full URI into its short prefixed form using an
// ordered rule table. The first matching rule wins:
//
//	TranslateNs("http://www.w3.org/1999/02/22-rdf-syntax-ns#type") // "a"
//	TranslateNs("info:bnf/spar/structure#Foo")                     // "sparstructure:Foo"
//	TranslateNs("http://purl.org/dc/elements/1.1/title")           // "dc:title"
//
// ARK identifiers are not abbreviated but simplified: version and release
// qualifiers are shortened and the first numbered path segment is masked, so
// that identifiers differing only by their sequence number read the same:
//
//	TranslateNs("ark:/12148/cb12345678.version1/f3") // "ark:/12148/cbXXX.V1/f3"
//
// URIs matching no rule are returned unchanged.
//
// # Identifiers
//
// AbstractArk strips qualifiers from an ARK, IsUUID detects agent identifiers
// and ArkLink resolves an ARK to the public catalogue that can display it.
package vocabulary
