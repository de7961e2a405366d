package vocabulary

// W3C standard namespaces
const (
	// RdfType is the rdf:type predicate, displayed as the Turtle keyword "a".
	RdfType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

	RdfsNamespace = "http://www.w3.org/2000/01/rdf-schema#"
	OwlNamespace  = "http://www.w3.org/2002/07/owl#"

	// RdfsLabel provides a human-readable name for a resource.
	RdfsLabel = RdfsNamespace + "label"

	// OwlSameAs links an internal resource to its public URI.
	OwlSameAs = OwlNamespace + "sameAs"
)

// Community vocabularies
const (
	DcElementsNamespace = "http://purl.org/dc/elements/1.1/"
	FoafNamespace       = "http://xmlns.com/foaf/0.1/"
	OreNamespace        = "http://www.openarchives.org/ore/terms/"

	// DcTitle provides the name given to the resource.
	DcTitle = DcElementsNamespace + "title"

	// FoafName provides the name of an agent.
	FoafName = FoafNamespace + "name"
)

// SPAR (Système de Préservation et d'Archivage Réparti) namespaces
const (
	SparNamespace               = "info:bnf/spar/"
	SparStructureNamespace      = SparNamespace + "structure#"
	SparContextNamespace        = SparNamespace + "context#"
	SparProvenanceNamespace     = SparNamespace + "provenance#"
	SparRepresentationNamespace = SparNamespace + "representation#"
	SparReferenceNamespace      = SparNamespace + "reference#"
	SparFixityNamespace         = SparNamespace + "fixity#"
	SparTextMDNamespace         = SparNamespace + "textmd#"
	SparAgentNamespace          = SparNamespace + "agent#"

	// SparEventNamespace holds individual provenance events (note the slash).
	SparEventNamespace = SparNamespace + "provenance/"
)

// ArkScheme starts every ARK identifier.
const ArkScheme = "ark:/"
