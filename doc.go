// Package sparviewer serves the presentation helpers of the SPAR METS viewer.
//
// The viewer shows METS packages of the SPAR preservation repository. Pages
// carry raw identifiers (ARKs, UUIDs, namespaced IRIs) that are made readable
// by the packages of this module:
//
//   - format: number, size and date formatting for templates
//   - vocabulary: namespace translation and identifier helpers
//   - labels: label lookup against the SPAR SPARQL endpoint, or fixtures on
//     the TEST platform, behind an LRU cache
//   - decorate: rewrites rdfLabel and rdfTooltip elements of an HTML page
//     with looked up labels, and fills the error alert
//   - gateway/http: the GET /labels/{identifier} and POST /decorate routes,
//     health and Prometheus metrics
//
// Supporting packages:
//
//   - config: JSON or YAML configuration with SPARVIEWER_* overrides
//   - errors: transient, invalid and fatal error classes
//   - metric: Prometheus registry
//   - health: component health aggregation
//   - pkg/cache, pkg/worker, pkg/retry: generic cache, worker pool and
//     backoff used by the label lookups
//
// The cmd/sparviewer binary wires them together.
package sparviewer
