package labels

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tledoux/spar-mets-viewer/errors"
	"github.com/tledoux/spar-mets-viewer/vocabulary"
)

// SPARQLResultsType is the media type requested from the endpoint.
const SPARQLResultsType = "application/sparql-results+json"

const (
	defaultSPARQLTimeout = 10 * time.Second
	maxResultsBytes      = 1 << 20
)

var (
	// SPAR prefixed names such as sparprovenance:digitization
	sparName = regexp.MustCompile(`^spar[a-z]*:[A-Za-z0-9_.\-]+$`)
	// characters that cannot appear inside an IRI reference
	iriForbidden = regexp.MustCompile(`[\s<>"{}|\\^` + "`" + `]`)
	langTag      = regexp.MustCompile(`^[A-Za-z]{1,8}(-[A-Za-z0-9]{1,8})*$`)
)

var sparqlPrefixes = buildPrefixes()

// buildPrefixes declares the prefixes used in queries, including every SPAR
// prefix of the abbreviation table so abbreviated names can be looked up.
func buildPrefixes() string {
	var b strings.Builder
	b.WriteString("PREFIX rdfs: <" + vocabulary.RdfsNamespace + ">\n")
	b.WriteString("PREFIX owl: <" + vocabulary.OwlNamespace + ">\n")
	b.WriteString("PREFIX foaf: <" + vocabulary.FoafNamespace + ">\n")
	b.WriteString("PREFIX dc: <" + vocabulary.DcElementsNamespace + ">\n")
	b.WriteString("PREFIX sparagent: <" + vocabulary.SparAgentNamespace + ">\n")
	for _, rule := range vocabulary.DefaultRules {
		if !rule.Exact && strings.HasPrefix(rule.Short, "spar") {
			b.WriteString("PREFIX " + rule.Short + " <" + rule.Prefix + ">\n")
		}
	}
	return b.String()
}

// SPARQLConfig configures a SPARQLQuerier.
type SPARQLConfig struct {
	// Endpoint is the SPARQL endpoint URL, e.g. http://consultation.spar.bnf.fr/sparql
	Endpoint string

	// Timeout for HTTP requests (default: 10s). Ignored when HTTPClient is set.
	Timeout time.Duration

	HTTPClient *http.Client

	// RateLimit caps queries per second sent to the endpoint; 0 disables
	// the limit. Burst defaults to 1.
	RateLimit float64
	Burst     int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// SPARQLQuerier looks labels up on a SPARQL endpoint.
type SPARQLQuerier struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewSPARQLQuerier creates a querier for cfg.Endpoint.
func NewSPARQLQuerier(cfg SPARQLConfig) (*SPARQLQuerier, error) {
	if cfg.Endpoint == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "SPARQLQuerier", "New", "endpoint is empty")
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, errors.WrapInvalid(err, "SPARQLQuerier", "New", "parse endpoint")
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultSPARQLTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	if cfg.RateLimit < 0 || cfg.Burst < 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "SPARQLQuerier", "New",
			fmt.Sprintf("rate limit %v and burst %d cannot be negative", cfg.RateLimit, cfg.Burst))
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst == 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SPARQLQuerier{endpoint: cfg.Endpoint, client: client, limiter: limiter, logger: logger}, nil
}

// BuildQuery returns the label query for identifier, or false when the
// identifier has no known form and nothing should be asked.
//
// The label is searched through rdfs:label, foaf:name and dc:title, keeping
// literals in lang or without a language.
func BuildQuery(identifier, lang string) (string, bool) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || !langTag.MatchString(lang) {
		return "", false
	}

	var sameAs, values string
	switch {
	case vocabulary.AbstractArk(identifier) != "":
		values = "VALUES ?id { <" + vocabulary.AbstractArk(identifier) + "> }"
	case strings.HasPrefix(identifier, "info:"):
		if iriForbidden.MatchString(identifier) {
			return "", false
		}
		sameAs = "?id owl:sameAs ?uri . "
		values = "VALUES ?uri { <" + identifier + "> }"
	case sparName.MatchString(identifier):
		values = "VALUES ?id { " + identifier + " }"
	case vocabulary.IsUUID(identifier):
		values = "VALUES ?id { sparagent:" + identifier + " }"
	default:
		return "", false
	}

	var b strings.Builder
	b.WriteString(sparqlPrefixes)
	b.WriteString("SELECT ?label WHERE { ")
	b.WriteString(sameAs)
	b.WriteString("{ ?id rdfs:label ?label } UNION { ?id foaf:name ?label } UNION { ?id dc:title ?label } ")
	b.WriteString(values)
	fmt.Fprintf(&b, " FILTER (lang(?label) = '%s' || lang(?label) = '') } LIMIT 1", lang)
	return b.String(), true
}

// Label implements Querier. Identifiers BuildQuery cannot handle get empty
// results without a request.
func (q *SPARQLQuerier) Label(ctx context.Context, identifier, lang string) (*Results, error) {
	query, ok := BuildQuery(identifier, lang)
	if !ok {
		q.logger.Debug("no label query for identifier", "identifier", identifier)
		return EmptyResults(), nil
	}

	if q.limiter != nil {
		if err := q.limiter.Wait(ctx); err != nil {
			return nil, errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrResourceExhausted, err),
				"SPARQLQuerier", "Label", "wait for rate limit")
		}
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("format", SPARQLResultsType)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.WrapFatal(err, "SPARQLQuerier", "Label", "build request")
	}
	req.Header.Set("Accept", SPARQLResultsType)

	resp, err := q.client.Do(req)
	if err != nil {
		cause := errors.ErrBackendUnavailable
		var netErr net.Error
		if stderrors.As(err, &netErr) && netErr.Timeout() {
			cause = errors.ErrConnectionTimeout
		}
		return nil, errors.WrapTransient(fmt.Errorf("%w: %w", cause, err), "SPARQLQuerier", "Label", "query endpoint")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResultsBytes))
		statusErr := fmt.Errorf("%w: %d", errors.ErrUnexpectedStatus, resp.StatusCode)
		if resp.StatusCode >= 500 {
			return nil, errors.WrapTransient(statusErr, "SPARQLQuerier", "Label", "query endpoint")
		}
		return nil, errors.WrapInvalid(statusErr, "SPARQLQuerier", "Label", "query endpoint")
	}

	var results Results
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResultsBytes)).Decode(&results); err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrParsingFailed, err),
			"SPARQLQuerier", "Label", "decode results")
	}

	for _, binding := range results.Results.Bindings {
		if term, ok := binding[LabelVar]; ok {
			term.Value = strings.TrimSpace(term.Value)
			binding[LabelVar] = term
		}
	}
	return &results, nil
}
