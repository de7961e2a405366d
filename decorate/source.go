package decorate

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tledoux/spar-mets-viewer/labels"
)

// LabelSource resolves an identifier to a display label. ok is false when
// there is no label or the lookup failed; the element is then left alone.
type LabelSource interface {
	Label(ctx context.Context, identifier, lang string) (label string, ok bool)
}

// LabelPath is the gjson path of the label in a /labels response.
const LabelPath = "results.bindings.0.label.value"

const maxLabelResponse = 1 << 20

// HTTPSource asks a viewer's /labels endpoint, as the page script does.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPSource creates a source querying baseURL + "/labels/{identifier}".
// client defaults to an http.Client with a 10s timeout.
func NewHTTPSource(baseURL string, client *http.Client, logger *slog.Logger) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// LabelURL returns the lookup URL for identifier. Each path segment is escaped
// on its own so ARKs keep their slashes.
func (s *HTTPSource) LabelURL(identifier, lang string) string {
	segments := strings.Split(identifier, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	u := s.baseURL + "/labels/" + strings.Join(segments, "/")
	if lang != "" {
		u += "?lang=" + url.QueryEscape(lang)
	}
	return u
}

// Label implements LabelSource.
func (s *HTTPSource) Label(ctx context.Context, identifier, lang string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.LabelURL(identifier, lang), nil)
	if err != nil {
		s.logger.Debug("label request", "identifier", identifier, "error", err)
		return "", false
	}
	req.Header.Set("Accept", labels.SPARQLResultsType)
	if lang != "" {
		req.Header.Set("Accept-Language", lang)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("label request failed", "identifier", identifier, "error", err)
		return "", false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLabelResponse))
	if err != nil || resp.StatusCode != http.StatusOK {
		s.logger.Debug("label response unusable", "identifier", identifier, "status", resp.StatusCode, "error", err)
		return "", false
	}

	value := gjson.GetBytes(body, LabelPath)
	if !value.Exists() || value.String() == "" {
		return "", false
	}
	return value.String(), true
}

// ServiceSource adapts an in-process label service.
type ServiceSource struct {
	Service *labels.Service
}

// Label implements LabelSource.
func (s ServiceSource) Label(ctx context.Context, identifier, lang string) (string, bool) {
	return s.Service.Label(ctx, identifier, lang)
}

// SourceFunc adapts a function to LabelSource.
type SourceFunc func(ctx context.Context, identifier, lang string) (string, bool)

// Label calls f.
func (f SourceFunc) Label(ctx context.Context, identifier, lang string) (string, bool) {
	return f(ctx, identifier, lang)
}

type languageKey struct{}

// WithLanguage returns a context carrying the language used for lookups.
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, languageKey{}, lang)
}

// LanguageFrom returns the lookup language stored in ctx, or "".
func LanguageFrom(ctx context.Context) string {
	lang, _ := ctx.Value(languageKey{}).(string)
	return lang
}
