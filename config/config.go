// Package config loads the viewer configuration.
//
// A configuration file (.json, .yaml or .yml) is layered over the defaults,
// then SPARVIEWER_* environment variables override individual fields:
//
//	SPARVIEWER_PLATFORM=PFO
//	SPARVIEWER_SPARQL_ENDPOINT=http://consultation.spar.bnf.fr/sparql
//	SPARVIEWER_HTTP_ADDR=:8080
//	SPARVIEWER_LABELS_CACHE_MAX_SIZE=512
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tledoux/spar-mets-viewer/errors"
	"github.com/tledoux/spar-mets-viewer/pkg/cache"
	"github.com/tledoux/spar-mets-viewer/pkg/retry"
)

// Platform names with a special meaning.
const (
	// PlatformTest serves fixture labels and the sample METS.
	PlatformTest = "TEST"
	// PlatformNone forbids ARK downloads.
	PlatformNone = "NONE"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SPARVIEWER_"

// Defaults
const (
	DefaultAddr           = ":5000"
	DefaultArkPrefix      = "ark:/12148/"
	DefaultMetricsPath    = "/metrics"
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultMaxRequestSize = 10 << 20
	DefaultLabelWorkers   = 8
	DefaultLabelQueueSize = 256
	DefaultSPARQLTimeout  = 10 * time.Second
	DefaultSPARQLRate     = 20.0
	DefaultSPARQLBurst    = 8
	DefaultRetryAttempts  = 1
	DefaultRetryBackoff   = 200 * time.Millisecond
)

// Config represents the complete viewer configuration
type Config struct {
	// Platform is TEST, NONE or the name of an access platform (PFO, PFV...).
	Platform string `json:"platform" yaml:"platform" env:"PLATFORM"`
	// AccessURL is the sample METS url on TEST, the access module url otherwise.
	AccessURL      string   `json:"access_url" yaml:"access_url" env:"ACCESS_URL"`
	SPARQLEndpoint string   `json:"sparql_endpoint" yaml:"sparql_endpoint" env:"SPARQL_ENDPOINT"`
	ArkPrefix      string   `json:"ark_prefix" yaml:"ark_prefix" env:"ARK_PREFIX"`
	Languages      []string `json:"languages" yaml:"languages" env:"LANGUAGES" envSeparator:","`

	HTTP        HTTPConfig   `json:"http" yaml:"http" envPrefix:"HTTP_"`
	Labels      LabelsConfig `json:"labels" yaml:"labels" envPrefix:"LABELS_"`
	MetricsPath string       `json:"metrics_path" yaml:"metrics_path" env:"METRICS_PATH"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr           string   `json:"addr" yaml:"addr" env:"ADDR"`
	Timeout        Duration `json:"timeout" yaml:"timeout" env:"TIMEOUT"`
	MaxRequestSize int64    `json:"max_request_size" yaml:"max_request_size" env:"MAX_REQUEST_SIZE"`
}

// LabelsConfig configures label lookups.
type LabelsConfig struct {
	Cache     cache.Config `json:"cache" yaml:"cache" envPrefix:"CACHE_"`
	Workers   int          `json:"workers" yaml:"workers" env:"WORKERS"`
	QueueSize int          `json:"queue_size" yaml:"queue_size" env:"QUEUE_SIZE"`
	// Timeout bounds each SPARQL request.
	Timeout Duration `json:"timeout" yaml:"timeout" env:"TIMEOUT"`
	// RateLimit caps SPARQL requests per second; 0 disables the limit.
	RateLimit float64     `json:"rate_limit" yaml:"rate_limit" env:"RATE_LIMIT"`
	Burst     int         `json:"burst" yaml:"burst" env:"BURST"`
	Retry     RetryConfig `json:"retry" yaml:"retry" envPrefix:"RETRY_"`
}

// RetryConfig controls further attempts after a transient SPARQL failure.
type RetryConfig struct {
	// Attempts is the total number of queries per lookup; 1 disables retries.
	Attempts int      `json:"attempts" yaml:"attempts" env:"ATTEMPTS"`
	Backoff  Duration `json:"backoff" yaml:"backoff" env:"BACKOFF"`
}

// Schedule converts the settings to a retry schedule doubling the backoff
// up to ten times its initial value.
func (r RetryConfig) Schedule() retry.Config {
	if r.Attempts <= 1 {
		return retry.Once()
	}
	return retry.Config{
		MaxAttempts:  r.Attempts,
		InitialDelay: r.Backoff.Std(),
		MaxDelay:     10 * r.Backoff.Std(),
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Platform:  PlatformTest,
		ArkPrefix: DefaultArkPrefix,
		Languages: []string{"en", "fr"},
		HTTP: HTTPConfig{
			Addr:           DefaultAddr,
			Timeout:        Duration(DefaultHTTPTimeout),
			MaxRequestSize: DefaultMaxRequestSize,
		},
		Labels: LabelsConfig{
			Cache:     cache.DefaultConfig(),
			Workers:   DefaultLabelWorkers,
			QueueSize: DefaultLabelQueueSize,
			Timeout:   Duration(DefaultSPARQLTimeout),
			RateLimit: DefaultSPARQLRate,
			Burst:     DefaultSPARQLBurst,
			Retry: RetryConfig{
				Attempts: DefaultRetryAttempts,
				Backoff:  Duration(DefaultRetryBackoff),
			},
		},
		MetricsPath: DefaultMetricsPath,
	}
}

// IsTest reports whether fixture labels are served.
func (c *Config) IsTest() bool {
	return strings.EqualFold(c.Platform, PlatformTest)
}

// ArkDownloadAllowed reports whether ARKs may be fetched from the access platform.
func (c *Config) ArkDownloadAllowed() bool {
	return c.Platform != "" && !strings.EqualFold(c.Platform, PlatformNone)
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Platform == "" {
		return invalid("platform is required")
	}
	if !c.IsTest() {
		if c.SPARQLEndpoint == "" {
			return invalid(fmt.Sprintf("sparql_endpoint is required for platform %s", c.Platform))
		}
		if u, err := url.ParseRequestURI(c.SPARQLEndpoint); err != nil || u.Host == "" {
			return invalid(fmt.Sprintf("sparql_endpoint is not an absolute url: %q", c.SPARQLEndpoint))
		}
	}
	if c.AccessURL != "" {
		if _, err := url.ParseRequestURI(c.AccessURL); err != nil {
			return invalid(fmt.Sprintf("access_url is not a url: %q", c.AccessURL))
		}
	}
	if !strings.HasPrefix(c.ArkPrefix, "ark:/") {
		return invalid(fmt.Sprintf("ark_prefix must start with ark:/, got %q", c.ArkPrefix))
	}
	if len(c.Languages) == 0 {
		return invalid("at least one language is required")
	}
	for _, lang := range c.Languages {
		if strings.TrimSpace(lang) == "" {
			return invalid("languages cannot contain empty values")
		}
	}

	if c.HTTP.Addr == "" {
		return invalid("http.addr is required")
	}
	if c.HTTP.Timeout < 0 {
		return invalid("http.timeout cannot be negative")
	}
	if c.HTTP.MaxRequestSize <= 0 {
		return invalid(fmt.Sprintf("http.max_request_size must be positive, got %d", c.HTTP.MaxRequestSize))
	}

	if err := c.Labels.Cache.Validate(); err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err), "Config", "Validate", "labels.cache")
	}
	if c.Labels.Workers < 0 || c.Labels.QueueSize < 0 {
		return invalid("labels.workers and labels.queue_size cannot be negative")
	}
	if c.Labels.RateLimit < 0 || c.Labels.Burst < 0 {
		return invalid("labels.rate_limit and labels.burst cannot be negative")
	}
	if c.Labels.Retry.Attempts < 0 || c.Labels.Retry.Backoff < 0 {
		return invalid("labels.retry values cannot be negative")
	}

	if !strings.HasPrefix(c.MetricsPath, "/") {
		return invalid(fmt.Sprintf("metrics_path must start with /, got %q", c.MetricsPath))
	}
	return nil
}

func invalid(msg string) error {
	return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrInvalidConfig, msg), "Config", "Validate", "check configuration")
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Duration is a time.Duration read from strings like "30s" or "2m".
type Duration time.Duration

// Std returns the time.Duration value.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}
