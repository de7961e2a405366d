package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/tledoux/spar-mets-viewer/errors"
)

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers      []string
	environment map[string]string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// AddLayer adds a configuration file layer. Later layers override earlier ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// WithEnvironment replaces the process environment for overrides.
func (l *Loader) WithEnvironment(environment map[string]string) *Loader {
	l.environment = environment
	return l
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load applies the defaults, every layer, then the environment. Callers
// validate once their own overrides are applied.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		if err := l.loadLayer(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadLayer decodes path over cfg; fields absent from the file keep their value.
func (l *Loader) loadLayer(path string, cfg *Config) error {
	data, err := safeReadFile(path)
	if err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrConfigNotFound, err), "Loader", "Load", "read "+path)
	}

	format, _ := configFormat(path)
	switch format {
	case "json":
		if err := validateJSONDepth(data); err != nil {
			return errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrParsingFailed, err), "Loader", "Load", "parse "+path)
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrParsingFailed, err), "Loader", "Load", "parse "+path)
		}
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrParsingFailed, err), "Loader", "Load", "parse "+path)
		}
	}
	return nil
}

func (l *Loader) applyEnvOverrides(cfg *Config) error {
	opts := env.Options{Prefix: EnvPrefix}
	if l.environment != nil {
		opts.Environment = l.environment
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err), "Loader", "Load", "parse environment")
	}
	return nil
}
