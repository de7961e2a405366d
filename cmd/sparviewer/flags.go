package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	Addr            string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	Validate        bool
}

// parseFlags parses args with environment variable fallback for defaults.
func parseFlags(args []string, stderr io.Writer) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("SPARVIEWER_CONFIG", ""),
		"Path to a .json or .yaml configuration file (env: SPARVIEWER_CONFIG)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("SPARVIEWER_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: SPARVIEWER_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("SPARVIEWER_LOG_FORMAT", "json"),
		"Log format: json, text (env: SPARVIEWER_LOG_FORMAT)")

	fs.StringVar(&cfg.Addr, "addr", "",
		"Listen address, overrides http.addr (env: SPARVIEWER_HTTP_ADDR)")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("SPARVIEWER_SHUTDOWN_TIMEOUT", 15*time.Second),
		"Graceful shutdown timeout (env: SPARVIEWER_SHUTDOWN_TIMEOUT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() { printDetailedHelp(fs, stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", cfg.ShutdownTimeout)
	}
	return nil
}

func printDetailedHelp(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintf(w, `%s - SPAR METS viewer label and decoration server

Usage: %s [options]

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # Serve fixture labels (TEST platform)
  %s --log-format=text

  # Serve labels from a SPARQL endpoint
  export SPARVIEWER_PLATFORM=PFO
  export SPARVIEWER_SPARQL_ENDPOINT=http://consultation.spar.bnf.fr/sparql
  %s --config=/etc/sparviewer/viewer.yaml

  # Validate configuration only
  %s --config=viewer.yaml --validate

Version: %s
Build: %s
`, appName, appName, appName, Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
