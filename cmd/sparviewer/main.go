// Package main runs the SPAR METS viewer label and decoration server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/tledoux/spar-mets-viewer/config"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "sparviewer"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	cliCfg, err := parseFlags(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	logger := setupLogger(os.Stdout, cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		slog.Info("Configuration is valid", "platform", cfg.Platform)
		return nil
	}

	slog.Info("Starting SPAR METS viewer",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.run(ctx, cliCfg.ShutdownTimeout); err != nil {
		return err
	}
	slog.Info("Shutdown complete")
	return nil
}

// loadConfig layers the optional file and the environment, applies the
// -addr flag, then validates.
func loadConfig(cliCfg *CLIConfig) (*config.Config, error) {
	var (
		loader = config.NewLoader()
		cfg    *config.Config
		err    error
	)
	if cliCfg.ConfigPath != "" {
		cfg, err = loader.LoadFile(cliCfg.ConfigPath)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cliCfg.Addr != "" {
		cfg.HTTP.Addr = cliCfg.Addr
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
