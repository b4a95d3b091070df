package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/willibrandon/gowiz/cmd/gowiz/config"
	"github.com/willibrandon/gowiz/cmd/gowiz/output"
	"github.com/willibrandon/gowiz/core/resolver"
	"github.com/willibrandon/gowiz/observability"
)

// commonOptions are the flags shared by commands reading definitions.
type commonOptions struct {
	configFile      string
	definitionPaths []string
	verbosity       string
	verbose         int
}

func addCommonFlags(cmd *cobra.Command, opts *commonOptions) {
	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "Configuration file (default: first gowiz.yaml found)")
	flags.StringSliceVarP(&opts.definitionPaths, "definition-path", "d", nil,
		"Definition file or directory (repeatable, replaces definitionPaths from the configuration)")
	flags.StringVar(&opts.verbosity, "verbosity", "", "Console verbosity (quiet, normal, detailed, diagnostic)")
	flags.CountVarP(&opts.verbose, "verbose", "v", "Increase log level (-v info, -vv debug, -vvv verbose)")
}

// settings merges configuration file, environment and flags.
type settings struct {
	definitionPaths []string
	verbosity       output.Verbosity
	logLevel        observability.LogLevel
	timeout         time.Duration
	cache           bool
	tracing         observability.TracerConfig
}

func loadSettings(cmd *cobra.Command, opts *commonOptions) (*settings, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}

	s := &settings{
		definitionPaths: cfg.DefinitionPaths,
		timeout:         resolver.DefaultTimeout,
		cache:           cfg.CacheEnabled(),
		tracing:         observability.DefaultTracerConfig(),
	}

	if cmd.Flags().Changed("definition-path") {
		s.definitionPaths = opts.definitionPaths
	}
	s.definitionPaths = append(append([]string(nil), s.definitionPaths...), config.EnvDefinitionPaths()...)

	verbosity := cfg.Verbosity
	if cmd.Flags().Changed("verbosity") {
		verbosity = opts.verbosity
	}
	if s.verbosity, err = output.ParseVerbosity(verbosity); err != nil {
		return nil, err
	}

	if s.logLevel, err = observability.ParseLogLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("logLevel: %w", err)
	}
	if opts.verbose > 0 {
		s.logLevel = observability.LevelForVerbosity(opts.verbose)
	}

	timeout, err := cfg.ResolveTimeout()
	if err != nil {
		return nil, err
	}
	if cfg.Timeout != "" {
		s.timeout = timeout
	}

	if cfg.Tracing.Exporter != "" {
		s.tracing.ExporterType = cfg.Tracing.Exporter
	}
	if cfg.Tracing.Endpoint != "" {
		s.tracing.OTLPEndpoint = cfg.Tracing.Endpoint
	}
	if cfg.Tracing.SamplingRate > 0 {
		s.tracing.SamplingRate = cfg.Tracing.SamplingRate
	}

	return s, nil
}
