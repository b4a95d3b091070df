package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/willibrandon/gowiz/cmd/gowiz/output"
	"github.com/willibrandon/gowiz/core"
	"github.com/willibrandon/gowiz/core/resolver"
	"github.com/willibrandon/gowiz/observability"
)

type resolveOptions struct {
	common       commonOptions
	timeout      time.Duration
	json         bool
	noCache      bool
	trace        string
	otlpEndpoint string
	metrics      bool
}

// NewResolveCommand creates the resolve command
func NewResolveCommand(console *output.Console) *cobra.Command {
	opts := &resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve REQUIREMENT...",
		Short: "Resolve requirements into an ordered package list",
		Long: `Resolve requirements against the available definitions and print one
package per line, dependencies before their dependents.

Requirements use the form [namespace::]name[variant] specifier, for example
"foo", "ns::bar >=1.2, <2" or "baz[release]==1.0". Earlier requirements have
priority over later ones when versions conflict.`,
		Example: `  gowiz resolve -d ./definitions "app >=2" "tool[cpu]"
  gowiz resolve --json --timeout 30s app`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, console, opts, args)
		},
	}

	addCommonFlags(cmd, &opts.common)
	flags := cmd.Flags()
	flags.DurationVar(&opts.timeout, "timeout", resolver.DefaultTimeout, "Maximum resolution time (0 disables it)")
	flags.BoolVar(&opts.json, "json", false, "Write the result as JSON")
	flags.BoolVar(&opts.noCache, "no-cache", false, "Disable the extraction cache shared by graph branches")
	flags.StringVar(&opts.trace, "trace", "", "Span exporter (none, stdout, otlp)")
	flags.StringVar(&opts.otlpEndpoint, "otlp-endpoint", "", "OTLP collector endpoint for --trace otlp")
	flags.BoolVar(&opts.metrics, "metrics", false, "Write resolution metrics to stderr")

	return cmd
}

func runResolve(cmd *cobra.Command, console *output.Console, opts *resolveOptions, requests []string) error {
	ctx := cmd.Context()

	s, err := loadSettings(cmd, &opts.common)
	if err != nil {
		return err
	}
	applyResolveFlags(cmd, opts, s)
	console.SetVerbosity(s.verbosity)

	if len(s.definitionPaths) == 0 {
		return errNoDefinitionPaths
	}

	shutdown, err := setupTracing(ctx, s.tracing)
	if err != nil {
		return err
	}
	defer shutdown()

	logger := observability.NewLogger(console.Err(), s.logLevel)

	repo, err := core.LoadRepository(ctx, s.definitionPaths...)
	if err != nil {
		return fmt.Errorf("failed to load definitions: %w", err)
	}
	console.Detail("Loaded %d definitions from %s", repo.Len(), strings.Join(s.definitionPaths, ", "))

	resolverOpts := []resolver.Option{
		resolver.WithTimeout(s.timeout),
		resolver.WithLogger(logger),
		resolver.WithCache(s.cache),
	}
	if s.logLevel == observability.VerboseLevel {
		resolverOpts = append(resolverOpts, resolver.WithObserver(resolver.NewLogObserver(logger)))
	}

	start := time.Now()
	packages, resolveErr := resolver.New(repo, resolverOpts...).ResolveRequests(ctx, requests)
	elapsed := time.Since(start)

	if opts.metrics {
		defer func() { _ = observability.WriteMetrics(console.Err()) }()
	}

	if opts.json {
		if err := output.WriteJSON(console.Out(), output.NewResolveOutput(requests, packages, resolveErr, elapsed)); err != nil {
			return err
		}
		if resolveErr != nil {
			return &ReportedError{Err: resolveErr}
		}
		return nil
	}

	if resolveErr != nil {
		console.ReportError(resolveErr)
		return &ReportedError{Err: resolveErr}
	}

	console.PrintPackages(packages)
	console.Debug("Resolved %d packages in %s", len(packages), elapsed)
	return nil
}

// applyResolveFlags lets explicit resolve flags override the configuration.
func applyResolveFlags(cmd *cobra.Command, opts *resolveOptions, s *settings) {
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		s.timeout = opts.timeout
	}
	if opts.noCache {
		s.cache = false
	}
	if opts.trace != "" {
		s.tracing.ExporterType = opts.trace
	}
	if opts.otlpEndpoint != "" {
		s.tracing.OTLPEndpoint = opts.otlpEndpoint
	}
}

// setupTracing installs a tracer provider unless spans are not exported.
func setupTracing(ctx context.Context, config observability.TracerConfig) (func(), error) {
	if config.ExporterType == observability.ExporterNone {
		return func() {}, config.Validate()
	}

	tp, err := observability.SetupTracing(ctx, config)
	if err != nil {
		return nil, err
	}
	return func() { _ = observability.ShutdownTracing(context.WithoutCancel(ctx), tp) }, nil
}
