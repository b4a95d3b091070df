// Package config loads the gowiz CLI configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file searched in the default locations
const FileName = "gowiz.yaml"

// DefinitionPathEnv lists additional definition paths, separated like PATH
const DefinitionPathEnv = "GOWIZ_DEFINITION_PATH"

// Config is the content of gowiz.yaml.
type Config struct {
	// DefinitionPaths are files or directories holding definitions
	DefinitionPaths []string `yaml:"definitionPaths,omitempty"`

	// Timeout bounds each resolution ("5m", "30s"); empty uses the resolver default
	Timeout string `yaml:"timeout,omitempty"`

	// Verbosity is the console verbosity (quiet, normal, detailed, diagnostic)
	Verbosity string `yaml:"verbosity,omitempty"`

	// LogLevel is the minimum level of the structured log on stderr
	LogLevel string `yaml:"logLevel,omitempty"`

	// Cache memoizes catalogue extractions across graph branches
	Cache *bool `yaml:"cache,omitempty"`

	// Tracing configures the OpenTelemetry exporter
	Tracing TracingConfig `yaml:"tracing,omitempty"`

	// Path is the file the configuration was read from ("" for defaults)
	Path string `yaml:"-"`
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	Exporter     string  `yaml:"exporter,omitempty"`
	Endpoint     string  `yaml:"endpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty"`
}

// CacheEnabled reports whether extraction caching is on (the default).
func (c *Config) CacheEnabled() bool {
	return c.Cache == nil || *c.Cache
}

// ResolveTimeout parses Timeout. Zero is returned when it is unset.
func (c *Config) ResolveTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid timeout %q: negative duration", c.Timeout)
	}
	return d, nil
}

// Parse decodes a configuration document. Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	cfg := &Config{}
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadFile reads a configuration file. Relative definition paths are
// resolved against the directory of the file.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i, p := range cfg.DefinitionPaths {
		if !filepath.IsAbs(p) {
			cfg.DefinitionPaths[i] = filepath.Join(dir, p)
		}
	}
	cfg.Path = path
	return cfg, nil
}

// Load reads the explicit configuration file when one is given, otherwise
// the first gowiz.yaml found in the default locations. Without any file the
// zero configuration is returned.
func Load(explicit string) (*Config, error) {
	if explicit != "" {
		return LoadFile(explicit)
	}
	if path := FindConfigFile(DefaultConfigLocations()); path != "" {
		return LoadFile(path)
	}
	return &Config{}, nil
}

// DefaultConfigLocations returns the gowiz.yaml locations to search in
// precedence order.
func DefaultConfigLocations() []string {
	var locations []string

	if cwd, err := os.Getwd(); err == nil {
		locations = append(locations, filepath.Join(cwd, FileName))
	}

	if dir, err := os.UserConfigDir(); err == nil {
		locations = append(locations, filepath.Join(dir, "gowiz", FileName))
	}

	locations = append(locations, filepath.Join("/etc", "gowiz", FileName))
	return locations
}

// FindConfigFile returns the first existing file of locations, or "".
func FindConfigFile(locations []string) string {
	for _, loc := range locations {
		if info, err := os.Stat(loc); err == nil && !info.IsDir() {
			return loc
		}
	}
	return ""
}

// EnvDefinitionPaths returns the non-empty entries of GOWIZ_DEFINITION_PATH.
func EnvDefinitionPaths() []string {
	var paths []string
	for _, p := range filepath.SplitList(os.Getenv(DefinitionPathEnv)) {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
