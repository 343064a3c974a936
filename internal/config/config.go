// Package config loads conform's project configuration.
//
// Settings come from three layers, later layers winning: built-in defaults,
// the conform.yaml file, and CONFORM_* environment variables. Command-line
// flags are applied on top by the cli package.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/conform/internal/harness"
)

// DefaultFile is read from the working directory when no file is named.
const DefaultFile = "conform.yaml"

// EnvPrefix prefixes the environment variables that override file values.
const EnvPrefix = "CONFORM_"

// Config holds the project settings.
type Config struct {
	// Cases is the directory scenario documents are discovered under.
	Cases string `yaml:"cases"`

	// Build is the directory holding the built tool.
	Build string `yaml:"build"`

	// Tool is the tool's bare name.
	Tool string `yaml:"tool"`

	// Staging is the working directory scenarios run in.
	Staging string `yaml:"staging"`

	// Timeout bounds each tool run; zero disables the bound.
	Timeout time.Duration `yaml:"timeout"`

	// Jobs is the number of scenarios run concurrently.
	Jobs int `yaml:"jobs"`

	// DB is the run history database. Empty disables history.
	DB string `yaml:"db"`

	// Source is the file the configuration was read from, if any.
	Source string `yaml:"-"`
}

// Default returns the built-in configuration, matching a layout where the
// scenarios sit next to a sibling build directory.
func Default() *Config {
	return &Config{
		Cases:   "cases",
		Build:   filepath.Join("..", "build"),
		Tool:    "findany",
		Staging: "tmp",
		Timeout: 60 * time.Second,
		Jobs:    1,
	}
}

// Load reads the configuration file at path over the defaults, then applies
// CONFORM_* environment variables.
//
// An empty path falls back to DefaultFile, which may be absent. A file that
// was named explicitly must exist. Unknown keys are errors. Relative paths in
// a file are resolved against the file's directory.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		cfg.Source = path
		cfg.resolve(filepath.Dir(path))
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No project file; defaults apply.
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays the YAML document in data. Fields the document omits
// keep their current values.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// resolve makes relative directory settings relative to base.
func (c *Config) resolve(base string) {
	for _, p := range []*string{&c.Cases, &c.Build, &c.Staging, &c.DB} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// applyEnv overrides settings from CONFORM_CASES, CONFORM_BUILD,
// CONFORM_TOOL, CONFORM_STAGING, CONFORM_TIMEOUT, CONFORM_JOBS and
// CONFORM_DB.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"CASES":   &c.Cases,
		"BUILD":   &c.Build,
		"TOOL":    &c.Tool,
		"STAGING": &c.Staging,
		"DB":      &c.DB,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sTIMEOUT %q: %w", EnvPrefix, v, err)
		}
		c.Timeout = d
	}
	if v, ok := lookup(EnvPrefix + "JOBS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sJOBS %q: %w", EnvPrefix, v, err)
		}
		c.Jobs = n
	}
	return nil
}

// Validate checks values that do not depend on the filesystem.
func (c *Config) Validate() error {
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// Harness converts the configuration into harness settings.
func (c *Config) Harness() harness.Config {
	return harness.Config{
		CasesDir:   c.Cases,
		BuildDir:   c.Build,
		Tool:       c.Tool,
		StagingDir: c.Staging,
		Timeout:    c.Timeout,
		Jobs:       c.Jobs,
	}
}
