package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/conform/internal/scenario"
)

// Config holds the harness settings.
type Config struct {
	// CasesDir is the root scenario names are derived from.
	CasesDir string

	// BuildDir holds the built tool and everything it needs at runtime.
	BuildDir string

	// Tool is the tool's bare name as written in command templates.
	Tool string

	// StagingDir is the working directory scenarios run in. With Jobs > 1
	// each scenario gets StagingDir/<name> instead.
	StagingDir string

	// Timeout bounds each tool run. Zero waits indefinitely.
	Timeout time.Duration

	// Jobs is the number of scenarios run concurrently. Values below 2 run
	// scenarios one after another in StagingDir.
	Jobs int
}

// Validate checks the configuration. The staging directory is removed
// before every scenario, so it must not be or contain the build or cases
// directory.
func (c Config) Validate() error {
	if c.Tool == "" {
		return errors.New("tool name is required")
	}
	if strings.ContainsAny(c.Tool, `/\`) {
		return fmt.Errorf("tool name %q must not contain path separators", c.Tool)
	}
	if c.BuildDir == "" {
		return errors.New("build directory is required")
	}
	if c.StagingDir == "" {
		return errors.New("staging directory is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %s", c.Timeout)
	}

	staging, err := filepath.Abs(c.StagingDir)
	if err != nil {
		return fmt.Errorf("staging directory: %w", err)
	}
	for _, other := range []struct{ name, dir string }{{"build", c.BuildDir}, {"cases", c.CasesDir}} {
		if other.dir == "" {
			continue
		}
		abs, err := filepath.Abs(other.dir)
		if err != nil {
			return fmt.Errorf("%s directory: %w", other.name, err)
		}
		if within(abs, staging) {
			return fmt.Errorf("staging directory %s would delete the %s directory %s", c.StagingDir, other.name, other.dir)
		}
		if other.name == "build" && within(staging, abs) {
			return fmt.Errorf("staging directory %s must not be inside the build directory %s", c.StagingDir, other.dir)
		}
	}
	return nil
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Harness runs scenarios against the built tool.
type Harness struct {
	config   Config
	platform Platform
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger. By default logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithClock sets the time source used for durations.
func WithClock(now func() time.Time) Option {
	return func(h *Harness) { h.now = now }
}

// New creates a harness for cfg. Call cfg.Validate first.
func New(cfg Config, opts ...Option) *Harness {
	h := &Harness{
		config:   cfg,
		platform: CurrentPlatform(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Config returns the harness configuration.
func (h *Harness) Config() Config {
	return h.config
}

// StageDirFor returns the staging directory used for the named scenario.
func (h *Harness) StageDirFor(name string) string {
	if h.config.Jobs > 1 {
		return filepath.Join(h.config.StagingDir, name)
	}
	return h.config.StagingDir
}

// RunAll runs every entry and returns the results in entry order. A failing
// scenario never stops the others. With Jobs > 1 an entry whose name is empty
// or repeats an earlier entry's name fails with a StagingError instead of
// running.
func (h *Harness) RunAll(ctx context.Context, entries []scenario.Entry) []*Result {
	results := make([]*Result, len(entries))

	if h.config.Jobs <= 1 {
		for i, e := range entries {
			results[i] = h.Run(ctx, e)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(h.config.Jobs)
	owners := make(map[string]string)
	for i, e := range entries {
		// Concurrent scenarios must never share a staging directory.
		dir := h.StageDirFor(e.Name)
		var claimErr error
		switch owner, taken := owners[dir]; {
		case e.Name == "":
			claimErr = errors.New("scenario has no name to key its staging directory")
		case taken:
			claimErr = fmt.Errorf("staging directory already belongs to %s", owner)
		}
		if claimErr != nil {
			results[i] = NewResult(e.Name, e.Path)
			results[i].AddFailure(&StagingError{Dir: dir, Op: "claim", Err: claimErr})
			continue
		}
		owners[dir] = e.Path

		g.Go(func() error {
			results[i] = h.Run(ctx, e)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Run executes one scenario:
//
//  1. load and normalize the document
//  2. stage a fresh copy of the build output
//  3. write the input files
//  4. run the tool and wait for it
//  5. compare the expected files
//
// Every failure is recorded on the result; Run never returns an error.
func (h *Harness) Run(ctx context.Context, entry scenario.Entry) *Result {
	start := h.now()
	result := NewResult(entry.Name, entry.Path)
	defer func() {
		result.Duration = h.now().Sub(start)
		h.logger.Info("scenario finished",
			"scenario", result.Name,
			"pass", result.Pass,
			"kind", result.Kind(),
			"duration", result.Duration,
		)
	}()

	if err := ctx.Err(); err != nil {
		result.AddFailure(&ExecutionError{Command: entry.Name, Err: err})
		return result
	}

	sc, err := scenario.Load(h.config.CasesDir, entry.Path)
	if err != nil {
		result.AddFailure(err)
		return result
	}
	result.Name = sc.Name
	result.Digest = sc.Digest()

	dir, err := filepath.Abs(h.StageDirFor(sc.Name))
	if err != nil {
		result.AddFailure(&StagingError{Dir: h.StageDirFor(sc.Name), Op: "remove", Err: err})
		return result
	}
	result.StageDir = dir

	stager := &Stager{BuildDir: h.config.BuildDir, Tool: h.config.Tool, Platform: h.platform}
	if err := stager.Stage(dir); err != nil {
		result.AddFailure(err)
		return result
	}
	if err := WriteInputs(dir, sc.Inputs); err != nil {
		result.AddFailure(err)
		return result
	}
	h.logger.Debug("staged", "scenario", sc.Name, "stage_dir", dir, "inputs", sc.InputNames())

	inv, err := Build(sc, h.config.Tool, h.platform, dir)
	if err != nil {
		result.AddFailure(err)
		return result
	}
	result.Command = inv.Display

	h.logger.Debug("executing", "scenario", sc.Name, "argv", inv.Argv)
	ex, err := Execute(ctx, inv, dir, h.config.Timeout)
	if ex != nil {
		result.Stderr = ex.Stderr
		h.logger.Debug("tool exited", "scenario", sc.Name, "exit_code", ex.ExitCode, "elapsed", ex.Duration)
	}
	if err != nil {
		result.AddFailure(err)
		return result
	}

	result.AddFailure(Compare(dir, sc.Outputs))
	return result
}
