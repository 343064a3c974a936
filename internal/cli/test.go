package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/conform/internal/config"
	"github.com/roach88/conform/internal/harness"
	"github.com/roach88/conform/internal/scenario"
	"github.com/roach88/conform/internal/store"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	flags harnessFlags

	// Now is the time source for durations and history timestamps.
	// Defaults to time.Now.
	Now func() time.Time

	// RunIDs generates history run IDs. Defaults to UUIDv7.
	RunIDs store.IDGenerator
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	return newTestCommand(&TestOptions{RootOptions: rootOpts})
}

func newTestCommand(opts *TestOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run conformance scenarios",
		Long: `Run every scenario under the cases directory against the built tool.

Each scenario is staged into a fresh copy of the build directory, the tool
is invoked, and the produced files are compared with the expectations.
Settings come from conform.yaml, CONFORM_* environment variables, and
flags, in increasing order of precedence.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (bad configuration, cases directory not found, etc.)

Examples:
  conform test
  conform test --build ../build --filter "help.*"
  conform test --jobs 4 --timeout 10s
  conform test --db history.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, cmd)
		},
	}

	opts.flags.registerRun(cmd)

	return cmd
}

func runTests(opts *TestOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := opts.flags.load(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load configuration", err)
	}

	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	result, err := runSuite(ctx, opts, cfg, logger)
	if err != nil {
		return reportCommandError(formatter, err)
	}

	return outputTestResult(formatter, result)
}

// outputTestResult writes the result and maps failures to exit code 1.
func outputTestResult(formatter *OutputFormatter, result TestResult) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "ok",
			Data:   result,
			RunID:  result.RunID,
		}
		if result.Failed > 0 {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    ErrCodeTestFailed,
				Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
			}
		}
		if err := formatter.encode(response); err != nil {
			return err
		}
	} else if err := result.RenderText(formatter.Writer, formatter.Verbose); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// commandError is a failure that prevents a suite from running.
type commandError struct {
	Code    string // envelope error code
	Message string
	Err     error
}

func (e *commandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *commandError) Unwrap() error {
	return e.Err
}

// reportCommandError writes err through formatter and converts it to an
// exit error.
func reportCommandError(formatter *OutputFormatter, err error) error {
	var cerr *commandError
	if errors.As(err, &cerr) {
		return formatter.Fail(ExitCommandError, cerr.Code, cerr.Message, cerr.Err)
	}
	return err
}

// runSuite discovers and runs the scenarios described by cfg, recording the
// run when a history database is configured. Scenario failures are part of
// the result; only *commandError values are returned.
func runSuite(ctx context.Context, opts *TestOptions, cfg *config.Config, logger *slog.Logger) (TestResult, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	hcfg := cfg.Harness()
	if err := hcfg.Validate(); err != nil {
		return TestResult{}, &commandError{Code: ErrCodeConfig, Message: "invalid configuration", Err: err}
	}

	entries, err := scenario.Discover(cfg.Cases, opts.flags.filter)
	if err != nil {
		return TestResult{}, &commandError{Code: ErrCodeDiscovery, Message: "failed to discover scenarios", Err: err}
	}
	logger.Debug("discovered scenarios", "cases", cfg.Cases, "count", len(entries))
	if len(entries) == 0 {
		return newTestResult(nil, nil), nil
	}

	var st *store.Store
	if cfg.DB != "" {
		var storeOpts []store.Option
		if opts.RunIDs != nil {
			storeOpts = append(storeOpts, store.WithIDGenerator(opts.RunIDs))
		}
		st, err = store.Open(cfg.DB, storeOpts...)
		if err != nil {
			return TestResult{}, &commandError{Code: ErrCodeHistory, Message: "failed to open history database", Err: err}
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	previous := previousOutcomes(ctx, st, entries, logger)

	started := now()
	h := harness.New(hcfg, harness.WithLogger(logger), harness.WithClock(now))
	results := h.RunAll(ctx, entries)

	result := newTestResult(results, previous)
	if st != nil {
		id, err := recordRun(ctx, st, cfg, started, now(), results)
		if err != nil {
			logger.Error("failed to record run", "db", cfg.DB, "error", err)
		} else {
			result.RunID = id
		}
	}
	return result, nil
}

// previousOutcomes looks up each scenario's last recorded outcome.
func previousOutcomes(ctx context.Context, st *store.Store, entries []scenario.Entry, logger *slog.Logger) map[string]string {
	previous := make(map[string]string)
	if st == nil {
		return previous
	}
	for _, e := range entries {
		rec, err := st.LastStatus(ctx, e.Name)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			continue
		case err != nil:
			logger.Warn("failed to read history", "scenario", e.Name, "error", err)
			continue
		case rec.Pass:
			previous[e.Name] = previousPass
		default:
			previous[e.Name] = previousFail
		}
	}
	return previous
}

// recordRun stores results in discovery order.
func recordRun(ctx context.Context, st *store.Store, cfg *config.Config, started, finished time.Time, results []*harness.Result) (string, error) {
	// Record even if the run was interrupted.
	ctx = context.WithoutCancel(ctx)

	id, err := st.BeginRun(ctx, started, cfg.Cases, cfg.Build)
	if err != nil {
		return "", err
	}
	for i, r := range results {
		err := st.RecordResult(ctx, store.Record{
			RunID:    id,
			Seq:      int64(i + 1),
			Name:     r.Name,
			Digest:   r.Digest,
			Pass:     r.Pass,
			Kind:     string(r.Kind()),
			Message:  strings.Join(r.Messages(), "\n"),
			Duration: r.Duration,
		})
		if err != nil {
			return "", err
		}
	}
	if err := st.FinishRun(ctx, id, finished); err != nil {
		return "", err
	}
	return id, nil
}
