package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/conform/internal/config"
)

// harnessFlags are the per-command overrides of conform.yaml settings.
// Only flags the user actually set take effect.
type harnessFlags struct {
	cases   string
	build   string
	tool    string
	staging string
	timeout time.Duration
	jobs    int
	db      string
	filter  string
}

// registerDiscovery adds the flags needed to find scenarios.
func (f *harnessFlags) registerDiscovery(cmd *cobra.Command) {
	def := config.Default()
	cmd.Flags().StringVar(&f.cases, "cases", def.Cases, "scenario directory")
	cmd.Flags().StringVar(&f.filter, "filter", "", "only scenarios whose dotted name matches this glob")
}

// registerRun adds the flags needed to run scenarios.
func (f *harnessFlags) registerRun(cmd *cobra.Command) {
	f.registerDiscovery(cmd)

	def := config.Default()
	cmd.Flags().StringVar(&f.build, "build", def.Build, "build output directory holding the tool")
	cmd.Flags().StringVar(&f.tool, "tool", def.Tool, "tool name as written in scenario commands")
	cmd.Flags().StringVar(&f.staging, "staging", def.Staging, "staging directory (removed before every scenario)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", def.Timeout, "per-scenario time limit (0 waits indefinitely)")
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", def.Jobs, "scenarios to run concurrently")
	cmd.Flags().StringVar(&f.db, "db", "", "record run history in this SQLite database")
}

// load reads the configuration and applies the flags the user set.
func (f *harnessFlags) load(opts *RootOptions, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("cases") {
		cfg.Cases = f.cases
	}
	if changed("build") {
		cfg.Build = f.build
	}
	if changed("tool") {
		cfg.Tool = f.tool
	}
	if changed("staging") {
		cfg.Staging = f.staging
	}
	if changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if changed("jobs") {
		cfg.Jobs = f.jobs
	}
	if changed("db") {
		cfg.DB = f.db
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newFormatter creates the formatter for cmd's output streams.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// newLogger returns a text logger on w: debug level when verbose,
// otherwise warnings and errors only.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
// Uses the command's context if available (for testing).
func signalContext(cmd *cobra.Command, logger *slog.Logger) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
