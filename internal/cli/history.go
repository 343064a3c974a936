package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/conform/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB    string
	Limit int
}

// RunList is the recorded runs, newest first.
type RunList struct {
	Runs []store.Run `json:"runs"`
}

// RenderText prints a table of runs.
func (l RunList) RenderText(w io.Writer, verbose bool) error {
	if len(l.Runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tPASSED\tFAILED\tTOTAL")
	for _, r := range l.Runs {
		started := r.StartedAt.Local().Format(time.DateTime)
		if !r.Finished() {
			started += " (incomplete)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", r.ID, started, r.Passed, r.Failed, r.Total)
	}
	return tw.Flush()
}

// RunDetail is one run with its per-scenario results.
type RunDetail struct {
	Run     store.Run      `json:"run"`
	Results []store.Record `json:"results"`
}

// RenderText prints the run header and one line per scenario.
func (d RunDetail) RenderText(w io.Writer, verbose bool) error {
	fmt.Fprintf(w, "Run %s\n", d.Run.ID)
	fmt.Fprintf(w, "  started:  %s\n", d.Run.StartedAt.Local().Format(time.DateTime))
	if d.Run.Finished() {
		fmt.Fprintf(w, "  duration: %s\n", d.Run.FinishedAt.Sub(d.Run.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(w, "  cases:    %s\n", d.Run.CasesDir)
	fmt.Fprintf(w, "  build:    %s\n", d.Run.BuildDir)
	fmt.Fprintln(w)

	for _, rec := range d.Results {
		if rec.Pass {
			fmt.Fprintf(w, "✓ %s\n", rec.Name)
		} else {
			fmt.Fprintf(w, "✗ %s [%s]\n", rec.Name, rec.Kind)
			if verbose && rec.Message != "" {
				writeIndented(w, "  ", rec.Message)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d passed, %d failed, %d total\n", d.Run.Passed, d.Run.Failed, d.Run.Total)
	return nil
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs",
		Long: `Show runs recorded by "conform test --db".

Without arguments lists the most recent runs. With a run ID prints that
run's per-scenario results.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runHistory(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "history database (default from configuration)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "number of runs to list (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	dbPath := opts.DB
	if dbPath == "" {
		var flags harnessFlags
		cfg, err := flags.load(opts.RootOptions, cmd)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load configuration", err)
		}
		dbPath = cfg.DB
	}
	if dbPath == "" {
		return formatter.Fail(ExitCommandError, ErrCodeHistory,
			"no history database configured (set db in conform.yaml or pass --db)", nil)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeHistory, "failed to open history database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()

	if runID == "" {
		runs, err := st.ListRuns(ctx, opts.Limit)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeHistory, "failed to list runs", err)
		}
		return formatter.Success(RunList{Runs: runs})
	}

	run, err := st.GetRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.Fail(ExitCommandError, ErrCodeHistory, fmt.Sprintf("run not found: %s", runID), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeHistory, "failed to read run", err)
	}
	results, err := st.RunResults(ctx, runID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeHistory, "failed to read results", err)
	}
	return formatter.Success(RunDetail{Run: run, Results: results})
}
