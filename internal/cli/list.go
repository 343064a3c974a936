package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/conform/internal/scenario"
)

// ListResult holds the discovered scenarios.
type ListResult struct {
	Scenarios []scenario.Entry `json:"scenarios"`
	Total     int              `json:"total"`
}

// RenderText prints one scenario name per line; verbose adds the path.
func (r ListResult) RenderText(w io.Writer, verbose bool) error {
	if r.Total == 0 {
		_, err := fmt.Fprintln(w, "No scenarios found.")
		return err
	}
	for _, e := range r.Scenarios {
		if verbose {
			fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Path)
		} else {
			fmt.Fprintln(w, e.Name)
		}
	}
	return nil
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var flags harnessFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scenario names",
		Long: `List the scenarios under the cases directory by their dotted names.

A scenario's name is its path relative to the cases directory with the
extension removed and separators replaced by dots: cases/help/basic.yaml
is "help.basic". Names are what --filter matches against.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, &flags, cmd)
		},
	}

	flags.registerDiscovery(cmd)

	return cmd
}

func runList(opts *RootOptions, flags *harnessFlags, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := flags.load(opts, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load configuration", err)
	}

	entries, err := scenario.Discover(cfg.Cases, flags.filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDiscovery, "failed to discover scenarios", err)
	}
	if entries == nil {
		entries = []scenario.Entry{}
	}

	return formatter.Success(ListResult{Scenarios: entries, Total: len(entries)})
}
