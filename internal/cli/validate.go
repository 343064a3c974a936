package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/conform/internal/harness"
	"github.com/roach88/conform/internal/scenario"
)

// ScenarioValidation is the outcome of parsing one scenario document.
type ScenarioValidation struct {
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Valid   bool     `json:"valid"`
	Style   string   `json:"style,omitempty"`
	Inputs  []string `json:"inputs,omitempty"`
	Outputs []string `json:"outputs,omitempty"`
	Digest  string   `json:"digest,omitempty"`
	Kind    string   `json:"kind,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                 `json:"valid"`
	Scenarios []ScenarioValidation `json:"scenarios"`
	Invalid   int                  `json:"invalid"`
	Total     int                  `json:"total"`
}

// RenderText prints one line per scenario and a summary.
func (r ValidationResult) RenderText(w io.Writer, verbose bool) error {
	for _, s := range r.Scenarios {
		if s.Valid {
			fmt.Fprintf(w, "✓ %s\n", s.Name)
			if verbose {
				fmt.Fprintf(w, "  style: %s, inputs: %v, outputs: %v\n", s.Style, s.Inputs, s.Outputs)
			}
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", s.Name)
		fmt.Fprintf(w, "  [%s] %s\n", s.Kind, s.Error)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Validation Summary: %d valid, %d invalid, %d total\n", r.Total-r.Invalid, r.Invalid, r.Total)
	return nil
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var flags harnessFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate scenario documents without running them",
		Long: `Parse and normalize every scenario document without staging or running
the tool.

Reports malformed documents (schema errors) and template-style scenarios
that declare no expected output. Faster than test for authoring feedback.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, &flags, cmd)
		},
	}

	flags.registerDiscovery(cmd)

	return cmd
}

func runValidate(opts *RootOptions, flags *harnessFlags, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := flags.load(opts, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load configuration", err)
	}

	entries, err := scenario.Discover(cfg.Cases, flags.filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDiscovery, "failed to discover scenarios", err)
	}
	formatter.VerboseLog("Found %d scenario(s) in %s", len(entries), cfg.Cases)

	result := validateAll(cfg.Cases, entries)

	if result.Valid {
		return formatter.Success(result)
	}

	if formatter.Format == "json" {
		err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    ErrCodeInvalidScenario,
				Message: fmt.Sprintf("%d scenario(s) invalid", result.Invalid),
			},
		})
		if err != nil {
			return err
		}
	} else if err := result.RenderText(formatter.Writer, formatter.Verbose); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) invalid", result.Invalid))
}

// validateAll loads every entry and collects the outcomes.
func validateAll(root string, entries []scenario.Entry) ValidationResult {
	result := ValidationResult{
		Valid:     true,
		Scenarios: make([]ScenarioValidation, 0, len(entries)),
		Total:     len(entries),
	}

	for _, e := range entries {
		v := ScenarioValidation{Name: e.Name, Path: e.Path}

		sc, err := scenario.Load(root, e.Path)
		if err != nil {
			v.Kind = string(harness.KindOf(err))
			v.Error = err.Error()
			result.Valid = false
			result.Invalid++
		} else {
			v.Valid = true
			v.Style = sc.Style.String()
			v.Inputs = sc.InputNames()
			v.Outputs = sc.OutputNames()
			v.Digest = sc.Digest()
		}
		result.Scenarios = append(result.Scenarios, v)
	}
	return result
}
