package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/conform/internal/harness"
)

// Previous outcomes recorded in run history.
const (
	previousPass = "pass"
	previousFail = "fail"
)

// FailureReport is one reason a scenario failed.
type FailureReport struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Diff    string `json:"diff,omitempty"`
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name       string          `json:"name"`
	Path       string          `json:"path"`
	Pass       bool            `json:"pass"`
	Kind       string          `json:"kind,omitempty"`
	Command    string          `json:"command,omitempty"`
	Digest     string          `json:"digest,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	Failures   []FailureReport `json:"failures,omitempty"`
	Stderr     string          `json:"stderr,omitempty"`

	// Previous is the outcome of the latest recorded run, if history is
	// enabled and the scenario was seen before.
	Previous string `json:"previous,omitempty"`
}

// Regressed reports whether a previously passing scenario now fails.
func (r ScenarioResult) Regressed() bool {
	return !r.Pass && r.Previous == previousPass
}

// Fixed reports whether a previously failing scenario now passes.
func (r ScenarioResult) Fixed() bool {
	return r.Pass && r.Previous == previousFail
}

// TestResult holds the overall test result.
type TestResult struct {
	RunID     string           `json:"run_id,omitempty"`
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// newTestResult converts harness results. previous maps scenario names to
// their last recorded outcome.
func newTestResult(results []*harness.Result, previous map[string]string) TestResult {
	out := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(results)),
		Total:     len(results),
	}
	for _, r := range results {
		sr := ScenarioResult{
			Name:       r.Name,
			Path:       r.Path,
			Pass:       r.Pass,
			Kind:       string(r.Kind()),
			Command:    r.Command,
			Digest:     r.Digest,
			DurationMS: r.Duration.Milliseconds(),
			Stderr:     r.Stderr,
			Previous:   previous[r.Name],
		}
		for _, err := range r.Failures {
			fr := FailureReport{Kind: string(harness.KindOf(err)), Message: err.Error()}
			var mismatch *harness.ContentMismatch
			if errors.As(err, &mismatch) {
				fr.Diff = mismatch.Diff
			}
			sr.Failures = append(sr.Failures, fr)
		}

		if sr.Pass {
			out.Passed++
		} else {
			out.Failed++
		}
		out.Scenarios = append(out.Scenarios, sr)
	}
	return out
}

// RenderText writes one line per scenario, failure details, and a summary.
func (r TestResult) RenderText(w io.Writer, verbose bool) error {
	if r.Total == 0 {
		_, err := fmt.Fprintln(w, "No scenarios found.")
		return err
	}

	for _, s := range r.Scenarios {
		writeScenarioText(w, s, verbose)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
	if r.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", r.RunID)
	}
	if r.Failed == 0 {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
	return nil
}

func writeScenarioText(w io.Writer, s ScenarioResult, verbose bool) {
	mark := "✓"
	if !s.Pass {
		mark = "✗"
	}
	line := mark + " " + s.Name
	switch {
	case s.Regressed():
		line += " (regression)"
	case s.Fixed():
		line += " (fixed)"
	}
	fmt.Fprintln(w, line)

	if verbose && s.Command != "" {
		fmt.Fprintf(w, "  $ %s\n", s.Command)
	}
	for _, f := range s.Failures {
		fmt.Fprintf(w, "  [%s] %s\n", f.Kind, f.Message)
		if f.Diff != "" {
			writeIndented(w, "    ", f.Diff)
		}
	}
	if verbose && !s.Pass && s.Stderr != "" {
		fmt.Fprintln(w, "  stderr:")
		writeIndented(w, "    ", s.Stderr)
	}
}

// writeIndented writes text line by line with prefix.
func writeIndented(w io.Writer, prefix, text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(w, "%s%s\n", prefix, line)
	}
}
