package harness

import (
	"time"

	"go.uber.org/multierr"
)

// Result is the outcome of one scenario run.
type Result struct {
	// Name is the scenario name derived from its document path.
	Name string `json:"name"`

	// Path is the scenario document.
	Path string `json:"path"`

	// Digest identifies the normalized contract; empty if loading failed.
	Digest string `json:"digest,omitempty"`

	// Pass is true when every expected file matched.
	Pass bool `json:"pass"`

	// Failures holds the typed errors that failed the scenario, in the order
	// they were found. Use KindOf to classify them.
	Failures []error `json:"-"`

	// Command is the invocation as displayed to users.
	Command string `json:"command,omitempty"`

	// StageDir is where the scenario ran.
	StageDir string `json:"stage_dir,omitempty"`

	// Stderr is the tool's captured standard error, for diagnostics.
	Stderr string `json:"stderr,omitempty"`

	Duration time.Duration `json:"duration"`
}

// NewResult creates a passing result for the named scenario.
func NewResult(name, path string) *Result {
	return &Result{
		Name: name,
		Path: path,
		Pass: true,
	}
}

// AddFailure records err and marks the result as failed. Errors combined
// with multierr are recorded individually.
func (r *Result) AddFailure(err error) {
	if err == nil {
		return
	}
	r.Failures = append(r.Failures, multierr.Errors(err)...)
	r.Pass = false
}

// Kind returns the kind of the first failure, or "" for a passing result.
func (r *Result) Kind() Kind {
	if len(r.Failures) == 0 {
		return ""
	}
	return KindOf(r.Failures[0])
}

// Messages returns the failure messages.
func (r *Result) Messages() []string {
	msgs := make([]string, len(r.Failures))
	for i, err := range r.Failures {
		msgs[i] = err.Error()
	}
	return msgs
}
