package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/conform/internal/scenario"
)

// Kind categorizes a scenario failure for reporting.
type Kind string

const (
	// KindSchema: the scenario document is malformed.
	KindSchema Kind = "schema"

	// KindAssertionDeclaration: a template scenario declares no expected output.
	KindAssertionDeclaration Kind = "assertion_declaration"

	// KindStaging: the build output could not be staged.
	KindStaging Kind = "staging"

	// KindTimeout: the tool did not terminate within the configured bound.
	KindTimeout Kind = "timeout"

	// KindExecution: the tool could not be started or the run was cancelled.
	KindExecution Kind = "execution"

	// KindMismatch: an output file differs from its expected content.
	KindMismatch Kind = "mismatch"

	// KindMissingOutput: an expected output file does not exist.
	KindMissingOutput Kind = "missing_output"

	// KindError: anything else (unreadable files, internal errors).
	KindError Kind = "error"
)

// KindOf classifies err. Wrapped errors are unwrapped with errors.As.
func KindOf(err error) Kind {
	var (
		staging  *StagingError
		hang     *ExecutionHang
		execErr  *ExecutionError
		mismatch *ContentMismatch
		missing  *MissingOutputFile
	)
	switch {
	case err == nil:
		return ""
	case scenario.IsSchemaError(err):
		return KindSchema
	case scenario.IsAssertionDeclarationError(err):
		return KindAssertionDeclaration
	case errors.As(err, &staging):
		return KindStaging
	case errors.As(err, &hang):
		return KindTimeout
	case errors.As(err, &execErr), errors.Is(err, context.Canceled):
		return KindExecution
	case errors.As(err, &mismatch):
		return KindMismatch
	case errors.As(err, &missing):
		return KindMissingOutput
	default:
		return KindError
	}
}

// StagingError reports a failure preparing the staging directory. It is
// fatal for the scenario and never retried.
type StagingError struct {
	Dir string
	Op  string // "claim", "remove", "copy", "chmod", "write"
	Err error
}

func (e *StagingError) Error() string {
	return fmt.Sprintf("staging %s: %s: %v", e.Dir, e.Op, e.Err)
}

func (e *StagingError) Unwrap() error {
	return e.Err
}

// ExecutionHang reports a tool that was killed after exceeding the timeout.
type ExecutionHang struct {
	Command string
	Timeout time.Duration
}

func (e *ExecutionHang) Error() string {
	return fmt.Sprintf("%s did not terminate within %s and was killed", e.Command, e.Timeout)
}

// ExecutionError reports a tool that could not be started or was cancelled.
// A non-zero exit status is not an ExecutionError: exit codes are not
// consulted.
type ExecutionError struct {
	Command string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("running %s: %v", e.Command, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// ContentMismatch reports an output file whose content differs from the
// expectation.
type ContentMismatch struct {
	File     string
	Expected string
	Actual   string

	// Diff is a unified diff from expected to actual.
	Diff string
}

func (e *ContentMismatch) Error() string {
	return fmt.Sprintf("%s: content mismatch: expected %q, got %q", e.File, e.Expected, e.Actual)
}

// MissingOutputFile reports an expected output file that was never written.
type MissingOutputFile struct {
	File string
}

func (e *MissingOutputFile) Error() string {
	return fmt.Sprintf("%s: expected output file was not created", e.File)
}
