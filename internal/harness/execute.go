package harness

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// waitDelay bounds how long Wait blocks on I/O after the child was killed.
const waitDelay = 2 * time.Second

// Execution describes a finished child process. The harness records it for
// diagnostics only; correctness is judged by file contents.
type Execution struct {
	ExitCode int
	Stdout   string // empty when stdout was redirected to a file
	Stderr   string
	Duration time.Duration
}

// Execute runs inv inside dir and blocks until the child terminates. With a
// positive timeout the child (and, where supported, its process group) is
// killed when the bound is exceeded and an *ExecutionHang is returned.
func Execute(ctx context.Context, inv *Invocation, dir string, timeout time.Duration) (*Execution, error) {
	if len(inv.Argv) == 0 {
		return nil, &ExecutionError{Command: inv.Display, Err: errors.New("empty command")}
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, inv.Argv[0], inv.Argv[1:]...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)

	if inv.Stdin != "" {
		f, err := os.Open(filepath.Join(dir, inv.Stdin))
		if err != nil {
			return nil, &ExecutionError{Command: inv.Display, Err: err}
		}
		defer f.Close()
		cmd.Stdin = f
	}

	var stdout, stderr bytes.Buffer
	cmd.Stderr = &stderr
	if inv.Stdout != "" {
		f, err := os.Create(filepath.Join(dir, inv.Stdout))
		if err != nil {
			return nil, &ExecutionError{Command: inv.Display, Err: err}
		}
		defer f.Close()
		cmd.Stdout = f
	} else {
		cmd.Stdout = &stdout
	}

	start := time.Now()
	err := cmd.Run()
	ex := &Execution{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		ex.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return ex, &ExecutionHang{Command: inv.Display, Timeout: timeout}
	case ctx.Err() != nil:
		return ex, &ExecutionError{Command: inv.Display, Err: ctx.Err()}
	case err == nil:
		return ex, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The exit status is not part of the contract.
		return ex, nil
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		// The child exited but left descendants holding its output open.
		return ex, nil
	}
	return ex, &ExecutionError{Command: inv.Display, Err: err}
}
