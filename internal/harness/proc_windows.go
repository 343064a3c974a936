//go:build windows

package harness

import "os/exec"

// configureProcess keeps the default cancellation, which terminates the
// child process.
func configureProcess(cmd *exec.Cmd) {}
