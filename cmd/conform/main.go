// Command conform runs data-driven conformance scenarios against a built
// command-line tool.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/conform/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "conform: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
