package harness

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/roach88/conform/internal/scenario"
)

// Invocation is a concrete command ready to run inside a staging directory.
type Invocation struct {
	// Argv is the argument vector; Argv[0] is the program.
	Argv []string

	// Stdin names a staged file bound to standard input, if any.
	Stdin string

	// Stdout names a staged file receiving standard output, if any.
	// When empty, standard output is captured for diagnostics only.
	Stdout string

	// Display is the command line as a user would type it.
	Display string
}

// Build constructs the invocation for s. dir is the staging directory the
// tool was copied into.
func Build(s *scenario.Scenario, tool string, p Platform, dir string) (*Invocation, error) {
	ref := p.ResolveBinary(tool)

	switch s.Style {
	case scenario.StyleTemplate:
		line := SubstituteTool(s.Template.Command, tool, ref)
		return &Invocation{
			Argv:    p.ShellCommand(line),
			Display: line,
		}, nil

	case scenario.StyleStructured:
		args := append([]string{}, s.Structured.Args...)
		if s.Structured.Substrings != "" {
			args = append(args, scenario.SubstringsFile)
		}
		line := fmt.Sprintf("%s < %s > %s",
			quoteCommand(p, append([]string{ref}, args...)),
			scenario.InputFile, scenario.OutputFile)

		if s.Structured.Shell {
			return &Invocation{
				Argv:    p.ShellCommand(line),
				Display: line,
			}, nil
		}
		return &Invocation{
			Argv:    append([]string{filepath.Join(dir, p.BinaryName(tool))}, args...),
			Stdin:   scenario.InputFile,
			Stdout:  scenario.OutputFile,
			Display: line,
		}, nil

	default:
		return nil, fmt.Errorf("scenario %s: unsupported invocation style %s", s.Name, s.Style)
	}
}

// quoteCommand renders words as one command line for the platform shell.
func quoteCommand(p Platform, words []string) string {
	if !p.IsWindows() {
		return shellquote.Join(words...)
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = quoteWindows(w)
	}
	return strings.Join(quoted, " ")
}

// quoteWindows quotes an argument for cmd.exe and the MSVC runtime argument
// parser.
func quoteWindows(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"&|<>^()%!") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
