package harness

import (
	"runtime"
	"strings"
)

// ExeSuffix is appended to the tool name on Windows.
const ExeSuffix = ".exe"

// Platform captures the operating-system differences in staging and
// invocation.
type Platform struct {
	GOOS string
}

// CurrentPlatform returns the platform the harness runs on.
func CurrentPlatform() Platform {
	return Platform{GOOS: runtime.GOOS}
}

// IsWindows reports whether the platform is Windows.
func (p Platform) IsWindows() bool {
	return p.GOOS == "windows"
}

// BinaryName is the tool's file name inside the build output.
func (p Platform) BinaryName(tool string) string {
	if p.IsWindows() {
		return tool + ExeSuffix
	}
	return tool
}

// ResolveBinary returns how a command line refers to the staged tool:
// "findany.exe" on Windows, "./findany" elsewhere so the shell runs the
// staged copy rather than one found on PATH.
func (p Platform) ResolveBinary(tool string) string {
	if p.IsWindows() {
		return tool + ExeSuffix
	}
	return "./" + tool
}

// ShellCommand returns the argument vector that runs line through the
// platform shell.
func (p Platform) ShellCommand(line string) []string {
	if p.IsWindows() {
		return []string{"cmd.exe", "/c", line}
	}
	return []string{"sh", "-c", line}
}

// SubstituteTool replaces every standalone occurrence of tool in line with
// ref. An occurrence is standalone when it is bounded by the start or end of
// the line, whitespace, or one of the shell operators ;|&()<>.
//
//	SubstituteTool("findany --help > output", "findany", "./findany")
//	  == "./findany --help > output"
func SubstituteTool(line, tool, ref string) string {
	if tool == "" {
		return line
	}

	var b strings.Builder
	rest := line
	for {
		i := strings.Index(rest, tool)
		if i < 0 {
			b.WriteString(rest)
			return b.String()
		}

		end := i + len(tool)
		before := len(line) - len(rest) + i // index in line
		if isBoundary(line, before-1) && isBoundary(line, before+len(tool)) {
			b.WriteString(rest[:i])
			b.WriteString(ref)
		} else {
			b.WriteString(rest[:end])
		}
		rest = rest[end:]
	}
}

// isBoundary reports whether line[i] delimits a word. Positions outside the
// line count as boundaries.
func isBoundary(line string, i int) bool {
	if i < 0 || i >= len(line) {
		return true
	}
	return strings.IndexByte(" \t\r\n;|&()<>", line[i]) >= 0
}
