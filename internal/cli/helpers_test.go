package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/conform/internal/testutil"
)

// project is a temporary layout with a conform.yaml, a cases directory and
// a build directory holding a fake tool.
type project struct {
	root   string
	cases  string
	build  string
	config string
}

func newProject(t *testing.T, toolBody string) *project {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are POSIX shell scripts")
	}

	root := t.TempDir()
	p := &project{
		root:   root,
		cases:  filepath.Join(root, "cases"),
		build:  filepath.Join(root, "build"),
		config: filepath.Join(root, "conform.yaml"),
	}
	require.NoError(t, os.MkdirAll(p.cases, 0o755))
	testutil.WriteTool(t, p.build, "findany", toolBody)
	testutil.WriteFile(t, root, "conform.yaml", "cases: cases\nbuild: build\nstaging: tmp\ntimeout: 20s\n")
	return p
}

func (p *project) write(t *testing.T, rel, doc string) {
	t.Helper()
	testutil.WriteFile(t, p.cases, rel, doc)
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// decodeData unmarshals a JSON envelope and decodes its data into out.
func decodeData(t *testing.T, raw string, out any) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
	return resp
}

const (
	helpDoc = `cmd: findany --help > output
assert:
  output: ["usage: findany ...", ""]
`
	ignoreCaseDoc = `input: [apple, Banana]
substrings: an
args: ["-i"]
output: Banana
`
	wrongDoc = `cmd: findany --help > output
assert:
  output: "nope"
`
)
