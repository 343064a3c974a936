package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFile writes content to root/rel, creating parent directories.
func WriteFile(t testing.TB, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// WriteTool writes a POSIX shell script named name into dir and returns its
// path. The script is deliberately written without executable bits so tests
// also cover the harness restoring them during staging.
func WriteTool(t testing.TB, dir, name, body string) string {
	t.Helper()
	return WriteFile(t, dir, name, "#!/bin/sh\n"+body+"\n")
}

// BuildDir creates a build output directory holding a fake tool and returns
// it.
func BuildDir(t testing.TB, tool, body string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "build")
	WriteTool(t, dir, tool, body)
	return dir
}

// FakeFindany is a shell stand-in for the tool. It prints its usage for
// --help and otherwise filters standard input by the substrings file given
// as the last argument, like the real tool does for the common cases.
const FakeFindany = `case "$1" in
--help)
	echo "usage: findany ..."
	exit 0
	;;
-i)
	shift
	flags=-i
	;;
esac
if [ $# -lt 1 ]; then
	echo "findany: missing substrings file" >&2
	exit 2
fi
printf '%s' "$(grep -F $flags -f "$1")"`
