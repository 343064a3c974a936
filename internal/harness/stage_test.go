package harness

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/conform/internal/testutil"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are POSIX shell scripts")
	}
}

func TestStage_CopiesBuildOutput(t *testing.T) {
	skipOnWindows(t)

	build := testutil.BuildDir(t, "findany", "exit 0")
	testutil.WriteFile(t, build, "share/data.txt", "payload")
	dir := filepath.Join(t.TempDir(), "tmp")

	s := &Stager{BuildDir: build, Tool: "findany", Platform: CurrentPlatform()}
	require.NoError(t, s.Stage(dir))

	data, err := os.ReadFile(filepath.Join(dir, "share", "data.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	info, err := os.Stat(filepath.Join(dir, "findany"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o100, "tool should be executable after staging")
}

func TestStage_RemovesPreviousContents(t *testing.T) {
	skipOnWindows(t)

	build := testutil.BuildDir(t, "findany", "exit 0")
	dir := filepath.Join(t.TempDir(), "tmp")
	s := &Stager{BuildDir: build, Tool: "findany", Platform: CurrentPlatform()}

	require.NoError(t, s.Stage(dir))
	testutil.WriteFile(t, dir, "leftover", "from scenario A")
	testutil.WriteFile(t, dir, "nested/leftover", "from scenario A")

	require.NoError(t, s.Stage(dir))
	assert.NoFileExists(t, filepath.Join(dir, "leftover"))
	assert.NoDirExists(t, filepath.Join(dir, "nested"))
	assert.FileExists(t, filepath.Join(dir, "findany"))
}

func TestStage_DoesNotTouchBuildDir(t *testing.T) {
	skipOnWindows(t)

	build := testutil.BuildDir(t, "findany", "exit 0")
	dir := filepath.Join(t.TempDir(), "tmp")
	s := &Stager{BuildDir: build, Tool: "findany", Platform: CurrentPlatform()}

	require.NoError(t, s.Stage(dir))
	require.NoError(t, WriteInputs(dir, map[string]string{"input": "x"}))

	assert.NoFileExists(t, filepath.Join(build, "input"))
	info, err := os.Stat(filepath.Join(build, "findany"))
	require.NoError(t, err)
	assert.Zero(t, info.Mode().Perm()&0o111, "build copy keeps its original mode")
}

func TestStage_MissingBuildDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tmp")
	s := &Stager{BuildDir: filepath.Join(t.TempDir(), "nope"), Tool: "findany", Platform: CurrentPlatform()}

	err := s.Stage(dir)
	require.Error(t, err)

	var staging *StagingError
	require.True(t, errors.As(err, &staging))
	assert.Equal(t, "copy", staging.Op)
	assert.Equal(t, KindStaging, KindOf(err))
}

func TestStage_BuildDirIsFile(t *testing.T) {
	file := testutil.WriteFile(t, t.TempDir(), "build", "not a dir")
	s := &Stager{BuildDir: file, Tool: "findany", Platform: CurrentPlatform()}

	err := s.Stage(filepath.Join(t.TempDir(), "tmp"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a directory")
}

func TestStage_MissingToolBinary(t *testing.T) {
	skipOnWindows(t)

	build := t.TempDir()
	testutil.WriteFile(t, build, "README", "no binary here")
	s := &Stager{BuildDir: build, Tool: "findany", Platform: Platform{GOOS: "linux"}}

	err := s.Stage(filepath.Join(t.TempDir(), "tmp"))
	require.Error(t, err)

	var staging *StagingError
	require.True(t, errors.As(err, &staging))
	assert.Equal(t, "chmod", staging.Op)
}

func TestStage_WindowsSkipsChmod(t *testing.T) {
	build := t.TempDir()
	testutil.WriteFile(t, build, "README", "no binary here")
	s := &Stager{BuildDir: build, Tool: "findany", Platform: Platform{GOOS: "windows"}}

	require.NoError(t, s.Stage(filepath.Join(t.TempDir(), "tmp")))
}

func TestWriteInputs(t *testing.T) {
	dir := t.TempDir()

	err := WriteInputs(dir, map[string]string{
		"input":        "apple\nbanana",
		"substrings":   "an",
		"data/sub.txt": "",
	})
	require.NoError(t, err)

	for name, want := range map[string]string{
		"input":        "apple\nbanana",
		"substrings":   "an",
		"data/sub.txt": "",
	} {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		require.NoError(t, err, name)
		assert.Equal(t, want, string(data), name)
	}
}
