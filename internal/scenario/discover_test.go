package scenario

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameFor(t *testing.T) {
	root := filepath.Join("testdata", "cases")

	tests := []struct {
		rel  string
		want string
	}{
		{"basic.yaml", "basic"},
		{"help/basic.yaml", "help.basic"},
		{"a/b/c.yml", "a.b.c"},
		{"dotted.name.yaml", "dotted.name"},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			got, err := NameFor(root, filepath.Join(root, filepath.FromSlash(tt.rel)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNameFor_OutsideRoot(t *testing.T) {
	_, err := NameFor(filepath.Join("x", "cases"), filepath.Join("x", "other", "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not under")
}

func TestNameFor_EmptyName(t *testing.T) {
	root := filepath.Join("testdata", "cases")

	for _, rel := range []string{".yaml", "help/.yml"} {
		t.Run(rel, func(t *testing.T) {
			_, err := NameFor(root, filepath.Join(root, filepath.FromSlash(rel)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "empty name component")
		})
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeCase(t, dir, "b.yaml", "")
	writeCase(t, dir, "a.yml", "")
	writeCase(t, dir, "help/basic.yaml", "")
	writeCase(t, dir, "help/long.yaml", "")
	writeCase(t, dir, "notes.txt", "")

	entries, err := Discover(dir, "")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
		assert.FileExists(t, e.Path)
	}
	assert.Equal(t, []string{"a", "b", "help.basic", "help.long"}, names)
}

func TestDiscover_StableNames(t *testing.T) {
	dir := t.TempDir()
	writeCase(t, dir, "x/y.yaml", "")
	writeCase(t, dir, "z.yaml", "")

	first, err := Discover(dir, "")
	require.NoError(t, err)
	second, err := Discover(dir, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDiscover_Filter(t *testing.T) {
	dir := t.TempDir()
	writeCase(t, dir, "help/basic.yaml", "")
	writeCase(t, dir, "help/long.yaml", "")
	writeCase(t, dir, "match/ignore_case.yaml", "")

	entries, err := Discover(dir, "help.*")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "help.basic", entries[0].Name)
	assert.Equal(t, "help.long", entries[1].Name)
}

func TestDiscover_InvalidFilter(t *testing.T) {
	dir := t.TempDir()
	_, err := Discover(dir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cases directory not found")
}

func TestDiscover_Empty(t *testing.T) {
	entries, err := Discover(t.TempDir(), "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiscover_CollidingNames(t *testing.T) {
	dir := t.TempDir()
	writeCase(t, dir, "a/b.yaml", "")
	writeCase(t, dir, "a.b.yaml", "")

	_, err := Discover(dir, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario name "a.b" is used by both`)

	// The filter does not hide the collision.
	_, err = Discover(dir, "other")
	require.Error(t, err)
}

func TestDiscover_SameNameDifferentExtension(t *testing.T) {
	dir := t.TempDir()
	writeCase(t, dir, "help.yaml", "")
	writeCase(t, dir, "help.yml", "")

	_, err := Discover(dir, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"help"`)
}

func TestDiscover_HiddenExtensionOnlyDocument(t *testing.T) {
	dir := t.TempDir()
	writeCase(t, dir, "ok.yaml", "")
	writeCase(t, dir, ".yaml", "")

	_, err := Discover(dir, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty name component")
}
