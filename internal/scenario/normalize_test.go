package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// fieldNode parses `v: <src>` and returns the node for v.
func fieldNode(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("v: "+src), &doc))
	return doc.Content[0].Content[1]
}

// scalarNode builds a plain string scalar as if decoded from YAML.
func scalarNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func TestNormalize_Absent(t *testing.T) {
	got, err := Normalize(nil)
	require.NoError(t, err)
	assert.Equal(t, "", got)

	got, err = Normalize(fieldNode(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "", got)

	got, err = Normalize(fieldNode(t, "~"))
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestNormalize_EmptyList(t *testing.T) {
	got, err := Normalize(fieldNode(t, "[]"))
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestNormalize_Scalar(t *testing.T) {
	got, err := Normalize(fieldNode(t, "apple"))
	require.NoError(t, err)
	assert.Equal(t, "apple", got)
}

func TestNormalize_ScalarKeepsLiteralText(t *testing.T) {
	got, err := Normalize(fieldNode(t, "007"))
	require.NoError(t, err)
	assert.Equal(t, "007", got)

	got, err = Normalize(fieldNode(t, "true"))
	require.NoError(t, err)
	assert.Equal(t, "true", got)
}

func TestNormalize_QuotedEmptyString(t *testing.T) {
	got, err := Normalize(fieldNode(t, `""`))
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestNormalize_ScalarEqualsSingletonList(t *testing.T) {
	for _, v := range []string{"apple", "usage: findany ...", "", " padded "} {
		scalar, err := Normalize(scalarNode(v))
		require.NoError(t, err)

		list, err := Normalize(&yaml.Node{Kind: yaml.SequenceNode, Content: []*yaml.Node{scalarNode(v)}})
		require.NoError(t, err)

		assert.Equal(t, scalar, list, "value %q", v)
	}
}

func TestNormalize_ListPreservesOrder(t *testing.T) {
	got, err := Normalize(fieldNode(t, "[zebra, apple, mango]"))
	require.NoError(t, err)
	assert.Equal(t, "zebra\napple\nmango", got)
}

func TestNormalize_NoTrailingNewline(t *testing.T) {
	got, err := Normalize(fieldNode(t, "[a, b]"))
	require.NoError(t, err)
	assert.Equal(t, "a\nb", got)

	// An explicit empty last item produces the trailing newline.
	got, err = Normalize(fieldNode(t, `[a, b, ""]`))
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", got)
}

func TestNormalize_NullItemIsEmptyLine(t *testing.T) {
	got, err := Normalize(fieldNode(t, "[a, ~, b]"))
	require.NoError(t, err)
	assert.Equal(t, "a\n\nb", got)
}

func TestNormalize_Idempotent(t *testing.T) {
	shapes := []string{"", "~", "apple", "[apple]", "[apple, banana]", `[a, "", b]`, "[]", `"multi\nline"`}
	for _, src := range shapes {
		t.Run(src, func(t *testing.T) {
			once, err := Normalize(fieldNode(t, src))
			require.NoError(t, err)

			twice, err := Normalize(scalarNode(once))
			require.NoError(t, err)
			assert.Equal(t, once, twice)
		})
	}
}

func TestNormalize_Alias(t *testing.T) {
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("a: &lines [x, y]\nb: *lines\n"), &doc))
	got, err := Normalize(doc.Content[0].Content[3])
	require.NoError(t, err)
	assert.Equal(t, "x\ny", got)
}

func TestNormalize_RejectsMapping(t *testing.T) {
	_, err := Normalize(fieldNode(t, "{a: b}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got mapping")
}

func TestNormalize_RejectsNestedList(t *testing.T) {
	_, err := Normalize(fieldNode(t, "[a, [b]]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 1")
}

func TestLines(t *testing.T) {
	lines, err := Lines(fieldNode(t, "[-i, --help]"))
	require.NoError(t, err)
	assert.Equal(t, []string{"-i", "--help"}, lines)

	lines, err = Lines(fieldNode(t, "-i"))
	require.NoError(t, err)
	assert.Equal(t, []string{"-i"}, lines)

	lines, err = Lines(nil)
	require.NoError(t, err)
	assert.Empty(t, lines)
}
