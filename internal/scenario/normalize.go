package scenario

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lines converts a field value into its sequence form.
//
//   - nil node or YAML null: empty sequence
//   - scalar: one-element sequence holding the literal scalar text
//   - sequence of scalars: the scalars in declared order
//
// Any other shape is rejected.
func Lines(node *yaml.Node) ([]string, error) {
	node = resolve(node)
	if isNull(node) {
		return []string{}, nil
	}

	switch node.Kind {
	case yaml.ScalarNode:
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		lines := make([]string, 0, len(node.Content))
		for i, item := range node.Content {
			item = resolve(item)
			if isNull(item) {
				// A bare "-" is an empty line.
				lines = append(lines, "")
				continue
			}
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("item %d: expected a scalar, got %s", i, kindName(item.Kind))
			}
			lines = append(lines, item.Value)
		}
		return lines, nil
	default:
		return nil, fmt.Errorf("expected a string or a list of strings, got %s", kindName(node.Kind))
	}
}

// Normalize converts a field value into file content: the lines of the value
// joined by newlines. No trailing newline is added. Normalizing a scalar
// holding already-normalized content returns that content unchanged.
func Normalize(node *yaml.Node) (string, error) {
	lines, err := Lines(node)
	if err != nil {
		return "", err
	}
	return Join(lines), nil
}

// Join joins lines with "\n", preserving order.
func Join(lines []string) string {
	return strings.Join(lines, "\n")
}

// resolve follows aliases so anchors can be reused across fields.
func resolve(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}

func isNull(node *yaml.Node) bool {
	if node == nil || node.Kind == 0 {
		return true
	}
	return node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null"
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "list"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "nothing"
	}
}
