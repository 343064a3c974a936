package scenario

import (
	_ "embed"
	"fmt"
	"strconv"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Definition names in schema.cue.
const (
	defTemplate   = "#Template"
	defStructured = "#Structured"
)

// cue.Context is not safe for concurrent use; scenarios may be loaded from
// several runner goroutines.
var (
	schemaMu    sync.Mutex
	schemaOnce  sync.Once
	schemaCtx   *cue.Context
	schemaValue cue.Value
	schemaErr   error
)

func compiledSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		schemaValue = schemaCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := schemaValue.Err(); err != nil {
			schemaErr = fmt.Errorf("compiling scenario schema: %w", err)
		}
	})
	return schemaCtx, schemaValue, schemaErr
}

// validateSchema checks the top-level mapping against the CUE definition for
// the given style. Unknown keys and wrong value shapes are reported with the
// CUE error details.
func validateSchema(path string, style Style, doc *yaml.Node) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	ctx, schema, err := compiledSchema()
	if err != nil {
		return err
	}

	def := defTemplate
	if style == StyleStructured {
		def = defStructured
	}

	data, err := nodeToValue(doc)
	if err != nil {
		return &SchemaError{Path: path, Message: "unsupported value", Err: err}
	}

	v := schema.LookupPath(cue.ParsePath(def)).Unify(ctx.Encode(data))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return &SchemaError{
			Path:    path,
			Message: fmt.Sprintf("does not match %s style", style),
			Err:     fmt.Errorf("%s", cueerrors.Details(err, nil)),
		}
	}
	return nil
}

// nodeToValue converts a YAML node to plain Go values for CUE. Scalars stay
// strings (their literal text) except nulls and booleans.
func nodeToValue(node *yaml.Node) (any, error) {
	node = resolve(node)
	if isNull(node) {
		return nil, nil
	}

	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!bool" {
			b, err := strconv.ParseBool(node.Value)
			if err == nil {
				return b, nil
			}
		}
		return node.Value, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := nodeToValue(item)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case yaml.MappingNode:
		m := make(map[string]any, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := nodeToValue(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[node.Content[i].Value] = v
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unexpected %s node", kindName(node.Kind))
	}
}
