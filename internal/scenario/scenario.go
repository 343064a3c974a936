package scenario

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"
)

// Reserved keys. They select the invocation style and are never staged as
// files.
const (
	KeyCommand    = "cmd"
	KeyAssert     = "assert"
	KeyInput      = "input"
	KeyOutput     = "output"
	KeySubstrings = "substrings"
	KeyArgs       = "args"
	KeyShell      = "shell"
)

// Fixed file names used by the structured-argument style.
const (
	InputFile      = "input"
	OutputFile     = "output"
	SubstringsFile = "substrings"
)

// DomainScenario separates scenario digests from any other hash.
const DomainScenario = "conform/scenario/v1"

// Style selects how a scenario's invocation is declared.
type Style int

const (
	// StyleTemplate is a literal command line with free-form input files
	// and an assert block.
	StyleTemplate Style = iota + 1
	// StyleStructured is the input/output/substrings/args form with fixed
	// file names and stdio redirection.
	StyleStructured
)

func (s Style) String() string {
	switch s {
	case StyleTemplate:
		return "template"
	case StyleStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// Template is a command line containing the tool's bare name.
type Template struct {
	Command string
}

// Structured is an explicit argument list. Substrings, when non-empty, is
// staged as SubstringsFile and passed as the trailing argument.
type Structured struct {
	Args       []string
	Substrings string
	// Shell runs the argument vector through the platform shell instead of
	// starting the tool directly.
	Shell bool
}

// Scenario is the normalized contract of one scenario document. It is
// immutable after Load.
type Scenario struct {
	// Name is derived from the document path relative to the cases root.
	Name string

	// Path is the document this scenario was loaded from.
	Path string

	Style      Style
	Template   *Template
	Structured *Structured

	// Inputs maps file names to content staged before execution.
	Inputs map[string]string

	// Outputs maps file names to the content expected after execution.
	Outputs map[string]string
}

// Load reads and normalizes the scenario document at path. root is the
// cases directory the name is derived from.
//
// Returns a *SchemaError for malformed documents and an
// *AssertionDeclarationError for template-style documents without
// expectations.
func Load(root, path string) (*Scenario, error) {
	name, err := NameFor(root, path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(name, path, data)
}

// Parse normalizes a scenario document already read into memory.
func Parse(name, path string, data []byte) (*Scenario, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, &SchemaError{Path: path, Message: "unreadable text encoding", Err: err}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return nil, &SchemaError{Path: path, Message: "invalid YAML", Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &SchemaError{Path: path, Message: "empty document"}
	}
	top := resolve(doc.Content[0])
	if top.Kind != yaml.MappingNode {
		return nil, &SchemaError{Path: path, Message: fmt.Sprintf("top level must be a mapping, got %s", kindName(top.Kind))}
	}

	fields, order, err := fieldsOf(path, top)
	if err != nil {
		return nil, err
	}

	style, err := detectStyle(path, fields)
	if err != nil {
		return nil, err
	}
	if err := validateSchema(path, style, top); err != nil {
		return nil, err
	}

	s := &Scenario{
		Name:    name,
		Path:    path,
		Style:   style,
		Inputs:  map[string]string{},
		Outputs: map[string]string{},
	}
	if style == StyleTemplate {
		err = s.buildTemplate(fields, order)
	} else {
		err = s.buildStructured(fields)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// detectStyle dispatches on which reserved keys are present.
func detectStyle(path string, fields map[string]*yaml.Node) (Style, error) {
	if _, ok := fields[KeyCommand]; ok {
		return StyleTemplate, nil
	}
	for _, k := range []string{KeyInput, KeyOutput, KeySubstrings, KeyArgs} {
		if _, ok := fields[k]; ok {
			return StyleStructured, nil
		}
	}
	return 0, &SchemaError{
		Path:    path,
		Message: fmt.Sprintf("no invocation: declare %q or %q/%q/%q/%q", KeyCommand, KeyInput, KeyOutput, KeySubstrings, KeyArgs),
	}
}

func (s *Scenario) buildTemplate(fields map[string]*yaml.Node, order []string) error {
	cmd := resolve(fields[KeyCommand])
	if cmd.Kind != yaml.ScalarNode || isNull(cmd) || cmd.Value == "" {
		return &SchemaError{Path: s.Path, Field: KeyCommand, Message: "must be a non-empty string"}
	}
	s.Template = &Template{Command: cmd.Value}

	for _, key := range order {
		if key == KeyCommand || key == KeyAssert {
			continue
		}
		if !localName(key) {
			return &SchemaError{Path: s.Path, Field: key, Message: "file name must be a relative path inside the staging directory"}
		}
		content, err := Normalize(fields[key])
		if err != nil {
			return &SchemaError{Path: s.Path, Field: key, Message: err.Error()}
		}
		s.Inputs[key] = content
	}

	if assert := resolve(fields[KeyAssert]); !isNull(assert) {
		if assert.Kind != yaml.MappingNode {
			return &SchemaError{Path: s.Path, Field: KeyAssert, Message: "must be a mapping of file name to content"}
		}
		for i := 0; i+1 < len(assert.Content); i += 2 {
			key := assert.Content[i].Value
			if !localName(key) {
				return &SchemaError{Path: s.Path, Field: KeyAssert + "." + key, Message: "file name must be a relative path inside the staging directory"}
			}
			content, err := Normalize(assert.Content[i+1])
			if err != nil {
				return &SchemaError{Path: s.Path, Field: KeyAssert + "." + key, Message: err.Error()}
			}
			s.Outputs[key] = content
		}
	}

	if len(s.Outputs) == 0 {
		return &AssertionDeclarationError{Path: s.Path, Name: s.Name}
	}
	return nil
}

func (s *Scenario) buildStructured(fields map[string]*yaml.Node) error {
	input, err := Normalize(fields[KeyInput])
	if err != nil {
		return &SchemaError{Path: s.Path, Field: KeyInput, Message: err.Error()}
	}
	output, err := Normalize(fields[KeyOutput])
	if err != nil {
		return &SchemaError{Path: s.Path, Field: KeyOutput, Message: err.Error()}
	}
	substrings, err := Normalize(fields[KeySubstrings])
	if err != nil {
		return &SchemaError{Path: s.Path, Field: KeySubstrings, Message: err.Error()}
	}
	args, err := Lines(fields[KeyArgs])
	if err != nil {
		return &SchemaError{Path: s.Path, Field: KeyArgs, Message: err.Error()}
	}

	st := &Structured{Args: args, Substrings: substrings}
	if node := resolve(fields[KeyShell]); !isNull(node) {
		if err := node.Decode(&st.Shell); err != nil {
			return &SchemaError{Path: s.Path, Field: KeyShell, Message: "must be a boolean", Err: err}
		}
	}
	s.Structured = st

	s.Inputs[InputFile] = input
	if substrings != "" {
		s.Inputs[SubstringsFile] = substrings
	}
	s.Outputs[OutputFile] = output
	return nil
}

// InputNames returns the staged file names in sorted order.
func (s *Scenario) InputNames() []string {
	return sortedKeys(s.Inputs)
}

// OutputNames returns the expected file names in sorted order.
func (s *Scenario) OutputNames() []string {
	return sortedKeys(s.Outputs)
}

// Digest is a content hash of the normalized contract. Two documents that
// normalize to the same contract share a digest.
func (s *Scenario) Digest() string {
	contract := map[string]any{
		"style":   s.Style.String(),
		"inputs":  s.Inputs,
		"outputs": s.Outputs,
	}
	if s.Template != nil {
		contract["cmd"] = s.Template.Command
	}
	if s.Structured != nil {
		contract["args"] = s.Structured.Args
		contract["shell"] = s.Structured.Shell
	}

	// encoding/json sorts map keys, which keeps the encoding stable.
	data, err := json.Marshal(contract)
	if err != nil {
		panic(fmt.Sprintf("scenario digest: %v", err))
	}

	h := sha256.New()
	h.Write([]byte(DomainScenario))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// fieldsOf indexes the top-level mapping and records the declared key order.
func fieldsOf(path string, top *yaml.Node) (map[string]*yaml.Node, []string, error) {
	fields := make(map[string]*yaml.Node, len(top.Content)/2)
	order := make([]string, 0, len(top.Content)/2)
	for i := 0; i+1 < len(top.Content); i += 2 {
		k := resolve(top.Content[i])
		if k.Kind != yaml.ScalarNode || isNull(k) {
			return nil, nil, &SchemaError{Path: path, Message: fmt.Sprintf("line %d: keys must be strings", k.Line)}
		}
		if _, dup := fields[k.Value]; dup {
			return nil, nil, &SchemaError{Path: path, Field: k.Value, Message: fmt.Sprintf("line %d: duplicate key", k.Line)}
		}
		fields[k.Value] = top.Content[i+1]
		order = append(order, k.Value)
	}
	return fields, order, nil
}

// decodeText returns UTF-8 text, honoring a UTF-8 or UTF-16 byte order mark.
// Documents saved by Windows editors often carry one.
func decodeText(data []byte) ([]byte, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	return io.ReadAll(transform.NewReader(bytes.NewReader(data), dec))
}

// localName reports whether a declared file name stays inside the staging
// directory. Both slash styles are accepted.
func localName(name string) bool {
	return name != "" && filepath.IsLocal(filepath.FromSlash(name))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
