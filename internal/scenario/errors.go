package scenario

import (
	"errors"
	"fmt"
)

// SchemaError reports a scenario document that is not valid structured data,
// uses an unsupported key, or has a value of the wrong shape.
type SchemaError struct {
	// Path is the scenario document path.
	Path string

	// Field is the offending top-level key, if known.
	Field string

	// Message is a human-readable description.
	Message string

	// Err is the underlying decoder or schema error (optional).
	Err error
}

func (e *SchemaError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("schema error in %s: %s", e.Path, msg)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// AssertionDeclarationError reports a template-style scenario without any
// expected output. Such a scenario would pass trivially, so it is rejected
// before anything is executed.
type AssertionDeclarationError struct {
	Path string
	Name string
}

func (e *AssertionDeclarationError) Error() string {
	return fmt.Sprintf("scenario %s (%s) declares no expected outputs: add an %q block", e.Name, e.Path, KeyAssert)
}

// IsSchemaError returns true if err is or wraps a SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// IsAssertionDeclarationError returns true if err is or wraps an
// AssertionDeclarationError.
func IsAssertionDeclarationError(err error) bool {
	var ae *AssertionDeclarationError
	return errors.As(err, &ae)
}
