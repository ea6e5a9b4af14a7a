package templates

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexMissing means the top-level template index file does not exist.
	ErrIndexMissing = errors.New("template configuration not found")
	// ErrTemplateNotFound means the requested name is absent from the index
	// or its directory is missing on disk.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrSchemaMissing means the template directory has no schema file.
	ErrSchemaMissing = errors.New("template schema not found")
)

// TypeMismatchError reports an override whose value kind does not match the
// schema default for the same variable.
type TypeMismatchError struct {
	Key      string
	Expected string
	Actual   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch for template parameter %q: expected %s, got %s", e.Key, e.Expected, e.Actual)
}
