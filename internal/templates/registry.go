// Package templates loads the on-disk template index and per-template
// variable schemas, and merges caller overrides onto schema defaults.
package templates

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const indexFileName = "cookiecutter.json"

// Reserved schema keys hold engine-internal bookkeeping and are never
// exposed to callers or included in a render context.
var reservedKeys = map[string]struct{}{
	"__prompts__":      {},
	"_jinja2_env_vars": {},
}

// Descriptor describes one named template in the index.
type Descriptor struct {
	Path        string `json:"path"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type indexFile struct {
	Templates map[string]Descriptor `json:"templates"`
}

// Registry resolves template names against a filesystem root. All
// operations re-read from disk, so edits to the index or a schema take
// effect on the next request without a restart.
type Registry struct {
	root string
}

// NewRegistry creates a registry rooted at the templates directory.
func NewRegistry(root string) *Registry {
	return &Registry{root: root}
}

// Root returns the registry's template directory.
func (r *Registry) Root() string {
	return r.root
}

// LoadIndex returns the name → descriptor mapping from the root index file.
func (r *Registry) LoadIndex() (map[string]Descriptor, error) {
	path := filepath.Join(r.root, indexFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrIndexMissing, path)
		}
		return nil, fmt.Errorf("read template index: %w", err)
	}
	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse template index: %w", err)
	}
	if idx.Templates == nil {
		idx.Templates = map[string]Descriptor{}
	}
	return idx.Templates, nil
}

// Resolve returns the on-disk directory for a named template.
func (r *Registry) Resolve(name string) (string, error) {
	idx, err := r.LoadIndex()
	if err != nil {
		return "", err
	}
	desc, ok := idx[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	path := filepath.Join(r.root, desc.Path)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: directory %s", ErrTemplateNotFound, path)
	}
	return path, nil
}

// LoadSchema returns the named template's raw variable schema, reserved
// keys included. Callers that expose the schema use StripReserved first.
func (r *Registry) LoadSchema(name string) (map[string]any, error) {
	dir, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, indexFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrSchemaMissing, name)
		}
		return nil, fmt.Errorf("read schema for %q: %w", name, err)
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parse schema for %q: %w", name, err)
	}
	return schema, nil
}

// StripReserved returns a copy of schema without the reserved keys.
func StripReserved(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		if _, reserved := reservedKeys[k]; reserved {
			continue
		}
		out[k] = v
	}
	return out
}

// Slugify derives a machine name from a project name: lowercased,
// whitespace-split tokens joined with hyphens.
func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), "-")
}
