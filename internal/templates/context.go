package templates

import (
	"sort"
	"strings"
)

// FallbackProjectName is used when neither the schema nor the overrides
// produce a non-empty project_name.
const FallbackProjectName = "project"

// Kind is the closed set of schema value shapes. Overrides are validated
// against kinds rather than raw runtime types.
type Kind string

const (
	KindString     Kind = "string"
	KindBool       Kind = "boolean"
	KindNumber     Kind = "number"
	KindChoiceList Kind = "choice list"
	KindChoiceMap  Kind = "choice map"
	KindUnknown    Kind = "unknown"
)

// KindOf classifies a JSON-decoded value.
func KindOf(v any) Kind {
	switch v.(type) {
	case string:
		return KindString
	case bool:
		return KindBool
	case float64:
		return KindNumber
	case []any:
		return KindChoiceList
	case map[string]any:
		return KindChoiceMap
	default:
		return KindUnknown
	}
}

// Builder merges caller-supplied overrides onto a template's declared
// defaults. Merge policy is strict: an override for a schema-declared
// variable must match the collapsed default's kind or the build fails with
// TypeMismatchError; overrides for undeclared variables are silently
// dropped; reserved keys are always ignored.
type Builder struct {
	registry *Registry
}

// NewBuilder creates a context builder over the given registry.
func NewBuilder(registry *Registry) *Builder {
	return &Builder{registry: registry}
}

// Build returns the render context for a named template: schema defaults
// (reserved keys removed, choice defaults collapsed) overridden by the
// validated overrides. The final context always carries a non-empty
// project_name; fallbackName is used when the schema and overrides supply
// none, and itself falls back to the fixed "project" literal.
func (b *Builder) Build(name string, overrides map[string]any, fallbackName string) (map[string]any, error) {
	schema, err := b.registry.LoadSchema(name)
	if err != nil {
		return nil, err
	}

	context := collapseDefaults(StripReserved(schema))

	for key, value := range overrides {
		if _, reserved := reservedKeys[key]; reserved {
			continue
		}
		current, declared := context[key]
		if !declared {
			continue
		}
		expected, actual := KindOf(current), KindOf(value)
		if expected != actual {
			return nil, &TypeMismatchError{Key: key, Expected: string(expected), Actual: string(actual)}
		}
		context[key] = value
	}

	if !hasProjectName(context) {
		if fallbackName == "" {
			fallbackName = FallbackProjectName
		}
		context["project_name"] = fallbackName
	}
	return context, nil
}

// collapseDefaults reduces enumerable defaults to a single value the way
// the rendering engine would pick them non-interactively: a choice list
// collapses to its first element, a choice map to its first key in sorted
// order.
func collapseDefaults(defaults map[string]any) map[string]any {
	out := make(map[string]any, len(defaults))
	for k, v := range defaults {
		switch val := v.(type) {
		case []any:
			if len(val) > 0 {
				out[k] = val[0]
				continue
			}
			out[k] = v
		case map[string]any:
			if len(val) > 0 {
				keys := make([]string, 0, len(val))
				for choice := range val {
					keys = append(keys, choice)
				}
				sort.Strings(keys)
				out[k] = keys[0]
				continue
			}
			out[k] = v
		default:
			out[k] = v
		}
	}
	return out
}

func hasProjectName(context map[string]any) bool {
	v, ok := context["project_name"]
	if !ok {
		return false
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}
