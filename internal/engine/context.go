package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Context is the mutable key/value state threaded through a single run.
// It is owned exclusively by one in-flight run and never shared across
// concurrent runs, so it needs no locking. Merge is the only mutator.
type Context struct {
	values map[string]any
}

// NewContext creates a Context seeded with the caller's initial input.
// The input is deep-copied so later merges cannot alias caller state.
func NewContext(initial map[string]any) *Context {
	c := &Context{values: make(map[string]any, len(initial))}
	for k, v := range initial {
		c.values[k] = deepCopyValue(v)
	}
	return c
}

// MissingKeysError reports every required context key that is absent, not
// just the first, so the engine can emit a precise diagnostic.
type MissingKeysError struct {
	Keys []string
}

// Error implements the error interface.
func (e *MissingKeysError) Error() string {
	keys := append([]string(nil), e.Keys...)
	sort.Strings(keys)
	return fmt.Sprintf("missing context keys: %s", strings.Join(keys, ", "))
}

// Get returns the values at the given keys, failing fast with a
// MissingKeysError naming every absent key. The values are deep copies:
// an invocation mutating its input view cannot write back into the run
// context, since Merge is the only mutation entry point.
func (c *Context) Get(keys []string) (map[string]any, error) {
	out := make(map[string]any, len(keys))
	var missing []string
	for _, k := range keys {
		v, ok := c.values[k]
		if !ok {
			missing = append(missing, k)
			continue
		}
		out[k] = deepCopyValue(v)
	}
	if len(missing) > 0 {
		return nil, &MissingKeysError{Keys: missing}
	}
	return out, nil
}

// Value returns a single value and whether it is present.
func (c *Context) Value(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Len returns the number of keys currently held.
func (c *Context) Len() int {
	return len(c.values)
}

// Merge applies the given mapping to the context. Key collisions always
// overwrite: whether an overwrite is legitimate is a structural property
// of the producing node, checked at graph validation time, so merge itself
// never fails.
func (c *Context) Merge(m map[string]any) {
	for k, v := range m {
		c.values[k] = deepCopyValue(v)
	}
}

// Snapshot returns a deep copy of the current state, safe to serialize or
// hand to predicate evaluation without exposing the live map.
func (c *Context) Snapshot() map[string]any {
	return copyView(c.values)
}

// copyView deep-copies a context view. Each invocation attempt of a
// retrying node gets its own copy, so a failed attempt's mutations never
// reach the next one.
func copyView(view map[string]any) map[string]any {
	out := make(map[string]any, len(view))
	for k, v := range view {
		out[k] = deepCopyValue(v)
	}
	return out
}

// deepCopyValue copies nested maps and slices; scalars are returned as-is.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = deepCopyValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = deepCopyValue(inner)
		}
		return out
	default:
		return v
	}
}
