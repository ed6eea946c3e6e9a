// Package doctree manipulates JSON documents addressed by slash separated
// paths, the data model shared by every document store implementation.
//
// A tree is what encoding/json produces when decoding into an any:
// map[string]any, []any, string, float64, bool or nil. Writing a nil value
// deletes the path, and maps left empty by a delete are pruned, so an absent
// path and an empty object read the same way.
package doctree

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Split breaks a path into its keys, ignoring leading, trailing and
// repeated slashes. The root path ("" or "/") has no keys.
func Split(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Join builds a path from keys.
func Join(keys ...string) string {
	return strings.Join(Split(strings.Join(keys, "/")), "/")
}

// Clean normalises path to its canonical form.
func Clean(path string) string {
	return strings.Join(Split(path), "/")
}

// Related reports whether a change at one path can affect a reader of the
// other: one is a prefix of the other.
func Related(a, b string) bool {
	ka, kb := Split(a), Split(b)
	n := min(len(ka), len(kb))
	for i := range n {
		if ka[i] != kb[i] {
			return false
		}
	}
	return true
}

// Normalize converts v into tree form by round-tripping it through JSON.
func Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value is not JSON encodable: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return prune(out), nil
}

// Decode converts a tree (or a subtree) into out.
func Decode(tree any, out any) error {
	b, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// Get returns the value at path and whether it exists.
func Get(tree any, path string) (any, bool) {
	cur := tree
	for _, k := range Split(path) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[k]; !ok {
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// Set writes v (already normalised) at path and returns the new tree. Maps
// along the path are copied, never modified in place, so trees handed out
// to readers stay immutable. Intermediate non-map values are replaced.
func Set(tree any, path string, v any) (any, error) {
	keys := Split(path)
	if len(keys) == 0 {
		if v != nil {
			if _, ok := v.(map[string]any); !ok {
				return nil, fmt.Errorf("root must be an object, got %T", v)
			}
		}
		return v, nil
	}
	return set(tree, keys, v), nil
}

func set(node any, keys []string, v any) any {
	src, _ := node.(map[string]any)
	m := make(map[string]any, len(src)+1)
	for k, val := range src {
		m[k] = val
	}

	k := keys[0]
	if len(keys) == 1 {
		if v == nil {
			delete(m, k)
		} else {
			m[k] = v
		}
	} else {
		child := set(m[k], keys[1:], v)
		if child == nil {
			delete(m, k)
		} else {
			m[k] = child
		}
	}

	if len(m) == 0 {
		return nil
	}
	return m
}

func prune(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if p := prune(val); p == nil {
				delete(t, k)
			} else {
				t[k] = p
			}
		}
		if len(t) == 0 {
			return nil
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = prune(val)
		}
		return t
	default:
		return v
	}
}

// Marshal encodes the value at path as JSON, or returns nil when absent.
func Marshal(tree any, path string) (json.RawMessage, error) {
	v, ok := Get(tree, path)
	if !ok {
		return nil, nil
	}
	return json.Marshal(v)
}
