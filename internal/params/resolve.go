// Package params resolves scenario parameters: it merges the default
// parameter tree with a scenario's partial overrides and decodes the result
// into a statically-shaped, validated Set.
package params

import (
	"fmt"
	"sort"
	"strings"
)

// Tree is a nested parameter mapping as read from YAML.
type Tree = map[string]any

// Resolve deep-merges overrides into defaults and returns a new tree.
// Every key of defaults is present in the result; override leaves replace
// default leaves at the same path. Keys in overrides that are absent from
// defaults fail with *UnknownParameterError. A null override keeps the
// defaults of a whole section but is rejected for a single parameter.
// Neither input is modified.
//
// Keys are visited in sorted order, so the result and the reported error do
// not depend on map iteration order.
func Resolve(defaults, overrides Tree) (Tree, error) {
	return merge("", defaults, overrides)
}

func merge(prefix string, defaults, overrides Tree) (Tree, error) {
	out := make(Tree, len(defaults))
	for _, k := range sortedKeys(defaults) {
		out[k] = deepCopy(defaults[k])
	}

	for _, k := range sortedKeys(overrides) {
		path := joinPath(prefix, k)
		def, ok := defaults[k]
		if !ok {
			return nil, &UnknownParameterError{Path: path}
		}
		ov := overrides[k]

		defTree, defIsTree := asTree(def)
		ovTree, ovIsTree := asTree(ov)
		switch {
		case defIsTree && ovIsTree:
			merged, err := merge(path, defTree, ovTree)
			if err != nil {
				return nil, err
			}
			out[k] = merged
		case defIsTree && ov != nil:
			return nil, &MalformedOverrideError{Path: path, Reason: "expected a mapping, got a value"}
		case defIsTree:
			// A null override keeps the defaults of the whole section.
		case ovIsTree:
			return nil, &MalformedOverrideError{Path: path, Reason: "expected a value, got a mapping"}
		case ov == nil:
			return nil, &MalformedOverrideError{Path: path, Reason: "null value for a parameter"}
		default:
			out[k] = deepCopy(ov)
		}
	}
	return out, nil
}

// asTree normalizes the two mapping shapes YAML decoding can produce.
func asTree(v any) (Tree, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		t := make(Tree, len(m))
		for k, val := range m {
			t[fmt.Sprint(k)] = val
		}
		return t, true
	}
	return nil, false
}

func deepCopy(v any) any {
	if t, ok := asTree(v); ok {
		out := make(Tree, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	}
	if s, ok := v.([]any); ok {
		out := make([]any, len(s))
		for i, val := range s {
			out[i] = deepCopy(val)
		}
		return out
	}
	return v
}

func sortedKeys(t Tree) []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// LeafPaths returns the dotted path of every leaf in t, sorted. An empty
// mapping counts as a leaf.
func LeafPaths(t Tree) []string {
	var paths []string
	collectLeaves("", t, &paths)
	sort.Strings(paths)
	return paths
}

func collectLeaves(prefix string, t Tree, out *[]string) {
	for k, v := range t {
		path := joinPath(prefix, k)
		if sub, ok := asTree(v); ok && len(sub) > 0 {
			collectLeaves(path, sub, out)
			continue
		}
		*out = append(*out, path)
	}
}

// Lookup returns the value at a dotted path.
func Lookup(t Tree, path string) (any, bool) {
	var cur any = t
	for _, part := range strings.Split(path, ".") {
		m, ok := asTree(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
