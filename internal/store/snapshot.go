package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Snapshot is the value observed at a path at one point in time. An absent
// path yields a snapshot with Exists() == false; callers treat that as an
// empty collection, never as an error.
type Snapshot struct {
	Path  string
	value json.RawMessage
}

// NewSnapshot builds a snapshot from raw JSON. A nil value means absent.
func NewSnapshot(path string, value json.RawMessage) Snapshot {
	return Snapshot{Path: path, value: value}
}

// Exists reports whether any data was present at the path.
func (s Snapshot) Exists() bool {
	return len(s.value) > 0 && string(s.value) != "null"
}

// Raw returns the snapshot JSON, or nil when absent.
func (s Snapshot) Raw() json.RawMessage {
	if !s.Exists() {
		return nil
	}
	return s.value
}

// Decode unmarshals the snapshot value into v.
func (s Snapshot) Decode(v any) error {
	if !s.Exists() {
		return fmt.Errorf("no data at %s", s.Path)
	}
	return json.Unmarshal(s.value, v)
}

// Child is one keyed entry of a collection snapshot.
type Child struct {
	Key   string
	Value json.RawMessage
}

// Children decomposes an object snapshot into its keyed entries, ordered by
// key. Push keys are ULIDs, so key order is insertion order. An absent
// snapshot yields an empty slice.
func (s Snapshot) Children() ([]Child, error) {
	if !s.Exists() {
		return nil, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(s.value, &m); err != nil {
		return nil, fmt.Errorf("snapshot at %s is not a collection: %w", s.Path, err)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Child, 0, len(keys))
	for _, k := range keys {
		out = append(out, Child{Key: k, Value: m[k]})
	}
	return out, nil
}

// row is one stored record used during snapshot assembly.
type row struct {
	path  string
	value json.RawMessage
}

// assemble merges the exact-path row and all descendant rows into a single
// JSON value rooted at path. Descendants are grafted into the object by their
// relative segments, so users/{uid} reads include nested polygons and profile
// blocks the way a hierarchical store reports them.
func assemble(path string, rows []row) json.RawMessage {
	var root json.RawMessage
	tree := map[string]any{}

	for _, r := range rows {
		if r.path == path {
			root = r.value
			continue
		}
		rel, ok := relativeTo(path, r.path)
		if !ok {
			continue
		}
		graft(tree, strings.Split(rel, "/"), r.value)
	}

	if len(tree) == 0 {
		return root
	}

	// merge the exact-path object fields under the grafted children
	if len(root) > 0 {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(root, &fields); err == nil {
			for k, v := range fields {
				if _, taken := tree[k]; !taken {
					tree[k] = v
				}
			}
		}
	}

	merged, err := json.Marshal(tree)
	if err != nil {
		return root
	}
	return merged
}

func graft(tree map[string]any, segments []string, value json.RawMessage) {
	head := segments[0]
	if len(segments) == 1 {
		tree[head] = value
		return
	}
	sub, ok := tree[head].(map[string]any)
	if !ok {
		sub = map[string]any{}
		tree[head] = sub
	}
	graft(sub, segments[1:], value)
}
