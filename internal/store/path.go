package store

import (
	"fmt"
	"strings"
)

// Paths address records hierarchically, segments separated by '/', e.g.
// users/01J.../polygons/01K... . Segments are non-empty and never contain
// slashes or whitespace-only runs.

// ValidatePath checks that a path is well formed.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	if strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return fmt.Errorf("path %q must not start or end with '/'", path)
	}
	for _, seg := range strings.Split(path, "/") {
		if strings.TrimSpace(seg) == "" {
			return fmt.Errorf("path %q contains an empty segment", path)
		}
	}
	return nil
}

// Join concatenates path segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// ancestors returns the path itself followed by every ancestor up to the
// root, e.g. a/b/c -> [a/b/c, a/b, a]. Subscriptions on any of these paths
// observe a write at the leaf.
func ancestors(path string) []string {
	out := []string{path}
	for {
		i := strings.LastIndexByte(path, '/')
		if i < 0 {
			return out
		}
		path = path[:i]
		out = append(out, path)
	}
}

// relativeTo strips the parent prefix from a descendant path.
func relativeTo(parent, descendant string) (string, bool) {
	prefix := parent + "/"
	if !strings.HasPrefix(descendant, prefix) {
		return "", false
	}
	return descendant[len(prefix):], true
}
