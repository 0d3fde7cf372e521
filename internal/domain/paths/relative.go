// Package paths holds the path primitives shared by the change validator and
// its collaborators: project-relative paths, prefix splitting, and the
// platform comparison policy used when matching names and roots.
package paths

import (
	"strings"
)

// RelativePath is an ordered sequence of components relative to a project root.
// The zero value is the empty path (the root itself). Values are immutable:
// Child always returns a new path and never aliases the receiver's storage.
type RelativePath struct {
	parts []string
}

// NewRelativePath builds a path from its components. Empty components are skipped.
func NewRelativePath(components ...string) RelativePath {
	parts := make([]string, 0, len(components))
	for _, c := range components {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return RelativePath{parts: parts}
}

// ParseRelative splits a slash- or backslash-separated relative path.
func ParseRelative(s string) RelativePath {
	s = strings.ReplaceAll(s, "\\", "/")
	return NewRelativePath(strings.Split(s, "/")...)
}

// Child returns a new path with name appended.
func (r RelativePath) Child(name string) RelativePath {
	parts := make([]string, len(r.parts), len(r.parts)+1)
	copy(parts, r.parts)
	return RelativePath{parts: append(parts, name)}
}

// Components returns a copy of the path components.
func (r RelativePath) Components() []string {
	out := make([]string, len(r.parts))
	copy(out, r.parts)
	return out
}

// Len returns the number of components.
func (r RelativePath) Len() int {
	return len(r.parts)
}

// IsEmpty reports whether the path has no components.
func (r RelativePath) IsEmpty() bool {
	return len(r.parts) == 0
}

// Name returns the last component, or "" for the empty path.
func (r RelativePath) Name() string {
	if len(r.parts) == 0 {
		return ""
	}
	return r.parts[len(r.parts)-1]
}

// String joins the components with "/" regardless of platform.
func (r RelativePath) String() string {
	return strings.Join(r.parts, "/")
}

// MarshalText encodes the path in its slash-joined form.
func (r RelativePath) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a slash-joined path.
func (r *RelativePath) UnmarshalText(b []byte) error {
	*r = ParseRelative(string(b))
	return nil
}
