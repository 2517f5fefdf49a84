// ABOUTME: Metadata path value type
// ABOUTME: Slash-separated, immutable, comparable element addresses

package metapath

import "strings"

// Wildcard is the pattern segment that matches any single child name.
const Wildcard = "*"

// Path is a posix-style, slash-separated element path inside a metadata
// store. The empty path addresses the dataset itself. A Path is immutable
// and comparable with ==; construction normalizes duplicate, leading and
// trailing slashes, so equal paths always compare equal.
type Path string

// New builds a normalized Path from a raw string.
func New(raw string) Path {
	parts := make([]string, 0, 8)
	for _, segment := range strings.Split(raw, "/") {
		if segment == "" || segment == "." {
			continue
		}
		parts = append(parts, segment)
	}
	return Path(strings.Join(parts, "/"))
}

// FromSegments builds a Path from individual segments.
func FromSegments(segments ...string) Path {
	return New(strings.Join(segments, "/"))
}

// IsEmpty reports whether the path addresses the dataset itself.
func (p Path) IsEmpty() bool {
	return p == ""
}

// Segments returns the path split into its segments. The empty path has
// no segments.
func (p Path) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), "/")
}

// Join appends another path, yielding "p/other".
func (p Path) Join(other Path) Path {
	if p == "" {
		return other
	}
	if other == "" {
		return p
	}
	return p + "/" + other
}

// JoinSegment appends a single child name.
func (p Path) JoinSegment(name string) Path {
	return p.Join(New(name))
}

// Head returns the first segment and the remainder of the path. Calling
// Head on the empty path returns ("", "").
func (p Path) Head() (string, Path) {
	if p == "" {
		return "", ""
	}
	idx := strings.IndexByte(string(p), '/')
	if idx < 0 {
		return string(p), ""
	}
	return string(p[:idx]), p[idx+1:]
}

func (p Path) String() string {
	return string(p)
}
