// Package machine holds the hierarchical machine state shared by every
// command handler and hardware watcher in the daemon.
package machine

import (
	"fmt"
	"strings"
)

// Separator is the canonical path separator used for storage keys.
// Operators may address the same entry with '.' (serial text form) or
// ':' (canonical form); both normalize to the same segment sequence.
const Separator = ":"

// MalformedPathError reports a raw key that cannot be normalized into at
// least one path segment.
type MalformedPathError struct {
	Raw string
}

func (e MalformedPathError) Error() string {
	return fmt.Sprintf("malformed path %q", e.Raw)
}

// Path is the canonical, separator-independent address of a store entry.
type Path []string

// ParsePath normalizes a raw dotted or colon-delimited key into a Path.
// Empty segments are dropped; case and segment order are preserved.
func ParsePath(raw string) (Path, error) {
	segments := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '.' || r == ':'
	})
	if len(segments) == 0 {
		return nil, MalformedPathError{Raw: raw}
	}
	return Path(segments), nil
}

// String renders the canonical form of the path.
func (p Path) String() string {
	return strings.Join(p, Separator)
}

// Equal reports whether two paths address the same entry.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}
