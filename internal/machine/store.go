package machine

import (
	"fmt"
	"sync"
)

// UnknownKeyError reports a read of a path that has never been written.
type UnknownKeyError struct {
	Key string
}

func (e UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown key %q", e.Key)
}

// Store is the shared machine state container. Entries are keyed by
// canonical path and hold opaque scalar values; type semantics belong to
// the handlers, not the store.
//
// Reads and writes of a single path are atomic, and writes to disjoint
// paths do not block each other. Concurrent writes to the same path
// resolve by last-write-wins.
type Store struct {
	entries sync.Map // canonical path string -> string value
}

// NewStore creates an empty machine state store.
func NewStore() *Store {
	return &Store{}
}

// Set writes value at the canonical path, replacing any previous value.
func (s *Store) Set(p Path, value string) {
	s.entries.Store(p.String(), value)
}

// Get reads the value at the canonical path.
func (s *Store) Get(p Path) (string, error) {
	v, ok := s.entries.Load(p.String())
	if !ok {
		return "", UnknownKeyError{Key: p.String()}
	}
	return v.(string), nil
}

// Has reports whether the path has a value.
func (s *Store) Has(p Path) bool {
	_, ok := s.entries.Load(p.String())
	return ok
}

// Len returns the number of entries currently held.
func (s *Store) Len() int {
	n := 0
	s.entries.Range(func(any, any) bool { n++; return true })
	return n
}

// Range calls fn for every entry until fn returns false. The snapshot
// semantics are those of sync.Map: entries written concurrently may or
// may not be visited.
func (s *Store) Range(fn func(key, value string) bool) {
	s.entries.Range(func(k, v any) bool {
		return fn(k.(string), v.(string))
	})
}
