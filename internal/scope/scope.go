// Copyright 2025 James Ross
// Package scope merges and extracts a multi-tenancy scope entry from job
// metadata. A scope is a (type, id) pair, optionally carrying tags; at
// most one scope type is ever declared on a runtime (enforced by the
// runtime builder, not this package).
package scope

// MetadataKey is the single reserved metadata key scope is stored under.
// Other metadata keys are never read or mutated by this package.
const MetadataKey = "__igniter_scope__"

// Entry is a single scope value injected into job metadata.
type Entry struct {
	Type string
	// ID is the scope identifier. It is stored as provided: a numeric ID
	// stays a number, a string ID stays a string. Comparisons use Equal,
	// not string coercion.
	ID   any
	Tags []string
}

// Equal compares two entries by (Type, ID); Tags are not part of
// identity.
func (e Entry) Equal(other Entry) bool {
	return e.Type == other.Type && e.ID == other.ID
}

// Merge returns a copy of metadata with scope recorded under
// MetadataKey. If scope is nil, metadata is returned unmodified — no
// other key is ever touched. The input map is never mutated.
func Merge(metadata map[string]any, s *Entry) map[string]any {
	if s == nil {
		return metadata
	}
	out := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	out[MetadataKey] = *s
	return out
}

// Extract pulls the scope entry back out of metadata, if any.
func Extract(metadata map[string]any) (Entry, bool) {
	if metadata == nil {
		return Entry{}, false
	}
	v, ok := metadata[MetadataKey]
	if !ok {
		return Entry{}, false
	}
	e, ok := v.(Entry)
	return e, ok
}
