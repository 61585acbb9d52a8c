// Package ini parses sectionless slicer configuration text ("key = value"
// lines) into an ordered field set.
package ini

import (
	"iter"
	"strings"
)

// Value is a raw field value: either a string (possibly empty) or the null
// marker written as the literal nil in the source.
type Value struct {
	raw  string
	null bool
}

// String returns a string value.
func String(s string) Value { return Value{raw: s} }

// Null returns the null marker.
func Null() Value { return Value{null: true} }

// IsNull reports whether v is the null marker.
func (v Value) IsNull() bool { return v.null }

// String returns the raw text ("" for the null marker).
func (v Value) String() string { return v.raw }

// Fields is an insertion-ordered mapping from field name to raw value.
// Setting an existing key replaces its value but keeps its position.
type Fields struct {
	keys   []string
	values map[string]Value
}

// NewFields returns an empty field set.
func NewFields() *Fields {
	return &Fields{values: make(map[string]Value)}
}

// Set stores v under key.
func (f *Fields) Set(key string, v Value) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = v
}

// Get returns the value stored under key.
func (f *Fields) Get(key string) (Value, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Has reports whether key is present.
func (f *Fields) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

// Len returns the number of fields.
func (f *Fields) Len() int { return len(f.keys) }

// Keys returns field names in first-seen order.
func (f *Fields) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// All iterates fields in first-seen order.
func (f *Fields) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, k := range f.keys {
			if !yield(k, f.values[k]) {
				return
			}
		}
	}
}

// Parse turns raw text into Fields. Blank lines and lines starting with # or ;
// are skipped; lines without a "key = value" shape are dropped silently.
// The literal nil becomes the null marker and the literal "" becomes an
// empty string.
func Parse(text string) *Fields {
	fields := NewFields()
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed[0] == '#' || trimmed[0] == ';' {
			continue
		}

		key, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		fields.Set(key, parseValue(strings.TrimSpace(value)))
	}
	return fields
}

func parseValue(v string) Value {
	switch v {
	case "nil":
		return Null()
	case `""`:
		return String("")
	default:
		return String(v)
	}
}
