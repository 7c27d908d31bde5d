package waitlistform

import (
	"fmt"
	"maps"
)

// Fields is an immutable snapshot of form values. Every update yields a new snapshot.
type Fields struct {
	values map[string]string
}

// NewFields returns a snapshot with every key of def set to "".
func NewFields(def Definition) Fields {
	values := make(map[string]string, len(def.Fields)+1)
	for _, key := range def.Keys() {
		values[key] = ""
	}
	return Fields{values: values}
}

func (f Fields) Get(key string) string {
	return f.values[key]
}

// With returns a copy carrying value under key. Keys outside the snapshot are rejected.
func (f Fields) With(key, value string) (Fields, error) {
	if _, ok := f.values[key]; !ok {
		return f, fmt.Errorf("waitlistform: unknown field %q", key)
	}

	next := maps.Clone(f.values)
	next[key] = value
	return Fields{values: next}, nil
}

// Map returns a copy of the values, safe for the caller to mutate.
func (f Fields) Map() map[string]string {
	return maps.Clone(f.values)
}

func (f Fields) Len() int {
	return len(f.values)
}
