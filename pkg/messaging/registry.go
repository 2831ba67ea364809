package messaging

import (
	"fmt"
	"sort"
)

// Registry is an immutable set of messaging backends.
// It is safe for concurrent use without locking.
type Registry struct {
	backends map[string]Descriptor
	keys     []string
}

// NewRegistry builds a registry. Keys default to Backend.Key(); empty keys,
// nil backends, mismatched keys and duplicates are rejected.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{
		backends: make(map[string]Descriptor, len(descs)),
		keys:     make([]string, 0, len(descs)),
	}

	for _, desc := range descs {
		if desc.Backend == nil {
			return nil, fmt.Errorf("backend %q is nil", desc.Key)
		}
		if desc.Key == "" {
			desc.Key = desc.Backend.Key()
		}
		if desc.Key == "" {
			return nil, fmt.Errorf("backend key cannot be empty")
		}
		if desc.Key != desc.Backend.Key() {
			return nil, fmt.Errorf("descriptor key %q does not match backend key %q", desc.Key, desc.Backend.Key())
		}
		if _, exists := r.backends[desc.Key]; exists {
			return nil, fmt.Errorf("backend already registered: %s", desc.Key)
		}

		r.backends[desc.Key] = desc
		r.keys = append(r.keys, desc.Key)
	}

	sort.Strings(r.keys)
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error
func MustRegistry(descs ...Descriptor) *Registry {
	r, err := NewRegistry(descs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the backend for key if it is visible. Keys match exactly.
func (r *Registry) Resolve(key string, extraEnabled bool) (Backend, error) {
	desc, ok := r.backends[key]
	if !ok || !visible(desc, extraEnabled) {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotFound, key)
	}
	return desc.Backend, nil
}

// Visible returns the descriptors visible under the flag, sorted by key
func (r *Registry) Visible(extraEnabled bool) []Descriptor {
	result := make([]Descriptor, 0, len(r.keys))
	for _, key := range r.keys {
		if desc := r.backends[key]; visible(desc, extraEnabled) {
			result = append(result, desc)
		}
	}
	return result
}

// VisibleKeys returns the keys visible under the flag, sorted
func (r *Registry) VisibleKeys(extraEnabled bool) []string {
	descs := r.Visible(extraEnabled)
	keys := make([]string, len(descs))
	for i, desc := range descs {
		keys[i] = desc.Key
	}
	return keys
}

// Len returns the number of registered backends, visible or not
func (r *Registry) Len() int {
	return len(r.keys)
}

func visible(desc Descriptor, extraEnabled bool) bool {
	return desc.DefaultEnabled || extraEnabled
}
