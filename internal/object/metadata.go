package object

import (
	"slices"

	"github.com/roach88/objcore/internal/variant"
)

// metadata is an insertion-ordered map. Overwriting keeps a key's position.
type metadata struct {
	values map[string]variant.Value
	keys   []string
}

func (m *metadata) set(key string, v variant.Value) {
	if m.values == nil {
		m.values = make(map[string]variant.Value)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *metadata) get(key string) (variant.Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *metadata) remove(key string) bool {
	if _, ok := m.values[key]; !ok {
		return false
	}
	delete(m.values, key)
	if i := slices.Index(m.keys, key); i >= 0 {
		m.keys = slices.Delete(m.keys, i, i+1)
	}
	return true
}

func (m *metadata) list() []string {
	return slices.Clone(m.keys)
}

func (m *metadata) len() int {
	return len(m.keys)
}

func (m *metadata) reset() {
	m.values = nil
	m.keys = nil
}

// SetMeta stores value under key, keeping the key's position if it already
// exists. Keys are taken verbatim. Storing Nil removes the entry.
func (o *Object) SetMeta(key string, value variant.Value) {
	if o.isFreed("set_meta") {
		return
	}
	if variant.IsNil(value) {
		o.meta.remove(key)
		return
	}
	o.meta.set(key, value)
}

// GetMeta returns the value stored under key, or Nil if there is none.
func (o *Object) GetMeta(key string) variant.Value {
	return o.GetMetaOr(key, variant.Nil{})
}

// GetMetaOr returns the value stored under key, or def if there is none.
func (o *Object) GetMetaOr(key string, def variant.Value) variant.Value {
	if v, ok := o.meta.get(key); ok {
		return v
	}
	return variant.Normalize(def)
}

// HasMeta reports whether a value is stored under key.
func (o *Object) HasMeta(key string) bool {
	_, ok := o.meta.get(key)
	return ok
}

// RemoveMeta deletes key. Removing an absent key does nothing.
func (o *Object) RemoveMeta(key string) {
	o.meta.remove(key)
}

// GetMetaList returns the metadata keys in insertion order. The slice is a
// snapshot.
func (o *Object) GetMetaList() []string {
	return o.meta.list()
}
