package document

import "slices"

// Map is a string-keyed mapping that remembers insertion order. Documents,
// filters and update payloads are all Maps.
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Len returns the number of keys. A nil Map is empty.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

// Get returns the value at key, or Undefined.
func (m *Map) Get(key string) Value {
	if m == nil {
		return Value{}
	}
	return m.values[key]
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.values[key]
	return ok
}

// Set stores v at key. An existing key keeps its position. Setting
// Undefined removes the key.
func (m *Map) Set(key string, v Value) *Map {
	if v.kind == Undefined {
		m.Delete(key)
		return m
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
	return m
}

// Delete removes key if present.
func (m *Map) Delete(key string) {
	if m == nil {
		return
	}
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	if i := slices.Index(m.keys, key); i >= 0 {
		m.keys = slices.Delete(m.keys, i, i+1)
	}
}

// Range calls fn for every key in order until fn returns false.
func (m *Map) Range(fn func(key string, v Value) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Clone returns a deep copy.
func (m *Map) Clone() *Map {
	out := NewMap()
	m.Range(func(k string, v Value) bool {
		out.Set(k, v.Clone())
		return true
	})
	return out
}

// Without returns a deep copy lacking the given key.
func (m *Map) Without(key string) *Map {
	out := m.Clone()
	out.Delete(key)
	return out
}

// Equal compares two maps by content, ignoring key order.
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	equal := true
	m.Range(func(k string, v Value) bool {
		if !o.Has(k) || !v.StrictEqual(o.Get(k)) {
			equal = false
		}
		return equal
	})
	return equal
}

// String renders m as compact JSON.
func (m *Map) String() string {
	return ObjectValue(m).String()
}
