package document

import (
	"bytes"
	"encoding/json"
)

// Map is a string-keyed mapping that preserves insertion order.
type Map struct {
	items []MapItem
}

// MapItem is a single key/value pair of a Map.
type MapItem struct {
	Key   string
	Value any
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{}
}

// NewMapWithItems returns a Map holding items in the given order.
func NewMapWithItems(items ...MapItem) *Map {
	return &Map{items: items}
}

// Set stores value under key. An existing key keeps its position.
func (m *Map) Set(key string, value any) {
	for i := range m.items {
		if m.items[i].Key == key {
			m.items[i].Value = value
			return
		}
	}
	m.items = append(m.items, MapItem{Key: key, Value: value})
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	for _, item := range m.items {
		if item.Key == key {
			return item.Value, true
		}
	}
	return nil, false
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (m *Map) Delete(key string) bool {
	for i, item := range m.items {
		if item.Key == key {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return true
		}
	}
	return false
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, len(m.items))
	for _, item := range m.items {
		keys = append(keys, item.Key)
	}
	return keys
}

// Items returns a copy of the key/value pairs in insertion order.
func (m *Map) Items() []MapItem {
	items := make([]MapItem, len(m.items))
	copy(items, m.items)
	return items
}

// Iterate calls fn for every pair in insertion order.
func (m *Map) Iterate(fn func(key string, value any)) {
	for _, item := range m.items {
		fn(item.Key, item.Value)
	}
}

// IterateErr is like Iterate but stops at the first error.
func (m *Map) IterateErr(fn func(key string, value any) error) error {
	for _, item := range m.items {
		if err := fn(item.Key, item.Value); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of pairs.
func (m *Map) Len() int { return len(m.items) }

// MarshalJSON encodes the map as a JSON object with keys in insertion order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, item := range m.items {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(item.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshalNoEscape(item.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RawExpr is template source that must reach the serialized output verbatim.
// The YAML printer writes it without quoting so that the template engine sees
// its delimiters when the generated file is rendered later.
type RawExpr string

// MarshalJSON encodes the expression as a plain JSON string.
func (r RawExpr) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(string(r))
}

// marshalNoEscape is json.Marshal without HTML escaping.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
