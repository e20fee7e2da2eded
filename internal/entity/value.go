// Package entity defines the generic entity model, its canonical
// serialization, and the built-in typed entities stored by the engine.
package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrDecode marks a malformed stored payload. Callers can detect it with
// errors.Is and quarantine the offending record instead of crashing.
var ErrDecode = errors.New("malformed entity payload")

// ErrInvalid marks an entity that fails validation before it is stored.
var ErrInvalid = errors.New("invalid entity")

// Kind identifies a Value variant.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

// Value is a closed union over the structured value variants allowed in
// entity payloads. Keeping the set closed is what makes the canonical
// encoding deterministic.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []Value
	m    *Map
}

func Null() Value             { return Value{kind: KindNull} }
func String(s string) Value   { return Value{kind: KindString, str: s} }
func Number(n float64) Value  { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func List(vs ...Value) Value  { return Value{kind: KindList, list: vs} }
func MapValue(m *Map) Value   { return Value{kind: KindMap, m: m} }

// Kind reports which variant this value holds.
func (v Value) Kind() Kind { return v.kind }

func (v Value) AsString() (string, bool)  { return v.str, v.kind == KindString }
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }
func (v Value) AsBool() (bool, bool)      { return v.b, v.kind == KindBool }
func (v Value) AsList() ([]Value, bool)   { return v.list, v.kind == KindList }
func (v Value) AsMap() (*Map, bool)       { return v.m, v.kind == KindMap }

// Equal reports deep equality between two values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(o.m)
	}
	return true // both null
}

// Map is an ordered string-to-Value mapping. Keys are kept sorted so the
// canonical encoding of a map is independent of insertion order.
type Map struct {
	keys []string
	vals map[string]Value
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{vals: make(map[string]Value)}
}

// Set inserts or replaces the value for key.
func (m *Map) Set(key string, v Value) *Map {
	if _, ok := m.vals[key]; !ok {
		i := sort.SearchStrings(m.keys, key)
		m.keys = append(m.keys, "")
		copy(m.keys[i+1:], m.keys[i:])
		m.keys[i] = key
	}
	m.vals[key] = v
	return m
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.vals[key]
	return v, ok
}

// Delete removes key if present.
func (m *Map) Delete(key string) {
	if _, ok := m.vals[key]; !ok {
		return
	}
	delete(m.vals, key)
	i := sort.SearchStrings(m.keys, key)
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
}

// Keys returns the keys in canonical (sorted) order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Equal reports deep equality between two maps.
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	for _, k := range m.keys {
		ov, ok := o.Get(k)
		if !ok || !m.vals[k].Equal(ov) {
			return false
		}
	}
	return true
}

// encode writes the canonical JSON form of v. Strings are escaped through
// encoding/json so the output stays valid JSON for any input.
func (v Value) encode(buf *bytes.Buffer) {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindString:
		b, _ := json.Marshal(v.str)
		buf.Write(b)
	case KindNumber:
		buf.WriteString(strconv.FormatFloat(v.num, 'g', -1, 64))
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindList:
		buf.WriteByte('[')
		for i, e := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			e.encode(buf)
		}
		buf.WriteByte(']')
	case KindMap:
		v.m.encode(buf)
	}
}

func (m *Map) encode(buf *bytes.Buffer) {
	buf.WriteByte('{')
	if m != nil {
		for i, k := range m.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			m.vals[k].encode(buf)
		}
	}
	buf.WriteByte('}')
}

// fromAny converts a decoded JSON value (as produced by encoding/json into
// any) to a Value. Unknown Go types are a decode error, never a panic.
func fromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case bool:
		return Bool(t), nil
	case []any:
		list := make([]Value, 0, len(t))
		for _, e := range t {
			v, err := fromAny(e)
			if err != nil {
				return Value{}, err
			}
			list = append(list, v)
		}
		return List(list...), nil
	case map[string]any:
		m := NewMap()
		for k, e := range t {
			v, err := fromAny(e)
			if err != nil {
				return Value{}, err
			}
			m.Set(k, v)
		}
		return MapValue(m), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported value type %T", ErrDecode, x)
	}
}

// MapFromAny converts a decoded JSON object to a Map. Nested objects and
// arrays are converted recursively; anything outside the closed value set
// fails with ErrDecode.
func MapFromAny(x any) (*Map, error) {
	return mapFromAny(x)
}

// mapFromAny converts a decoded JSON object to a Map.
func mapFromAny(x any) (*Map, error) {
	if x == nil {
		return NewMap(), nil
	}
	raw, ok := x.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected object, got %T", ErrDecode, x)
	}
	v, err := fromAny(raw)
	if err != nil {
		return nil, err
	}
	m, _ := v.AsMap()
	return m, nil
}
