package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// metaTombstone marks a deleted entity. The record stays in history; readers
// treat it as absent.
const metaTombstone = "tombstone"

// Generic is the uniform representation every typed entity converts to and
// from. Its canonical encoding has stable key ordering, so byte-identical
// payloads hash to the same object across implementations.
type Generic struct {
	ID        string
	Type      string
	Agent     string
	Data      *Map
	Metadata  *Map
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewGeneric returns an empty generic entity with both maps allocated.
func NewGeneric(id, entityType, agent string) *Generic {
	now := time.Now().UTC()
	return &Generic{
		ID:        id,
		Type:      entityType,
		Agent:     agent,
		Data:      NewMap(),
		Metadata:  NewMap(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewID generates a new entity id.
func NewID() string {
	return ulid.Make().String()
}

// Tombstone returns a deletion marker for the given entity slot.
func Tombstone(id, entityType, agent string) *Generic {
	g := NewGeneric(id, entityType, agent)
	g.Metadata.Set(metaTombstone, Bool(true))
	return g
}

// IsTombstone reports whether this record marks a deletion.
func (g *Generic) IsTombstone() bool {
	v, ok := g.Metadata.Get(metaTombstone)
	if !ok {
		return false
	}
	b, _ := v.AsBool()
	return b
}

// Encode renders the canonical byte form: a single-line JSON object with
// keys in fixed order and map entries sorted by key.
func (g *Generic) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeField(&buf, "agent", String(g.Agent), false)
	writeField(&buf, "created_at", String(g.CreatedAt.UTC().Format(time.RFC3339Nano)), true)
	buf.WriteString(`,"data":`)
	g.Data.encode(&buf)
	writeField(&buf, "id", String(g.ID), true)
	buf.WriteString(`,"metadata":`)
	g.Metadata.encode(&buf)
	writeField(&buf, "type", String(g.Type), true)
	writeField(&buf, "updated_at", String(g.UpdatedAt.UTC().Format(time.RFC3339Nano)), true)
	buf.WriteByte('}')
	return buf.Bytes()
}

func writeField(buf *bytes.Buffer, key string, v Value, comma bool) {
	if comma {
		buf.WriteByte(',')
	}
	kb, _ := json.Marshal(key)
	buf.Write(kb)
	buf.WriteByte(':')
	v.encode(buf)
}

// Decode parses a canonical payload back into a Generic. Any structural
// problem is reported as an ErrDecode-kind error.
func Decode(data []byte) (*Generic, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	g := &Generic{}
	var err error
	if g.ID, err = rawString(raw, "id"); err != nil {
		return nil, err
	}
	if g.Type, err = rawString(raw, "type"); err != nil {
		return nil, err
	}
	if g.Agent, err = rawString(raw, "agent"); err != nil {
		return nil, err
	}
	if g.Data, err = mapFromAny(raw["data"]); err != nil {
		return nil, fmt.Errorf("field data: %w", err)
	}
	if g.Metadata, err = mapFromAny(raw["metadata"]); err != nil {
		return nil, fmt.Errorf("field metadata: %w", err)
	}
	if g.CreatedAt, err = rawTime(raw, "created_at"); err != nil {
		return nil, err
	}
	if g.UpdatedAt, err = rawTime(raw, "updated_at"); err != nil {
		return nil, err
	}
	return g, nil
}

func rawString(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", ErrDecode, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q is not a string", ErrDecode, key)
	}
	return s, nil
}

func rawTime(raw map[string]any, key string) (time.Time, error) {
	s, err := rawString(raw, key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: field %q: %v", ErrDecode, key, err)
	}
	return t, nil
}
