package entity

import (
	"fmt"
	"time"
)

// Built-in entity type tags.
const (
	TypeTask         = "task"
	TypeContext      = "context"
	TypeReasoning    = "reasoning"
	TypeWorkflow     = "workflow"
	TypeRelationship = "relationship"
)

// Entity is any typed record that can round-trip through the generic form.
type Entity interface {
	EntityType() string
	EntityID() string
	ToGeneric() *Generic
}

// DecodeFunc reconstructs a typed entity from its generic form.
type DecodeFunc func(*Generic) (Entity, error)

// Registry maps entity type tags to decoders. The set is open: callers may
// register their own types next to the built-ins.
type Registry struct {
	decoders map[string]DecodeFunc
}

// NewRegistry returns a registry with all built-in entity types registered.
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[string]DecodeFunc)}
	r.Register(TypeTask, func(g *Generic) (Entity, error) { return TaskFromGeneric(g) })
	r.Register(TypeContext, func(g *Generic) (Entity, error) { return ContextNoteFromGeneric(g) })
	r.Register(TypeReasoning, func(g *Generic) (Entity, error) { return ReasoningFromGeneric(g) })
	r.Register(TypeWorkflow, func(g *Generic) (Entity, error) { return WorkflowFromGeneric(g) })
	r.Register(TypeRelationship, func(g *Generic) (Entity, error) { return RelationshipFromGeneric(g) })
	return r
}

// Register adds or replaces the decoder for a type tag.
func (r *Registry) Register(entityType string, fn DecodeFunc) {
	r.decoders[entityType] = fn
}

// Types returns the registered type tags.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.decoders))
	for t := range r.decoders {
		out = append(out, t)
	}
	return out
}

// Decode reconstructs a typed entity, failing with ErrDecode for unknown
// tags or malformed payloads.
func (r *Registry) Decode(g *Generic) (Entity, error) {
	fn, ok := r.decoders[g.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrDecode, g.Type)
	}
	return fn(g)
}

// Field helpers shared by the typed converters. Every failure wraps
// ErrDecode so a bad record can be quarantined instead of crashing a scan.

func getString(m *Map, key string) (string, error) {
	v, ok := m.Get(key)
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", ErrDecode, key)
	}
	s, ok := v.AsString()
	if !ok {
		return "", fmt.Errorf("%w: field %q is not a string", ErrDecode, key)
	}
	return s, nil
}

func getOptString(m *Map, key string) string {
	v, ok := m.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.AsString()
	return s
}

func getNumber(m *Map, key string) (float64, error) {
	v, ok := m.Get(key)
	if !ok {
		return 0, fmt.Errorf("%w: missing field %q", ErrDecode, key)
	}
	n, ok := v.AsNumber()
	if !ok {
		return 0, fmt.Errorf("%w: field %q is not a number", ErrDecode, key)
	}
	return n, nil
}

func getStrings(m *Map, key string) ([]string, error) {
	v, ok := m.Get(key)
	if !ok {
		return nil, nil
	}
	list, ok := v.AsList()
	if !ok {
		return nil, fmt.Errorf("%w: field %q is not a list", ErrDecode, key)
	}
	var out []string
	for i, e := range list {
		s, ok := e.AsString()
		if !ok {
			return nil, fmt.Errorf("%w: field %q[%d] is not a string", ErrDecode, key, i)
		}
		out = append(out, s)
	}
	return out, nil
}

func stringList(ss []string) Value {
	vs := make([]Value, len(ss))
	for i, s := range ss {
		vs[i] = String(s)
	}
	return List(vs...)
}

func setOptString(m *Map, key, s string) {
	if s != "" {
		m.Set(key, String(s))
	}
}

func setStrings(m *Map, key string, ss []string) {
	if len(ss) > 0 {
		m.Set(key, stringList(ss))
	}
}

// stamp copies the identity and timestamps shared by every typed entity.
func stamp(g *Generic, createdAt, updatedAt time.Time) *Generic {
	if !createdAt.IsZero() {
		g.CreatedAt = createdAt
	}
	if !updatedAt.IsZero() {
		g.UpdatedAt = updatedAt
	}
	return g
}
