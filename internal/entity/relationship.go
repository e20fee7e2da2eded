package entity

import (
	"fmt"
	"time"
)

// Relationship kinds, directions, and strengths. Kind is open-ended: any
// non-empty string is accepted, these are the conventional values.
const (
	KindDependsOn  = "depends_on"
	KindContains   = "contains"
	KindReferences = "references"
	KindSupersedes = "supersedes"

	DirectionUni = "unidirectional"
	DirectionBi  = "bidirectional"
)

var ValidStrengths = map[string]bool{
	"weak": true, "medium": true, "strong": true, "critical": true,
}

// Relationship is a typed edge between two stored entities. Endpoints may
// dangle at write time; traversal reports dangling endpoints without failing.
type Relationship struct {
	ID          string
	Agent       string
	SourceID    string
	SourceType  string
	TargetID    string
	TargetType  string
	Kind        string
	Direction   string
	Strength    string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r *Relationship) EntityType() string { return TypeRelationship }
func (r *Relationship) EntityID() string   { return r.ID }

// Validate checks the edge shape before it is stored. Endpoint existence is
// deliberately not checked here.
func (r *Relationship) Validate() error {
	if r.SourceID == "" || r.TargetID == "" {
		return fmt.Errorf("%w: relationship needs source and target ids", ErrInvalid)
	}
	if r.SourceType == "" || r.TargetType == "" {
		return fmt.Errorf("%w: relationship needs source and target types", ErrInvalid)
	}
	if r.Kind == "" {
		return fmt.Errorf("%w: relationship needs a kind", ErrInvalid)
	}
	if r.Direction != DirectionUni && r.Direction != DirectionBi {
		return fmt.Errorf("%w: unknown direction %q", ErrInvalid, r.Direction)
	}
	if !ValidStrengths[r.Strength] {
		return fmt.Errorf("%w: unknown strength %q", ErrInvalid, r.Strength)
	}
	return nil
}

func (r *Relationship) ToGeneric() *Generic {
	g := NewGeneric(r.ID, TypeRelationship, r.Agent)
	g.Data.Set("source_id", String(r.SourceID))
	g.Data.Set("source_type", String(r.SourceType))
	g.Data.Set("target_id", String(r.TargetID))
	g.Data.Set("target_type", String(r.TargetType))
	g.Data.Set("kind", String(r.Kind))
	g.Data.Set("direction", String(r.Direction))
	g.Data.Set("strength", String(r.Strength))
	setOptString(g.Data, "description", r.Description)
	return stamp(g, r.CreatedAt, r.UpdatedAt)
}

func RelationshipFromGeneric(g *Generic) (*Relationship, error) {
	r := &Relationship{
		ID:        g.ID,
		Agent:     g.Agent,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
	var err error
	if r.SourceID, err = getString(g.Data, "source_id"); err != nil {
		return nil, err
	}
	if r.TargetID, err = getString(g.Data, "target_id"); err != nil {
		return nil, err
	}
	if r.Kind, err = getString(g.Data, "kind"); err != nil {
		return nil, err
	}
	if r.Direction, err = getString(g.Data, "direction"); err != nil {
		return nil, err
	}
	if r.Strength, err = getString(g.Data, "strength"); err != nil {
		return nil, err
	}
	if r.SourceType, err = getString(g.Data, "source_type"); err != nil {
		return nil, err
	}
	if r.TargetType, err = getString(g.Data, "target_type"); err != nil {
		return nil, err
	}
	r.Description = getOptString(g.Data, "description")
	return r, nil
}
