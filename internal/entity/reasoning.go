package entity

import (
	"fmt"
	"time"
)

// ReasoningStep is one link in a chain of reasoning.
type ReasoningStep struct {
	Description string
	Conclusion  string
	Confidence  float64
}

// Reasoning records a chain of reasoning an agent followed for a task.
type Reasoning struct {
	ID         string
	Title      string
	TaskID     string
	Steps      []ReasoningStep
	Conclusion string
	Confidence float64
	Agent      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (r *Reasoning) EntityType() string { return TypeReasoning }
func (r *Reasoning) EntityID() string   { return r.ID }

func (r *Reasoning) ToGeneric() *Generic {
	g := NewGeneric(r.ID, TypeReasoning, r.Agent)
	g.Data.Set("title", String(r.Title))
	g.Data.Set("conclusion", String(r.Conclusion))
	g.Data.Set("confidence", Number(r.Confidence))
	setOptString(g.Data, "task_id", r.TaskID)

	steps := make([]Value, len(r.Steps))
	for i, s := range r.Steps {
		m := NewMap()
		m.Set("description", String(s.Description))
		m.Set("conclusion", String(s.Conclusion))
		m.Set("confidence", Number(s.Confidence))
		steps[i] = MapValue(m)
	}
	g.Data.Set("steps", List(steps...))
	return stamp(g, r.CreatedAt, r.UpdatedAt)
}

func ReasoningFromGeneric(g *Generic) (*Reasoning, error) {
	r := &Reasoning{
		ID:        g.ID,
		Agent:     g.Agent,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
	var err error
	if r.Title, err = getString(g.Data, "title"); err != nil {
		return nil, err
	}
	if r.Conclusion, err = getString(g.Data, "conclusion"); err != nil {
		return nil, err
	}
	if r.Confidence, err = getNumber(g.Data, "confidence"); err != nil {
		return nil, err
	}
	r.TaskID = getOptString(g.Data, "task_id")

	v, ok := g.Data.Get("steps")
	if !ok {
		return r, nil
	}
	list, ok := v.AsList()
	if !ok {
		return nil, fmt.Errorf("%w: field \"steps\" is not a list", ErrDecode)
	}
	for i, sv := range list {
		m, ok := sv.AsMap()
		if !ok {
			return nil, fmt.Errorf("%w: step %d is not an object", ErrDecode, i)
		}
		var step ReasoningStep
		if step.Description, err = getString(m, "description"); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if step.Conclusion, err = getString(m, "conclusion"); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if step.Confidence, err = getNumber(m, "confidence"); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		r.Steps = append(r.Steps, step)
	}
	return r, nil
}
