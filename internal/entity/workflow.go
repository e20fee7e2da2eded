package entity

import (
	"fmt"
	"time"
)

// WorkflowState is one named state in a workflow definition.
type WorkflowState struct {
	Name        string
	Description string
	Final       bool
}

// WorkflowTransition connects two workflow states.
type WorkflowTransition struct {
	From    string
	To      string
	Trigger string
}

// Workflow is a persisted state-machine definition entities can be attached
// to. Executing the workflow is a collaborator concern; only the definition
// is stored here.
type Workflow struct {
	ID           string
	Title        string
	Description  string
	Status       string // draft | active | archived
	Agent        string
	InitialState string
	States       []WorkflowState
	Transitions  []WorkflowTransition
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (w *Workflow) EntityType() string { return TypeWorkflow }
func (w *Workflow) EntityID() string   { return w.ID }

func (w *Workflow) ToGeneric() *Generic {
	g := NewGeneric(w.ID, TypeWorkflow, w.Agent)
	g.Data.Set("title", String(w.Title))
	g.Data.Set("status", String(w.Status))
	g.Data.Set("initial_state", String(w.InitialState))
	setOptString(g.Data, "description", w.Description)

	states := make([]Value, len(w.States))
	for i, s := range w.States {
		m := NewMap()
		m.Set("name", String(s.Name))
		m.Set("final", Bool(s.Final))
		setOptString(m, "description", s.Description)
		states[i] = MapValue(m)
	}
	g.Data.Set("states", List(states...))

	transitions := make([]Value, len(w.Transitions))
	for i, t := range w.Transitions {
		m := NewMap()
		m.Set("from", String(t.From))
		m.Set("to", String(t.To))
		m.Set("trigger", String(t.Trigger))
		transitions[i] = MapValue(m)
	}
	g.Data.Set("transitions", List(transitions...))
	return stamp(g, w.CreatedAt, w.UpdatedAt)
}

func WorkflowFromGeneric(g *Generic) (*Workflow, error) {
	w := &Workflow{
		ID:        g.ID,
		Agent:     g.Agent,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
	var err error
	if w.Title, err = getString(g.Data, "title"); err != nil {
		return nil, err
	}
	if w.Status, err = getString(g.Data, "status"); err != nil {
		return nil, err
	}
	if w.InitialState, err = getString(g.Data, "initial_state"); err != nil {
		return nil, err
	}
	w.Description = getOptString(g.Data, "description")

	if v, ok := g.Data.Get("states"); ok {
		list, ok := v.AsList()
		if !ok {
			return nil, fmt.Errorf("%w: field \"states\" is not a list", ErrDecode)
		}
		for i, sv := range list {
			m, ok := sv.AsMap()
			if !ok {
				return nil, fmt.Errorf("%w: state %d is not an object", ErrDecode, i)
			}
			var st WorkflowState
			if st.Name, err = getString(m, "name"); err != nil {
				return nil, fmt.Errorf("state %d: %w", i, err)
			}
			if fv, ok := m.Get("final"); ok {
				st.Final, _ = fv.AsBool()
			}
			st.Description = getOptString(m, "description")
			w.States = append(w.States, st)
		}
	}

	if v, ok := g.Data.Get("transitions"); ok {
		list, ok := v.AsList()
		if !ok {
			return nil, fmt.Errorf("%w: field \"transitions\" is not a list", ErrDecode)
		}
		for i, tv := range list {
			m, ok := tv.AsMap()
			if !ok {
				return nil, fmt.Errorf("%w: transition %d is not an object", ErrDecode, i)
			}
			var tr WorkflowTransition
			if tr.From, err = getString(m, "from"); err != nil {
				return nil, fmt.Errorf("transition %d: %w", i, err)
			}
			if tr.To, err = getString(m, "to"); err != nil {
				return nil, fmt.Errorf("transition %d: %w", i, err)
			}
			if tr.Trigger, err = getString(m, "trigger"); err != nil {
				return nil, fmt.Errorf("transition %d: %w", i, err)
			}
			w.Transitions = append(w.Transitions, tr)
		}
	}
	return w, nil
}
