package entity

import "time"

// Task statuses and priorities accepted by the CLI. The engine itself does
// not enforce status transitions; that is a collaborator concern.
var (
	ValidTaskStatuses = map[string]bool{
		"pending": true, "in_progress": true, "blocked": true,
		"completed": true, "cancelled": true,
	}
	ValidTaskPriorities = map[string]bool{
		"low": true, "normal": true, "high": true, "critical": true,
	}
)

// Task is a unit of work tracked on an agent branch.
type Task struct {
	ID          string
	Title       string
	Description string
	Status      string
	Priority    string
	Agent       string
	Parent      string
	Tags        []string
	ContextIDs  []string
	Outcome     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *Task) EntityType() string { return TypeTask }
func (t *Task) EntityID() string   { return t.ID }

func (t *Task) ToGeneric() *Generic {
	g := NewGeneric(t.ID, TypeTask, t.Agent)
	g.Data.Set("title", String(t.Title))
	g.Data.Set("status", String(t.Status))
	g.Data.Set("priority", String(t.Priority))
	setOptString(g.Data, "description", t.Description)
	setOptString(g.Data, "parent", t.Parent)
	setOptString(g.Data, "outcome", t.Outcome)
	setStrings(g.Data, "tags", t.Tags)
	setStrings(g.Data, "context_ids", t.ContextIDs)
	return stamp(g, t.CreatedAt, t.UpdatedAt)
}

// TaskFromGeneric reconstructs a Task, failing with an ErrDecode-kind error
// when required fields are missing or malformed.
func TaskFromGeneric(g *Generic) (*Task, error) {
	t := &Task{
		ID:        g.ID,
		Agent:     g.Agent,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
	var err error
	if t.Title, err = getString(g.Data, "title"); err != nil {
		return nil, err
	}
	if t.Status, err = getString(g.Data, "status"); err != nil {
		return nil, err
	}
	if t.Priority, err = getString(g.Data, "priority"); err != nil {
		return nil, err
	}
	t.Description = getOptString(g.Data, "description")
	t.Parent = getOptString(g.Data, "parent")
	t.Outcome = getOptString(g.Data, "outcome")
	if t.Tags, err = getStrings(g.Data, "tags"); err != nil {
		return nil, err
	}
	if t.ContextIDs, err = getStrings(g.Data, "context_ids"); err != nil {
		return nil, err
	}
	return t, nil
}
