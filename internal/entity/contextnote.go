package entity

import "time"

// ContextNote captures background knowledge an agent wants to keep next to
// its tasks: a decision, an observation, a pointer into the codebase.
type ContextNote struct {
	ID        string
	Title     string
	Content   string
	Source    string
	Relevance string // low | medium | high
	Agent     string
	Tags      []string
	RelatedTo []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *ContextNote) EntityType() string { return TypeContext }
func (c *ContextNote) EntityID() string   { return c.ID }

func (c *ContextNote) ToGeneric() *Generic {
	g := NewGeneric(c.ID, TypeContext, c.Agent)
	g.Data.Set("title", String(c.Title))
	g.Data.Set("content", String(c.Content))
	setOptString(g.Data, "source", c.Source)
	setOptString(g.Data, "relevance", c.Relevance)
	setStrings(g.Data, "tags", c.Tags)
	setStrings(g.Data, "related_to", c.RelatedTo)
	return stamp(g, c.CreatedAt, c.UpdatedAt)
}

func ContextNoteFromGeneric(g *Generic) (*ContextNote, error) {
	c := &ContextNote{
		ID:        g.ID,
		Agent:     g.Agent,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
	var err error
	if c.Title, err = getString(g.Data, "title"); err != nil {
		return nil, err
	}
	if c.Content, err = getString(g.Data, "content"); err != nil {
		return nil, err
	}
	c.Source = getOptString(g.Data, "source")
	c.Relevance = getOptString(g.Data, "relevance")
	if c.Tags, err = getStrings(g.Data, "tags"); err != nil {
		return nil, err
	}
	if c.RelatedTo, err = getStrings(g.Data, "related_to"); err != nil {
		return nil, err
	}
	return c, nil
}
