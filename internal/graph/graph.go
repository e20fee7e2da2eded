// Package graph maintains a derived adjacency index over stored
// relationship entities and answers traversal and path queries. The index is
// a view, not a source of truth: it is rebuilt from the branch tip whenever
// the underlying tree changes.
package graph

import "sort"

// Edge is one relationship projected into the index.
type Edge struct {
	ID         string `json:"id"`
	SourceID   string `json:"source_id"`
	SourceType string `json:"source_type,omitempty"`
	TargetID   string `json:"target_id"`
	TargetType string `json:"target_type,omitempty"`
	Kind       string `json:"kind"`
	Strength   string `json:"strength"`
	Bidi       bool   `json:"bidirectional"`
}

// Index is an in-memory adjacency structure. It is not safe for concurrent
// mutation; the owning store serializes access.
type Index struct {
	edges map[string]Edge
	out   map[string][]string // node id -> edge ids leaving the node
	in    map[string][]string // node id -> edge ids entering the node
}

// New returns an empty index.
func New() *Index {
	return &Index{
		edges: make(map[string]Edge),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
	}
}

// Add inserts or replaces an edge.
func (ix *Index) Add(e Edge) {
	if _, ok := ix.edges[e.ID]; ok {
		ix.Remove(e.ID)
	}
	ix.edges[e.ID] = e
	ix.out[e.SourceID] = append(ix.out[e.SourceID], e.ID)
	ix.in[e.TargetID] = append(ix.in[e.TargetID], e.ID)
}

// Remove drops an edge by id. Unknown ids are ignored.
func (ix *Index) Remove(id string) {
	e, ok := ix.edges[id]
	if !ok {
		return
	}
	delete(ix.edges, id)
	ix.out[e.SourceID] = dropID(ix.out[e.SourceID], id)
	ix.in[e.TargetID] = dropID(ix.in[e.TargetID], id)
}

func dropID(ids []string, id string) []string {
	for i, x := range ids {
		if x == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Len returns the number of edges.
func (ix *Index) Len() int { return len(ix.edges) }

// Edges returns all edges sorted by id.
func (ix *Index) Edges() []Edge {
	out := make([]Edge, 0, len(ix.edges))
	for _, e := range ix.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Neighbors returns the edges traversable from a node: all outbound edges
// plus inbound bidirectional ones, sorted by edge id for stable ordering.
func (ix *Index) Neighbors(id string) []Edge {
	var out []Edge
	for _, eid := range ix.out[id] {
		out = append(out, ix.edges[eid])
	}
	for _, eid := range ix.in[id] {
		if e := ix.edges[eid]; e.Bidi {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// other returns the endpoint of e opposite to id.
func (e Edge) other(id string) (string, string) {
	if e.SourceID == id {
		return e.TargetID, e.TargetType
	}
	return e.SourceID, e.SourceType
}

// Visit is one node reached during traversal.
type Visit struct {
	ID    string `json:"id"`
	Type  string `json:"type,omitempty"`
	Depth int    `json:"depth"`
}

// Traverse walks the graph breadth-first from start, visiting each node at
// most once and stopping at maxDepth. The start node itself is not included.
// Traversal always terminates, cycles included, because of the visited set.
func (ix *Index) Traverse(start string, maxDepth int) []Visit {
	visited := map[string]bool{start: true}
	var order []Visit

	type item struct {
		id    string
		depth int
	}
	queue := []item{{start, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for _, e := range ix.Neighbors(cur.id) {
			next, nextType := e.other(cur.id)
			if visited[next] {
				continue
			}
			visited[next] = true
			order = append(order, Visit{ID: next, Type: nextType, Depth: cur.depth + 1})
			queue = append(queue, item{next, cur.depth + 1})
		}
	}
	return order
}

// FindPath returns the first shortest path from source to target as an
// ordered edge sequence, or ok=false when target is unreachable within
// maxDepth hops.
func (ix *Index) FindPath(source, target string, maxDepth int) ([]Edge, bool) {
	if source == target {
		return nil, true
	}
	visited := map[string]bool{source: true}

	type item struct {
		id   string
		path []Edge
	}
	queue := []item{{source, nil}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if len(cur.path) >= maxDepth {
			continue
		}
		for _, e := range ix.Neighbors(cur.id) {
			next, _ := e.other(cur.id)
			if visited[next] {
				continue
			}
			path := make([]Edge, len(cur.path), len(cur.path)+1)
			copy(path, cur.path)
			path = append(path, e)
			if next == target {
				return path, true
			}
			visited[next] = true
			queue = append(queue, item{next, path})
		}
	}
	return nil, false
}
