// Package gitstore implements the storage engine: a content-addressed
// entity store built on git object primitives, with one branch per agent.
// Entities live as blobs inside a two-level tree (entity type / id), every
// mutation is one commit, and a branch ref is the single atomic publication
// point for readers.
package gitstore

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage"

	"github.com/stratumdev/stratum/internal/entity"
	"github.com/stratumdev/stratum/internal/graph"
)

// DefaultBranch is used when Options.Branch is empty.
const DefaultBranch = "main"

// Options configure Open.
type Options struct {
	// Path is the directory of the bare repository. Created when missing.
	Path string
	// Agent signs every commit written through this handle.
	Agent string
	// Branch is the initially checked-out branch. Defaults to DefaultBranch.
	Branch string
}

// Store is one agent's handle on the shared repository. The current branch
// is state of the handle, not of the process: two handles over the same
// repository can sit on different branches. Branch-mutating operations are
// serialized under an internal mutex; reads and writes snapshot the current
// ref and proceed independently.
type Store struct {
	repo  *git.Repository
	reg   *entity.Registry
	agent string
	base  plumbing.ReferenceName

	mu      sync.Mutex
	current plumbing.ReferenceName
	index   *graph.Index
}

// Open opens the repository at opts.Path, initializing a bare repository
// and the initial branch when absent.
func Open(opts Options) (*Store, error) {
	if opts.Agent == "" {
		return nil, errors.New("agent is required")
	}
	branch := opts.Branch
	if branch == "" {
		branch = DefaultBranch
	}

	repo, err := git.PlainOpen(opts.Path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(opts.Path, true)
	}
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", opts.Path, err)
	}

	s := &Store{
		repo:  repo,
		reg:   entity.NewRegistry(),
		agent: opts.Agent,
		index: graph.New(),
	}
	if err := s.bootstrapBranch(branch); err != nil {
		return nil, err
	}
	s.base = plumbing.NewBranchReferenceName(branch)
	s.current = s.base
	if err := s.rebuildIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

// bootstrapBranch creates the branch with an empty root commit when it does
// not exist yet, and records the agent association.
func (s *Store) bootstrapBranch(branch string) error {
	refName := plumbing.NewBranchReferenceName(branch)
	if _, err := s.repo.Reference(refName, false); err == nil {
		return nil
	}

	treeHash, err := s.BuildTree(nil)
	if err != nil {
		return err
	}
	commitHash, err := s.writeCommit("initialize memory store", treeHash, plumbing.ZeroHash)
	if err != nil {
		return err
	}
	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(refName, commitHash)); err != nil {
		return fmt.Errorf("create branch %s: %w", branch, err)
	}
	if err := s.repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, refName)); err != nil {
		return fmt.Errorf("set HEAD: %w", err)
	}
	return s.setBranchAgent(branch, s.agent)
}

// Agent returns the identity signing commits on this handle.
func (s *Store) Agent() string { return s.agent }

// Registry exposes the entity registry for typed decoding.
func (s *Store) Registry() *entity.Registry { return s.reg }

// Repo exposes the underlying repository for the sync adapter.
func (s *Store) Repo() *git.Repository { return s.repo }

// currentRef snapshots the checked-out branch ref name.
func (s *Store) currentRef() plumbing.ReferenceName {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Put serializes the entity to its canonical form, writes it as a blob,
// folds it into the tree, and commits on the current branch. The ref update
// is a compare-and-swap; ErrConflict reports a ref that moved underneath.
func (s *Store) Put(g *entity.Generic) error {
	if g.ID == "" || g.Type == "" {
		return errors.New("entity id and type are required")
	}
	if g.Agent == "" {
		g.Agent = s.agent
	}
	// Relationships index into the graph; a malformed edge must be rejected
	// here rather than stored and silently left out of the index.
	if g.Type == entity.TypeRelationship {
		rel, err := entity.RelationshipFromGeneric(g)
		if err != nil {
			return err
		}
		if err := rel.Validate(); err != nil {
			return err
		}
	}
	existing, err := s.Get(g.ID, g.Type)
	if err != nil {
		// A record that exists but cannot be read must surface, or an update
		// would be demoted to a create and lose its created_at.
		return fmt.Errorf("check existing %s/%s: %w", g.Type, g.ID, err)
	}
	verb := "create"
	if existing != nil {
		verb = "update"
		g.CreatedAt = existing.CreatedAt
	}
	msg := fmt.Sprintf("%s %s %s by agent %s", verb, g.Type, g.ID, s.agent)
	return s.writeEntity(g, msg)
}

// writeEntity performs the blob -> tree -> commit -> ref sequence for one
// entity on the current branch.
func (s *Store) writeEntity(g *entity.Generic, msg string) error {
	refName := s.currentRef()
	old, err := s.repo.Reference(refName, false)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", refName, err)
	}
	parent, err := s.commitAt(old.Hash())
	if err != nil {
		return err
	}

	entries, err := s.loadEntries(parent.TreeHash)
	if err != nil {
		return err
	}
	blobHash, err := s.StoreObject(g.Encode())
	if err != nil {
		return err
	}
	entries[entryKey{Type: g.Type, ID: g.ID}] = blobHash

	treeHash, err := s.BuildTree(entries)
	if err != nil {
		return err
	}
	commitHash, err := s.writeCommit(msg, treeHash, old.Hash())
	if err != nil {
		return err
	}

	newRef := plumbing.NewHashReference(refName, commitHash)
	if err := s.repo.Storer.CheckAndSetReference(newRef, old); err != nil {
		if errors.Is(err, storage.ErrReferenceHasChanged) {
			return fmt.Errorf("branch %s: %w", refName.Short(), ErrConflict)
		}
		return fmt.Errorf("update ref %s: %w", refName, err)
	}

	s.indexEntity(g)
	return nil
}

// indexEntity keeps the derived relationship index in step with writes on
// the current branch.
func (s *Store) indexEntity(g *entity.Generic) {
	if g.Type != entity.TypeRelationship {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.IsTombstone() {
		s.index.Remove(g.ID)
		return
	}
	rel, err := s.decodeRelationship(g)
	if err != nil {
		return
	}
	s.index.Add(relEdge(rel))
}

// decodeRelationship resolves a generic record through the registry so
// callers that replaced the relationship decoder stay in charge of what
// lands in the graph.
func (s *Store) decodeRelationship(g *entity.Generic) (*entity.Relationship, error) {
	e, err := s.reg.Decode(g)
	if err != nil {
		return nil, err
	}
	rel, ok := e.(*entity.Relationship)
	if !ok {
		return nil, fmt.Errorf("%w: decoder for %q did not yield a relationship", entity.ErrDecode, g.Type)
	}
	return rel, nil
}

func relEdge(r *entity.Relationship) graph.Edge {
	return graph.Edge{
		ID:         r.ID,
		SourceID:   r.SourceID,
		SourceType: r.SourceType,
		TargetID:   r.TargetID,
		TargetType: r.TargetType,
		Kind:       r.Kind,
		Strength:   r.Strength,
		Bidi:       r.Direction == entity.DirectionBi,
	}
}

// Get resolves an entity through the current branch tip. A missing or
// tombstoned entry is a normal outcome: nil entity, nil error.
func (s *Store) Get(id, entityType string) (*entity.Generic, error) {
	return s.getAt(s.currentRef(), id, entityType)
}

func (s *Store) getAt(refName plumbing.ReferenceName, id, entityType string) (*entity.Generic, error) {
	ref, err := s.repo.Reference(refName, false)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", refName, err)
	}
	tip, err := s.commitAt(ref.Hash())
	if err != nil {
		return nil, err
	}
	blobHash, ok, err := s.lookupEntry(tip.TreeHash, entityType, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	data, err := s.ReadObject(blobHash)
	if err != nil {
		return nil, err
	}
	g, err := entity.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("entity %s/%s: %w", entityType, id, err)
	}
	if g.IsTombstone() {
		return nil, nil
	}
	return g, nil
}

// QueryByAgent walks the tip tree of the agent's branch, optionally
// filtered by entity type. Results are sorted by (type, id), so repeated
// calls against an unchanged branch return the same sequence.
func (s *Store) QueryByAgent(agent, entityType string) ([]*entity.Generic, error) {
	refName, err := s.branchForAgent(agent)
	if err != nil {
		return nil, err
	}
	ref, err := s.repo.Reference(refName, false)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", refName, err)
	}
	tip, err := s.commitAt(ref.Hash())
	if err != nil {
		return nil, err
	}
	entries, err := s.loadEntries(tip.TreeHash)
	if err != nil {
		return nil, err
	}

	keys := make([]entryKey, 0, len(entries))
	for k := range entries {
		if entityType != "" && k.Type != entityType {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		return keys[i].ID < keys[j].ID
	})

	var out []*entity.Generic
	for _, k := range keys {
		data, err := s.ReadObject(entries[k])
		if err != nil {
			return nil, err
		}
		g, err := entity.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("entity %s/%s: %w", k.Type, k.ID, err)
		}
		if g.IsTombstone() {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

// Rm records a tombstone for the entity. Deleting an id that is absent or
// already tombstoned is a no-op success and appends no commit.
func (s *Store) Rm(id, entityType string) error {
	existing, err := s.Get(id, entityType)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	g := entity.Tombstone(id, entityType, s.agent)
	msg := fmt.Sprintf("delete %s %s by agent %s", entityType, id, s.agent)
	return s.writeEntity(g, msg)
}

// TraversalResult is the outcome of a graph walk. Dangling lists visited
// node ids that no stored entity backs; they are reported, never fatal.
type TraversalResult struct {
	Visits   []graph.Visit `json:"visits"`
	Dangling []string      `json:"dangling,omitempty"`
}

// Traverse walks the relationship graph breadth-first from start.
func (s *Store) Traverse(start string, maxDepth int) (*TraversalResult, error) {
	s.mu.Lock()
	visits := s.index.Traverse(start, maxDepth)
	s.mu.Unlock()

	// Edge endpoint types are required at validation, so every visit can be
	// resolved; anything without a stored entity is dangling.
	res := &TraversalResult{Visits: visits}
	for _, v := range visits {
		g, err := s.Get(v.ID, v.Type)
		if err != nil {
			return nil, err
		}
		if g == nil {
			res.Dangling = append(res.Dangling, v.ID)
		}
	}
	return res, nil
}

// FindPath returns the first shortest edge path between two entity ids, or
// ok=false when unreachable within maxDepth hops.
func (s *Store) FindPath(source, target string, maxDepth int) ([]graph.Edge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.FindPath(source, target, maxDepth)
}

// Reload rebuilds the derived relationship index from the current branch
// tip. Call it after the branch moved outside this handle, e.g. after pull.
func (s *Store) Reload() error {
	return s.rebuildIndex()
}

// rebuildIndex re-derives the adjacency index from stored relationship
// entities. Malformed records are skipped here; they surface on direct Get.
func (s *Store) rebuildIndex() error {
	refName := s.currentRef()
	ref, err := s.repo.Reference(refName, false)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", refName, err)
	}
	tip, err := s.commitAt(ref.Hash())
	if err != nil {
		return err
	}
	entries, err := s.loadEntries(tip.TreeHash)
	if err != nil {
		return err
	}

	ix := graph.New()
	for k, h := range entries {
		if k.Type != entity.TypeRelationship {
			continue
		}
		data, err := s.ReadObject(h)
		if err != nil {
			return err
		}
		g, err := entity.Decode(data)
		if err != nil || g.IsTombstone() {
			continue
		}
		rel, err := s.decodeRelationship(g)
		if err != nil {
			continue
		}
		ix.Add(relEdge(rel))
	}

	s.mu.Lock()
	s.index = ix
	s.mu.Unlock()
	return nil
}
