package gitstore

import (
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
)

// BranchInfo describes one branch for listings.
type BranchInfo struct {
	Name    string
	Agent   string
	Current bool
	Hash    plumbing.Hash
}

// CurrentBranch returns the short name of the checked-out branch.
func (s *Store) CurrentBranch() string {
	return s.currentRef().Short()
}

// CreateBranch creates a branch pointing at start (a branch name or commit
// hash; empty means the initial branch, so a fresh branch never inherits
// another agent's entities) and optionally associates it with an agent.
// Fails with ErrExists on a name collision.
func (s *Store) CreateBranch(name, agent, start string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createBranchLocked(name, agent, start)
}

func (s *Store) createBranchLocked(name, agent, start string) error {
	refName := plumbing.NewBranchReferenceName(name)
	if _, err := s.repo.Reference(refName, false); err == nil {
		return fmt.Errorf("branch %s: %w", name, ErrExists)
	}

	target, err := s.resolveStartLocked(start)
	if err != nil {
		return err
	}
	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(refName, target)); err != nil {
		return fmt.Errorf("create branch %s: %w", name, err)
	}
	if agent != "" {
		return s.setBranchAgent(name, agent)
	}
	return nil
}

// resolveStartLocked maps a start point to a commit hash: empty = the
// initial branch, otherwise a branch name, otherwise a raw commit hash.
func (s *Store) resolveStartLocked(start string) (plumbing.Hash, error) {
	if start == "" {
		ref, err := s.repo.Reference(s.base, false)
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("resolve %s: %w", s.base, err)
		}
		return ref.Hash(), nil
	}
	if ref, err := s.repo.Reference(plumbing.NewBranchReferenceName(start), false); err == nil {
		return ref.Hash(), nil
	}
	if !plumbing.IsHash(start) {
		return plumbing.ZeroHash, fmt.Errorf("start point %q: %w", start, ErrNotFound)
	}
	h := plumbing.NewHash(start)
	if _, err := s.commitAt(h); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("start point %q: %w", start, ErrNotFound)
	}
	return h, nil
}

// SwitchBranch checks out the named branch on this handle. With create set,
// a missing branch is created from the initial branch; without it, switching
// to a missing branch fails with ErrNotFound. The relationship index is
// rebuilt from the new tip.
func (s *Store) SwitchBranch(name string, create bool) error {
	s.mu.Lock()
	refName := plumbing.NewBranchReferenceName(name)
	if _, err := s.repo.Reference(refName, false); err != nil {
		if !create {
			s.mu.Unlock()
			return fmt.Errorf("branch %s: %w", name, ErrNotFound)
		}
		if err := s.createBranchLocked(name, s.agent, ""); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.current = refName
	if err := s.repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, refName)); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("set HEAD: %w", err)
	}
	s.mu.Unlock()
	return s.rebuildIndex()
}

// DeleteBranch removes a branch ref. The current branch can never be
// deleted; switch away first. Without force, only branches fully merged
// into the current branch may be deleted.
func (s *Store) DeleteBranch(name string, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	refName := plumbing.NewBranchReferenceName(name)
	if refName == s.current {
		return fmt.Errorf("branch %s: %w", name, ErrCurrentBranch)
	}
	ref, err := s.repo.Reference(refName, false)
	if err != nil {
		return fmt.Errorf("branch %s: %w", name, ErrNotFound)
	}

	if !force {
		tip, err := s.commitAt(ref.Hash())
		if err != nil {
			return err
		}
		curRef, err := s.repo.Reference(s.current, false)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", s.current, err)
		}
		cur, err := s.commitAt(curRef.Hash())
		if err != nil {
			return err
		}
		merged, err := tip.IsAncestor(cur)
		if err != nil {
			return fmt.Errorf("merge check for %s: %w", name, err)
		}
		if !merged {
			return fmt.Errorf("branch %s: %w", name, ErrNotMerged)
		}
	}

	if err := s.repo.Storer.RemoveReference(refName); err != nil {
		return fmt.Errorf("delete branch %s: %w", name, err)
	}
	return s.removeBranchAgent(name)
}

// ListBranches returns branches sorted by name. currentOnly restricts the
// result to the checked-out branch; agent restricts it to branches
// associated with that agent. Both filters combine.
func (s *Store) ListBranches(currentOnly bool, agent string) ([]BranchInfo, error) {
	current := s.currentRef()

	iter, err := s.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	var out []BranchInfo
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if !ref.Name().IsBranch() {
			return nil
		}
		name := ref.Name().Short()
		info := BranchInfo{
			Name:    name,
			Agent:   s.branchAgent(name),
			Current: ref.Name() == current,
			Hash:    ref.Hash(),
		}
		if currentOnly && !info.Current {
			return nil
		}
		if agent != "" && info.Agent != agent {
			return nil
		}
		out = append(out, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// branchForAgent finds the branch associated with an agent, falling back to
// a branch named exactly like the agent.
func (s *Store) branchForAgent(agent string) (plumbing.ReferenceName, error) {
	branches, err := s.ListBranches(false, agent)
	if err != nil {
		return "", err
	}
	if len(branches) > 0 {
		return plumbing.NewBranchReferenceName(branches[0].Name), nil
	}
	refName := plumbing.NewBranchReferenceName(agent)
	if _, err := s.repo.Reference(refName, false); err == nil {
		return refName, nil
	}
	return "", fmt.Errorf("no branch for agent %s: %w", agent, ErrNotFound)
}

// Agent associations are persisted as branch.<name>.agent in the repo
// config, so every handle over the repository sees the same mapping.

func (s *Store) setBranchAgent(branch, agent string) error {
	cfg, err := s.repo.Config()
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg.Raw.Section("branch").Subsection(branch).SetOption("agent", agent)
	if err := s.repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (s *Store) branchAgent(branch string) string {
	cfg, err := s.repo.Config()
	if err != nil {
		return ""
	}
	sec := cfg.Raw.Section("branch")
	if !sec.HasSubsection(branch) {
		return ""
	}
	return sec.Subsection(branch).Option("agent")
}

func (s *Store) removeBranchAgent(branch string) error {
	cfg, err := s.repo.Config()
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	sec := cfg.Raw.Section("branch")
	if !sec.HasSubsection(branch) {
		return nil
	}
	sec.RemoveSubsection(branch)
	if err := s.repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
