package gitstore

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// CommitInfo is one history entry, newest first in History results.
type CommitInfo struct {
	Hash    plumbing.Hash
	Author  string
	Message string
	When    time.Time
}

// writeCommit creates an immutable commit binding the tree to the agent
// signature. parent may be the zero hash for the root commit.
func (s *Store) writeCommit(message string, treeHash, parent plumbing.Hash) (plumbing.Hash, error) {
	sig := object.Signature{
		Name:  s.agent,
		Email: s.agent + "@stratum.local",
		When:  time.Now(),
	}
	c := &object.Commit{
		Author:    sig,
		Committer: sig,
		Message:   message,
		TreeHash:  treeHash,
	}
	if !parent.IsZero() {
		c.ParentHashes = []plumbing.Hash{parent}
	}

	obj := s.repo.Storer.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encode commit: %w", err)
	}
	h, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store commit: %w", err)
	}
	return h, nil
}

// commitAt loads the commit object at hash.
func (s *Store) commitAt(h plumbing.Hash) (*object.Commit, error) {
	c, err := object.GetCommit(s.repo.Storer, h)
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", h, err)
	}
	return c, nil
}

// History returns up to limit commits on the current branch, newest first.
// limit <= 0 means no truncation. Branch history is linear by construction
// (every mutation appends one commit), so only the first parent is walked.
func (s *Store) History(limit int) ([]CommitInfo, error) {
	ref, err := s.repo.Reference(s.currentRef(), false)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", s.currentRef(), err)
	}

	var out []CommitInfo
	next := ref.Hash()
	for !next.IsZero() {
		if limit > 0 && len(out) >= limit {
			break
		}
		c, err := s.commitAt(next)
		if err != nil {
			return nil, err
		}
		out = append(out, CommitInfo{
			Hash:    c.Hash,
			Author:  c.Author.Name,
			Message: c.Message,
			When:    c.Author.When,
		})
		if len(c.ParentHashes) == 0 {
			break
		}
		next = c.ParentHashes[0]
	}
	return out, nil
}
