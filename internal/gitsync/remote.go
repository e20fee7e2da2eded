package gitsync

import (
	"context"
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/stratumdev/stratum/internal/gitstore"
)

// ErrDiverged means the remote branch has commits the local branch does not;
// the pull cannot fast-forward.
var ErrDiverged = errors.New("local and remote branches have diverged")

// EnsureRemote registers a named remote if the repository does not already
// have one. An existing remote with the same name is left untouched.
func EnsureRemote(s *gitstore.Store, name, url string) error {
	repo := s.Repo()
	if _, err := repo.Remote(name); err == nil {
		return nil
	} else if !errors.Is(err, git.ErrRemoteNotFound) {
		return fmt.Errorf("lookup remote %s: %w", name, err)
	}
	_, err := repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("create remote %s: %w", name, err)
	}
	return nil
}

// Push publishes the named branch to the remote. An already-up-to-date
// remote is not an error; everything else is surfaced verbatim.
func Push(ctx context.Context, s *gitstore.Store, remote, branch string, creds *Credentials) error {
	auth, err := creds.AuthMethod()
	if err != nil {
		return err
	}
	spec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err = s.Repo().PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{spec},
		Auth:       auth,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("push %s to %s: %w", branch, remote, err)
	}
	return nil
}

// Pull fetches the named branch from the remote and fast-forwards the local
// ref. If the local branch has commits the remote lacks the pull is refused
// with ErrDiverged; merging histories is out of scope for the engine.
func Pull(ctx context.Context, s *gitstore.Store, remote, branch string, creds *Credentials) error {
	auth, err := creds.AuthMethod()
	if err != nil {
		return err
	}
	repo := s.Repo()
	trackingRef := plumbing.ReferenceName(fmt.Sprintf("refs/remotes/%s/%s", remote, branch))
	spec := config.RefSpec(fmt.Sprintf("+refs/heads/%s:%s", branch, trackingRef))
	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{spec},
		Auth:       auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch %s from %s: %w", branch, remote, err)
	}

	fetched, err := repo.Reference(trackingRef, true)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", trackingRef, err)
	}

	localRef := plumbing.NewBranchReferenceName(branch)
	local, err := repo.Reference(localRef, false)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// branch does not exist locally yet; adopt the remote tip
		if err := repo.Storer.SetReference(plumbing.NewHashReference(localRef, fetched.Hash())); err != nil {
			return fmt.Errorf("create %s: %w", localRef, err)
		}
		return s.Reload()
	}
	if err != nil {
		return fmt.Errorf("resolve %s: %w", localRef, err)
	}

	if local.Hash() == fetched.Hash() {
		return nil
	}

	localCommit, err := repo.CommitObject(local.Hash())
	if err != nil {
		return fmt.Errorf("local commit: %w", err)
	}
	remoteCommit, err := repo.CommitObject(fetched.Hash())
	if err != nil {
		return fmt.Errorf("remote commit: %w", err)
	}

	// fast-forward only: the local tip must be an ancestor of the remote tip
	ff, err := localCommit.IsAncestor(remoteCommit)
	if err != nil {
		return fmt.Errorf("ancestry check: %w", err)
	}
	if !ff {
		return fmt.Errorf("%s on %s: %w", branch, remote, ErrDiverged)
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(localRef, fetched.Hash())); err != nil {
		return fmt.Errorf("advance %s: %w", localRef, err)
	}
	return s.Reload()
}
