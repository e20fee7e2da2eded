package gitstore

import "errors"

// Sentinel errors for the storage engine. Mutating operations return one of
// these (wrapped with context) or succeed; absence on read paths is reported
// as a nil result, not an error.
var (
	// ErrNotFound marks a missing entity, branch, or object.
	ErrNotFound = errors.New("not found")

	// ErrExists marks a branch-name collision.
	ErrExists = errors.New("already exists")

	// ErrConflict means the branch ref moved between read and write; the
	// caller may re-issue the operation.
	ErrConflict = errors.New("concurrent ref update")

	// ErrCurrentBranch is returned when deleting the checked-out branch.
	ErrCurrentBranch = errors.New("cannot delete current branch")

	// ErrNotMerged is returned when deleting an unmerged branch without force.
	ErrNotMerged = errors.New("branch is not fully merged")
)
