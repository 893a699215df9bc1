package issues

import "errors"

var (
	// ErrIssueNotFound means no active issue matches the lookup.
	ErrIssueNotFound = errors.New("issues: issue not found")

	// ErrArtifactMissing means an issue is marked clean but its stored
	// document is gone; the caller should regenerate it.
	ErrArtifactMissing = errors.New("issues: stored document missing")

	// ErrDuplicateIssue means an active issue already exists for the
	// certificate/user pair.
	ErrDuplicateIssue = errors.New("issues: an active issue already exists for this user")
)
