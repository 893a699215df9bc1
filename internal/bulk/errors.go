package bulk

import "errors"

var (
	// ErrBulkNotFound means the requested issuance run does not exist.
	ErrBulkNotFound = errors.New("bulk: bulk not found")

	// ErrEmptyArchive means none of a bulk's documents could be collected.
	ErrEmptyArchive = errors.New("bulk: no documents available for the archive")
)
