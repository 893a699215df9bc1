package objectives

import "errors"

var (
	// ErrEndpointNotConfigured means a remote objective was used without
	// a configured web-service URI.
	ErrEndpointNotConfigured = errors.New("objectives: remote lookup endpoint is not configured")

	// ErrGroupNotFound means the remote endpoint returned no usable body.
	ErrGroupNotFound = errors.New("objectives: external group not found")

	// ErrMalformedResponse means the remote endpoint returned a body that
	// is not the expected JSON object.
	ErrMalformedResponse = errors.New("objectives: malformed remote response")

	// ErrNoUsers means the remote group carried no well-formed users.
	ErrNoUsers = errors.New("objectives: no users in the external group")

	// ErrObjectiveNotFound means the requested objective does not exist.
	ErrObjectiveNotFound = errors.New("objectives: objective not found")
)
