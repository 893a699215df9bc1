package template

import "errors"

var (
	// ErrTemplateNotFound means the requested template does not exist.
	ErrTemplateNotFound = errors.New("template: template not found")

	// ErrAssetMissing means a template references a background image that
	// is not in the blob store. Issuance must not start in this state.
	ErrAssetMissing = errors.New("template: background image missing from storage")
)
