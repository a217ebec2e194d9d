package domain

import "errors"

var (
	// ErrEmbeddingFailed signals that the embedding collaborator was
	// unreachable or returned no vector. Not retried; surfaced to the caller.
	ErrEmbeddingFailed = errors.New("embedding failed")
	// ErrClassificationFailed signals a null or empty response on the
	// critical-path classification call. Surfaced, not retried.
	ErrClassificationFailed = errors.New("classification failed")
	// ErrRefinementFailed signals a failed or malformed query refinement call.
	ErrRefinementFailed = errors.New("refinement failed")
	// ErrIndexUnavailable signals that the vector index cannot be queried.
	ErrIndexUnavailable = errors.New("vector index unavailable")
)
