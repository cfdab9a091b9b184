package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals a malformed submission.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrStoreUnavailable signals a failed durable store operation.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrMalformedPayload signals a stored or received payload that cannot be decoded.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrAdmissionRejected signals that a task could not be launched despite a reserved slot.
	ErrAdmissionRejected = errors.New("admission rejected")
	// ErrTemplatesNotReady signals that the template embedding cache is not initialized.
	ErrTemplatesNotReady = errors.New("templates not ready")
)

// ManifestGapError reports a missing template entry inside the range declared by the manifest.
type ManifestGapError struct {
	Index int
	Count int
}

func (e *ManifestGapError) Error() string {
	return fmt.Sprintf("%s: template entry %d of %d is missing", ErrMalformedPayload.Error(), e.Index, e.Count)
}

func (e *ManifestGapError) Unwrap() error { return ErrMalformedPayload }
