package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates a file extension no normaliser handles.
	// Callers treat it as "nothing ingestible", never as a failure.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrSyncInProgress indicates a sync is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Query refinement is disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Nothing can be indexed or searched without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the durable vector index is
	// unconfigured, unreachable, or not ready.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrIndexNotConfigured indicates no durable vector index provider is set.
	ErrIndexNotConfigured = errors.New("no vector index configured")

	// ErrCacheUnavailable indicates the retrieval cache backend could not be reached.
	ErrCacheUnavailable = errors.New("retrieval cache unavailable")

	// ErrUnauthorized indicates a missing or wrong admin credential.
	ErrUnauthorized = errors.New("unauthorized")
)

// ContentExtractionError reports malformed content of a recognised format.
// It is fatal to one file's ingestion and must not abort a multi-file run.
type ContentExtractionError struct {
	Filename string
	Cause    error
}

func (e *ContentExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Filename, e.Cause)
}

func (e *ContentExtractionError) Unwrap() error {
	return e.Cause
}

// DimensionMismatchError reports that the durable index vector width
// disagrees with the embedding model. Every durable operation fails
// until an operator resets the index or reconfigures the model.
type DimensionMismatchError struct {
	Index          string
	IndexDimension int
	ModelDimension int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf(
		"index %q has dimension %d but the embedding model produces %d; run 'nephra index reset' or change the model",
		e.Index, e.IndexDimension, e.ModelDimension,
	)
}

// Is makes a dimension mismatch match ErrVectorIndexUnavailable.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrVectorIndexUnavailable
}

// BackendUnavailableError wraps a failure to reach or ready a vector backend.
type BackendUnavailableError struct {
	Backend string
	Cause   error
}

func (e *BackendUnavailableError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %v", e.Backend, ErrVectorIndexUnavailable)
	}
	return fmt.Sprintf("%s: %v: %v", e.Backend, ErrVectorIndexUnavailable, e.Cause)
}

func (e *BackendUnavailableError) Unwrap() error {
	return e.Cause
}

// Is makes the error match ErrVectorIndexUnavailable.
func (e *BackendUnavailableError) Is(target error) bool {
	return target == ErrVectorIndexUnavailable
}

// EmbeddingRequestError reports a failed call to a configured embedding
// provider. StatusCode is zero when no HTTP response was received.
type EmbeddingRequestError struct {
	Provider   string
	StatusCode int
	Cause      error
}

func (e *EmbeddingRequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s embedding request failed: %v", e.Provider, e.Cause)
	}
	return fmt.Sprintf("%s embedding request failed (HTTP %d): %v", e.Provider, e.StatusCode, e.Cause)
}

func (e *EmbeddingRequestError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the provider may accept the same request later:
// rate limiting, server errors and transport failures.
func (e *EmbeddingRequestError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// BatchUploadExhaustedError reports a sync batch that failed after every retry.
// Batches before it remain committed.
type BatchUploadExhaustedError struct {
	// Batch is the 1-based number of the failed batch.
	Batch int

	// TotalBatches is the number of batches in the run.
	TotalBatches int

	// Attempts is how many uploads were tried for this batch.
	Attempts int

	// ChunksCommitted is how many chunks earlier batches indexed.
	ChunksCommitted int

	// Cause is the last upload error.
	Cause error
}

func (e *BatchUploadExhaustedError) Error() string {
	return fmt.Sprintf("batch %d/%d failed after %d attempts (%d chunks already indexed): %v",
		e.Batch, e.TotalBatches, e.Attempts, e.ChunksCommitted, e.Cause)
}

func (e *BatchUploadExhaustedError) Unwrap() error {
	return e.Cause
}
