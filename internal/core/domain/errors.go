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

	// ErrInvalidInput indicates malformed or invalid client input,
	// such as a batch whose image and id counts differ.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExtraction indicates the embedding model could not turn an image
	// into a feature vector.
	ErrExtraction = errors.New("could not process image")

	// ErrEmbeddingUnavailable indicates no embedder is configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIndexUnavailable indicates there is no searchable index:
	// none has been built yet, or the current one is empty.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrIndexNotReady indicates no rebuild has completed successfully yet.
	ErrIndexNotReady = fmt.Errorf("%w: not ready", ErrIndexUnavailable)

	// ErrIndexEmpty indicates a rebuild accepted zero rows.
	// The previously installed index, if any, stays in place.
	ErrIndexEmpty = errors.New("no valid feature rows to index")

	// ErrDimensionMismatch indicates a vector of the wrong length.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// ExtractionError reports which image could not be processed.
type ExtractionError struct {
	ImageID string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.ImageID == "" {
		return fmt.Sprintf("%s: %v", ErrExtraction, e.Err)
	}
	return fmt.Sprintf("failed to extract features for image ID %s: %v", e.ImageID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ExtractionError) Unwrap() error { return e.Err }

// Is reports ExtractionError as ErrExtraction.
func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// DimensionMismatchError indicates a query or row whose length differs
// from the index dimension.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Is reports DimensionMismatchError as ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }
