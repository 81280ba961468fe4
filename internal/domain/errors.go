package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrProfileNotFound signals a missing user profile.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrEmbeddingNotFound signals a user without a stored embedding vector.
	ErrEmbeddingNotFound = errors.New("embedding not found")
	// ErrMatchNotFound signals a missing match record.
	ErrMatchNotFound = errors.New("match not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")

	// ErrDimensionMismatch signals an embedding length that does not match the configured width.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrNonFiniteInput signals a NaN or Inf in numeric input.
	ErrNonFiniteInput = errors.New("non-finite numeric input")
	// ErrInvalidWeights signals an RBS weight configuration violating the simplex constraint.
	ErrInvalidWeights = errors.New("invalid rbs weights")
	// ErrInvalidSubspaces signals a malformed subspace partition table.
	ErrInvalidSubspaces = errors.New("invalid subspace partition")
	// ErrInvalidTrait signals a trait with an unknown dimension or out-of-range value.
	ErrInvalidTrait = errors.New("invalid trait")
	// ErrInvalidTransition signals a forbidden match status transition.
	ErrInvalidTransition = errors.New("invalid match status transition")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
)
