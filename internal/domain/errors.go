package domain

import "errors"

var (
	// ErrInvalidProduct is returned when a product fails validation (e.g. empty name)
	ErrInvalidProduct = errors.New("invalid product")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheStore is returned when the persisted cache store cannot be read or written
	ErrCacheStore = errors.New("cache store failure")

	// ErrBackendUnavailable is returned when the generation backend cannot be reached
	ErrBackendUnavailable = errors.New("generation backend unavailable")

	// ErrBackendTimeout is returned when a backend call exceeds its timeout
	ErrBackendTimeout = errors.New("generation backend timed out")

	// ErrBackendStatus is returned when the backend answers with a non-success status
	ErrBackendStatus = errors.New("generation backend returned an error status")

	// ErrEmptyResponse is returned when the backend answers without any text
	ErrEmptyResponse = errors.New("generation backend returned an empty response")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidTemplate is returned when a prompt template cannot be rendered
	ErrInvalidTemplate = errors.New("invalid prompt template")

	// ErrPromptsNotFound is returned when no prompt configuration has been persisted yet
	ErrPromptsNotFound = errors.New("prompt configuration not found")

	// ErrBatchCancelled is returned for batch items that were never started
	ErrBatchCancelled = errors.New("batch cancelled before item started")

	// ErrItemPanicked is returned when a batch item panicked during generation
	ErrItemPanicked = errors.New("internal error while generating description")
)
