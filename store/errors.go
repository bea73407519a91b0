package store

import "errors"

var (
	// ErrMissingThreadID is returned when a config has no thread_id.
	ErrMissingThreadID = errors.New("config needs a thread_id")

	// ErrMissingConfig is returned when a config lacks fields an operation requires.
	ErrMissingConfig = errors.New("config needs thread_id, checkpoint_ns and checkpoint_id")

	// ErrSerializationMismatch is returned when a checkpoint and its metadata
	// were serialized with different type tags.
	ErrSerializationMismatch = errors.New("mismatched checkpoint and metadata types")

	// ErrStoreUnavailable is returned when a lookup query cannot be executed.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrStoreReadFailed is returned when a listing or scan query fails.
	ErrStoreReadFailed = errors.New("store read failed")

	// ErrStoreWriteFailed is returned when a write or batch commit fails.
	ErrStoreWriteFailed = errors.New("store write failed")

	// ErrDeserializationFailed is returned when a stored payload cannot be decoded.
	ErrDeserializationFailed = errors.New("deserialization failed")
)
