package repository

import "errors"

var (
	// ErrDuplicateTransaction means a signature was re-submitted with
	// different content. Benign for callers replaying identical events;
	// those are absorbed as no-ops before this error is reached.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrStorageUnavailable wraps backend failures. Not retried here;
	// retry policy belongs to the caller.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidTransaction rejects malformed input at ingestion.
	// Nothing is partially applied.
	ErrInvalidTransaction = errors.New("invalid transaction")
)
