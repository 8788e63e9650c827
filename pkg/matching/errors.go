package matching

import "errors"

var (
	// ErrMissingName rejects an incoming record before any scan runs. The
	// record is reported as failed, never retried.
	ErrMissingName = errors.New("incoming record missing required name")

	// ErrStoreUnavailable means the candidate pool could not be read; the
	// batch cannot start without it.
	ErrStoreUnavailable = errors.New("candidate store unavailable")
)
