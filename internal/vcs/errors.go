package vcs

import "errors"

// Common errors returned by synchronization operations.
//
// These errors can be checked using errors.Is() for proper error handling:
//
//	if errors.Is(err, vcs.ErrNoRemote) {
//	    // Handle case where no remote is configured
//	}
var (
	// ErrNoRemote is returned when an operation requires a remote
	// but none is configured.
	ErrNoRemote = errors.New("no remote configured")

	// ErrAuthRejected is returned when the remote rejects the offered
	// credentials.
	ErrAuthRejected = errors.New("authentication rejected by remote")

	// ErrNonFastForward is returned when a push is rejected because the
	// remote history has diverged. The caller decides what to do next;
	// the engine never retries.
	ErrNonFastForward = errors.New("push rejected: remote history has diverged")

	// ErrTargetNotEmpty is returned when a clone target path already
	// contains something incompatible.
	ErrTargetNotEmpty = errors.New("clone target path is not empty")

	// ErrInvalidURL is returned when a remote URL is neither a valid
	// http(s) nor ssh git URL.
	ErrInvalidURL = errors.New("invalid git URL format")
)
