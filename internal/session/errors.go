package session

import "errors"

var (
	// ErrInitialization aborts session start when the test, its type, or
	// the user context is missing.
	ErrInitialization = errors.New("session initialization failed")

	// ErrUnknownQuestion indicates a question ID that was not part of the
	// test definition at session start. A programming error.
	ErrUnknownQuestion = errors.New("unknown question")

	// ErrNotActive rejects mutations once the session has left Active.
	ErrNotActive = errors.New("session is not active")

	// ErrAlreadySubmitted marks a Submit call on a completed session.
	ErrAlreadySubmitted = errors.New("session already submitted")

	// ErrSubmission wraps a failed persistence step during Submit. The
	// session stays in Submitting and the caller may retry.
	ErrSubmission = errors.New("submission failed")
)
