package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Session-specific ──────────────────────────────────────────────
	ErrInitialization    ErrCode = "INITIALIZATION_ERROR"
	ErrUserRequired      ErrCode = "USER_CONTEXT_REQUIRED"
	ErrTestNotAvailable  ErrCode = "TEST_NOT_AVAILABLE"
	ErrSessionNotFound   ErrCode = "SESSION_NOT_FOUND"
	ErrSessionNotActive  ErrCode = "SESSION_NOT_ACTIVE"
	ErrSessionNotOwned   ErrCode = "SESSION_NOT_OWNED"
	ErrUnknownQuestion   ErrCode = "UNKNOWN_QUESTION"
	ErrSubmitFailed      ErrCode = "SUBMISSION_ERROR"
	ErrSectionOutOfRange ErrCode = "SECTION_OUT_OF_RANGE"

	// ─── Audio ─────────────────────────────────────────────────────────
	ErrAudioNotReady ErrCode = "AUDIO_NOT_READY"
	ErrAudioFailed   ErrCode = "AUDIO_ERROR"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "One or more fields failed validation."
	case ErrInvalidID:
		return "The identifier in the URL is not valid."
	case ErrInvalidPayload:
		return "The request body could not be parsed."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrConflict:
		return "The request conflicts with the current state."

	// ─── Session-specific ──────────────────────────────────────────────
	case ErrInitialization:
		return "The test session could not be initialized. Please go back to the test list and try again."
	case ErrUserRequired:
		return "A user context is required for this operation."
	case ErrTestNotAvailable:
		return "This test is not available."
	case ErrSessionNotFound:
		return "No such test session."
	case ErrSessionNotActive:
		return "The test session is no longer active."
	case ErrSessionNotOwned:
		return "This test session belongs to another user."
	case ErrUnknownQuestion:
		return "The question does not belong to this test session."
	case ErrSubmitFailed:
		return "The submission could not be persisted. You may retry."
	case ErrSectionOutOfRange:
		return "The requested section index is out of range."

	// ─── Audio ─────────────────────────────────────────────────────────
	case ErrAudioNotReady:
		return "The audio resource is not ready for playback yet."
	case ErrAudioFailed:
		return "The audio resource failed to load. Use the fallback player."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please slow down."

	// ─── Server ────────────────────────────────────────────────────────
	default:
		return "An internal error occurred."
	}
}
