package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates the states of an in-flight test session.
// Transitions are one-directional:
//
//	Initializing -> Active
//	Active       -> Submitting -> Completed
//	Active       -> Expired -> Submitting -> Completed
//	Submitting   -> Submitting   (retry after a failed submit)
type SessionStatus string

const (
	SessionInitializing SessionStatus = "INITIALIZING"
	SessionActive       SessionStatus = "ACTIVE"
	SessionExpired      SessionStatus = "EXPIRED"
	SessionSubmitting   SessionStatus = "SUBMITTING"
	SessionCompleted    SessionStatus = "COMPLETED"
)

// CanTransition reports whether moving from s to next is a legal step of
// the session state machine.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	switch s {
	case SessionInitializing:
		return next == SessionActive
	case SessionActive:
		return next == SessionExpired || next == SessionSubmitting
	case SessionExpired:
		return next == SessionSubmitting
	case SessionSubmitting:
		return next == SessionSubmitting || next == SessionCompleted
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s SessionStatus) Terminal() bool { return s == SessionCompleted }

// TestSession is one timed attempt by one user at one test.
type TestSession struct {
	SessionID            uuid.UUID     `json:"session_id"`
	TestID               uuid.UUID     `json:"test_id"`
	UserID               uuid.UUID     `json:"user_id"`
	StartTime            time.Time     `json:"start_time"`
	TimeLimitSeconds     int           `json:"time_limit_seconds"`
	TimeRemainingSeconds int           `json:"time_remaining_seconds"`
	Status               SessionStatus `json:"status"`
}

// SubmitTrigger identifies what initiated a submission.
type SubmitTrigger string

const (
	TriggerUser    SubmitTrigger = "user"
	TriggerTimeout SubmitTrigger = "timeout"
)

// ResultRoute tells the caller which result view to route the candidate to
// after submission completes.
type ResultRoute string

const (
	// RouteResult is the standard result view with locally scored answers.
	RouteResult ResultRoute = "result"
	// RouteWritingEvaluation is the deferred writing-evaluation view that
	// polls for the external evaluator's band score.
	RouteWritingEvaluation ResultRoute = "writing-evaluation"
)

// PersistedStatus is the session status spelling stored on user_tests rows.
// The richer in-memory state machine collapses onto these three values.
type PersistedStatus string

const (
	PersistedInProgress PersistedStatus = "in progress"
	PersistedCompleted  PersistedStatus = "completed"
	PersistedAbandoned  PersistedStatus = "abandoned"
)

// UserTest is the persisted session record.
type UserTest struct {
	ID               uuid.UUID       `json:"user_test_id"`
	UserID           uuid.UUID       `json:"user_id"`
	TestID           uuid.UUID       `json:"test_id"`
	StartTime        time.Time       `json:"start_time"`
	EndTime          *time.Time      `json:"end_time,omitempty"`
	Status           PersistedStatus `json:"status"`
	NumCorrectAnswer int             `json:"num_correct_answer"`
	Feedback         string          `json:"feedback,omitempty"`
}

// UserResponse is one persisted scored answer.
type UserResponse struct {
	ID             uuid.UUID `json:"response_id"`
	UserTestID     uuid.UUID `json:"user_test_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	AnswerText     string    `json:"answer_text"`
	MarksAwarded   float64   `json:"marks_awarded"`
	BandScore      string    `json:"band_score,omitempty"`      // writing only, set by the evaluation worker
	EvaluationText string    `json:"evaluation_text,omitempty"` // writing only
}

// SectionState classifies a section's completion, derived on demand from
// the answer store and never cached.
type SectionState string

const (
	SectionEmpty    SectionState = "empty"
	SectionPartial  SectionState = "partial"
	SectionComplete SectionState = "complete"
)

// SectionProgress is the derived per-section completion summary.
type SectionProgress struct {
	SectionIndex   int          `json:"section_index"`
	AnsweredCount  int          `json:"answered_count"`
	TotalQuestions int          `json:"total_questions"`
	State          SectionState `json:"state"`
}

// Highlight is a user-selected substring of passage text retained for
// visual emphasis. Highlights are matched back against the passage by
// substring search at render time, not by stored offsets.
type Highlight struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
