package websocket

import "github.com/ieltsprep/ielts-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionMark   Action = "mark"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestPayload is the single inbound message shape; fields beyond
// Action are populated per action.
type RequestPayload struct {
	Action     Action            `json:"action"`
	QuestionID string            `json:"question_id,omitempty"`
	Answer     model.AnswerValue `json:"answer,omitempty"`
	TimeSpent  int               `json:"time_spent_seconds,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick      Event = "tick"
	EventExpired   Event = "expired"
	EventAudio     Event = "audio"
	EventSaved     Event = "saved"
	EventSubmitted Event = "submitted"
	EventMarked    Event = "marked"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// EventResponse wraps every outbound message with its event name.
type EventResponse struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}
