package model

// StartSessionRequest is the payload for opening a new test session.
type StartSessionRequest struct {
	TestID string `json:"test_id" binding:"required,uuid"`
}

// SetAnswerRequest is the payload for replacing one answer value.
type SetAnswerRequest struct {
	Answer    AnswerValue `json:"answer"`
	TimeSpent int         `json:"time_spent_seconds" binding:"omitempty,min=0"`
}

// AddTimeRequest accumulates time spent on a question without touching
// its answer.
type AddTimeRequest struct {
	Seconds int `json:"seconds" binding:"required,min=1"`
}

// SetConfidenceRequest records the candidate's self-reported confidence.
type SetConfidenceRequest struct {
	Confidence int `json:"confidence" binding:"required,min=1,max=5"`
}

// AddHighlightRequest is the payload for highlighting passage text.
type AddHighlightRequest struct {
	Text string `json:"text" binding:"required,min=1,max=2000"`
}

// RenderHighlightsRequest carries the passage to segment against the
// session's stored highlights.
type RenderHighlightsRequest struct {
	SourceText string `json:"source_text" binding:"required"`
}

// SeekRequest is the payload for seeking the audio resource.
type SeekRequest struct {
	Time float64 `json:"time" binding:"min=0"`
}
