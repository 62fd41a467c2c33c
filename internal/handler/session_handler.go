package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ieltsprep/ielts-backend/internal/audio"
	"github.com/ieltsprep/ielts-backend/internal/middleware"
	"github.com/ieltsprep/ielts-backend/internal/model"
	"github.com/ieltsprep/ielts-backend/internal/response"
	"github.com/ieltsprep/ielts-backend/internal/service"
	"github.com/ieltsprep/ielts-backend/internal/session"
	"github.com/ieltsprep/ielts-backend/internal/validator"
)

// SessionHandler handles live test session endpoints.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// failSession maps session and service errors onto response codes.
func failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Fail(c, http.StatusForbidden, response.ErrSessionNotOwned)
	case errors.Is(err, service.ErrTestNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrTestInactive):
		response.Fail(c, http.StatusConflict, response.ErrTestNotAvailable)
	case errors.Is(err, session.ErrInitialization):
		response.Fail(c, http.StatusConflict, response.ErrInitialization)
	case errors.Is(err, session.ErrUnknownQuestion):
		response.Fail(c, http.StatusNotFound, response.ErrUnknownQuestion)
	case errors.Is(err, session.ErrNotActive):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotActive)
	case errors.Is(err, session.ErrSubmission):
		response.Fail(c, http.StatusBadGateway, response.ErrSubmitFailed)
	case errors.Is(err, audio.ErrNotReady):
		response.Fail(c, http.StatusConflict, response.ErrAudioNotReady)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// sessionParams extracts the session ID path parameter and the caller.
func sessionParams(c *gin.Context) (sessionID, userID uuid.UUID, ok bool) {
	userID = middleware.GetUserID(c)
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, uuid.Nil, false
	}
	return sessionID, userID, true
}

// Start godoc
// POST /api/v1/sessions
// Opens a timed session for the given test and starts its countdown.
func (h *SessionHandler) Start(c *gin.Context) {
	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	testID, err := uuid.Parse(req.TestID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	snap, err := h.sessionService.Start(c.Request.Context(), middleware.GetUserID(c), testID)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"session": snap})
}

// State godoc
// GET /api/v1/sessions/:session_id/state
// Returns the live snapshot: countdown, progress, audio and highlights.
func (h *SessionHandler) State(c *gin.Context) {
	sessionID, userID, ok := sessionParams(c)
	if !ok {
		return
	}
	snap, err := h.sessionService.State(sessionID, userID)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// SetAnswer godoc
// PUT /api/v1/sessions/:session_id/answers/:question_id
// Replaces the answer value for one question.
func (h *SessionHandler) SetAnswer(c *gin.Context) {
	sessionID, userID, ok := sessionParams(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	var req model.SetAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.SetAnswer(sessionID, userID, questionID, req.Answer, req.TimeSpent); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// ToggleMark godoc
// POST /api/v1/sessions/:session_id/answers/:question_id/mark
// Flips the marked-for-review flag.
func (h *SessionHandler) ToggleMark(c *gin.Context) {
	sessionID, userID, ok := sessionParams(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	marked, err := h.sessionService.ToggleMark(sessionID, userID, questionID)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"is_marked": marked})
}

// AddTime godoc
// POST /api/v1/sessions/:session_id/answers/:question_id/time
// Accumulates time spent on a question without changing its answer.
func (h *SessionHandler) AddTime(c *gin.Context) {
	sessionID, userID, ok := sessionParams(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	var req model.AddTimeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.AddAnswerTime(sessionID, userID, questionID, req.Seconds); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// SetConfidence godoc
// PUT /api/v1/sessions/:session_id/answers/:question_id/confidence
func (h *SessionHandler) SetConfidence(c *gin.Context) {
	sessionID, userID, ok := sessionParams(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	var req model.SetConfidenceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.SetConfidence(sessionID, userID, questionID, req.Confidence); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// AddHighlight godoc
// POST /api/v1/sessions/:session_id/highlights
// Stores a passage highlight; duplicate text is an idempotent no-op.
func (h *SessionHandler) AddHighlight(c *gin.Context) {
	sessionID, userID, ok := sessionParams(c)
	if !ok {
		return
	}
	var req model.AddHighlightRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	hl, err := h.sessionService.AddHighlight(sessionID, userID, req.Text)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"highlight": hl})
}

// RemoveHighlight godoc
// DELETE /api/v1/sessions/:session_id/highlights/:highlight_id
func (h *SessionHandler) RemoveHighlight(c *gin.Context) {
	sessionID, userID, ok := sessionParams(c)
	if !ok {
		return
	}
	highlightID, err := uuid.Parse(c.Param("highlight_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.sessionService.RemoveHighlight(sessionID, userID, highlightID); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

// ClearHighlights godoc
// DELETE /api/v1/sessions/:session_id/highlights
func (h *SessionHandler) ClearHighlights(c *gin.Context) {
	sessionID, userID, ok := sessionParams(c)
	if !ok {
		return
	}
	if err := h.sessionService.ClearHighlights(sessionID, userID); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"cleared": true})
}

// RenderHighlights godoc
// POST /api/v1/sessions/:session_id/highlights/render
// Segments passage text against the session's stored highlights.
func (h *SessionHandler) RenderHighlights(c *gin.Context) {
	sessionID, userID, ok := sessionParams(c)
	if !ok {
		return
	}
	var req model.RenderHighlightsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	segments, err := h.sessionService.RenderHighlights(sessionID, userID, req.SourceText)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"segments": segments})
}

// GoToSection godoc
// POST /api/v1/sessions/:session_id/sections/:index
// Navigates to a section; listening tests reset their audio resource.
func (h *SessionHandler) GoToSection(c *gin.Context) {
	sessionID, userID, ok := sessionParams(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	moved, err := h.sessionService.GoToSection(c.Request.Context(), sessionID, userID, index)
	if err != nil {
		failSession(c, err)
		return
	}
	if !moved {
		response.Fail(c, http.StatusBadRequest, response.ErrSectionOutOfRange)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"section_index": index})
}

// PlayAudio godoc
// POST /api/v1/sessions/:session_id/audio/play
func (h *SessionHandler) PlayAudio(c *gin.Context) {
	sessionID, userID, ok := sessionParams(c)
	if !ok {
		return
	}
	if err := h.sessionService.PlayAudio(sessionID, userID); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"playing": true})
}

// PauseAudio godoc
// POST /api/v1/sessions/:session_id/audio/pause
func (h *SessionHandler) PauseAudio(c *gin.Context) {
	sessionID, userID, ok := sessionParams(c)
	if !ok {
		return
	}
	if err := h.sessionService.PauseAudio(sessionID, userID); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"playing": false})
}

// SeekAudio godoc
// POST /api/v1/sessions/:session_id/audio/seek
func (h *SessionHandler) SeekAudio(c *gin.Context) {
	sessionID, userID, ok := sessionParams(c)
	if !ok {
		return
	}
	var req model.SeekRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if err := h.sessionService.SeekAudio(sessionID, userID, req.Time); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"time": req.Time})
}

// CheckAudio godoc
// POST /api/v1/sessions/:session_id/audio/check
// Force-runs the direct readiness inspection to unstick a client.
func (h *SessionHandler) CheckAudio(c *gin.Context) {
	sessionID, userID, ok := sessionParams(c)
	if !ok {
		return
	}
	state, err := h.sessionService.CheckAudio(sessionID, userID)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"audio": state})
}

// Submit godoc
// POST /api/v1/sessions/:session_id/submit
// Runs the submission pipeline; safe to retry after a failure.
func (h *SessionHandler) Submit(c *gin.Context) {
	sessionID, userID, ok := sessionParams(c)
	if !ok {
		return
	}
	out, err := h.sessionService.Submit(c.Request.Context(), sessionID, userID, model.TriggerUser)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"route":    out.Route,
		"feedback": out.Summary.Feedback(),
		"band":     out.Summary.Band,
	})
}

// Cancel godoc
// POST /api/v1/sessions/:session_id/cancel
// Stops the countdown without submitting; the server-side record is
// swept as abandoned later.
func (h *SessionHandler) Cancel(c *gin.Context) {
	sessionID, userID, ok := sessionParams(c)
	if !ok {
		return
	}
	if err := h.sessionService.Cancel(sessionID, userID); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"cancelled": true})
}
