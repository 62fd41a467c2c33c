package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ieltsprep/ielts-backend/internal/middleware"
	"github.com/ieltsprep/ielts-backend/internal/response"
	"github.com/ieltsprep/ielts-backend/internal/service"
)

// ResultHandler serves completed session results.
type ResultHandler struct {
	resultService *service.ResultService
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(resultService *service.ResultService) *ResultHandler {
	return &ResultHandler{resultService: resultService}
}

// Results godoc
// GET /api/v1/sessions/:session_id/results
// Returns the scored breakdown for a completed session. Falls back to
// a summary-only view when per-question responses cannot be loaded.
func (h *ResultHandler) Results(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.resultService.Results(c.Request.Context(), sessionID, middleware.GetUserID(c))
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// WritingResults godoc
// GET /api/v1/sessions/:session_id/writing-results
// Returns per-essay evaluations, pending until the background
// evaluation has landed.
func (h *ResultHandler) WritingResults(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	results, err := h.resultService.WritingResults(c.Request.Context(), sessionID, middleware.GetUserID(c))
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"writing_results": results})
}

// History godoc
// GET /api/v1/results/history
// Lists the caller's past sessions, most recent first.
func (h *ResultHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	history, err := h.resultService.History(c.Request.Context(), middleware.GetUserID(c), limit)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"history": history})
}
