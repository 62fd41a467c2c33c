package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ieltsprep/ielts-backend/internal/response"
	"github.com/ieltsprep/ielts-backend/internal/service"
)

// TestHandler serves the test catalog.
type TestHandler struct {
	testService *service.TestService
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(testService *service.TestService) *TestHandler {
	return &TestHandler{testService: testService}
}

// List godoc
// GET /api/v1/tests
// Lists active tests available to start.
func (h *TestHandler) List(c *gin.Context) {
	tests, err := h.testService.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tests": tests})
}

// Paper godoc
// GET /api/v1/tests/:test_id/paper
// Returns the candidate-facing paper with answer keys stripped.
func (h *TestHandler) Paper(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	paper, err := h.testService.Paper(c.Request.Context(), testID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTestNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrTestInactive):
			response.Fail(c, http.StatusConflict, response.ErrTestNotAvailable)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"paper": paper})
}
