package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ieltsprep/ielts-backend/internal/middleware"
	"github.com/ieltsprep/ielts-backend/internal/model"
	"github.com/ieltsprep/ielts-backend/internal/service"
	"github.com/ieltsprep/ielts-backend/internal/session"
	ws "github.com/ieltsprep/ielts-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams live session events and accepts in-band actions.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:session_id/stream
// Upgrades to WebSocket for countdown ticks, audio state changes and
// autosave acknowledgements; answers and submission are accepted in-band.
func (h *WSHandler) SessionStream(c *gin.Context) {
	userID := middleware.GetUserID(c)

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	events, err := h.sessionService.Events(sessionID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no live session"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", userID.String()).
		Str("session_id", sessionID.String()).
		Logger()

	wsLog.Info().Msg("Candidate connected")

	done := make(chan struct{})
	go h.forwardEvents(conn, events, done)
	defer close(done)

	for {
		var msg ws.RequestPayload
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, sessionID, userID, &msg)
		case ws.ActionMark:
			h.handleMark(conn, sessionID, userID, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, sessionID, userID)
		case ws.ActionPing:
			conn.WriteEvent(ws.EventPong, nil)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(msg.Action))
		}
	}
}

// forwardEvents pumps manager events to the client until the connection
// read loop finishes or the session's event channel closes.
func (h *WSHandler) forwardEvents(conn *ws.Conn, events <-chan session.Event, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteEvent(ws.Event(ev.Type), ev.Payload); err != nil {
				return
			}
		}
	}
}

// handleAnswer replaces one answer value in the live session state.
func (h *WSHandler) handleAnswer(conn *ws.Conn, sessionID, userID uuid.UUID, msg *ws.RequestPayload) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.WriteError("invalid question_id format")
		return
	}
	if err := h.sessionService.SetAnswer(sessionID, userID, questionID, msg.Answer, msg.TimeSpent); err != nil {
		conn.WriteError("save failed: " + err.Error())
		return
	}
	conn.WriteEvent(ws.EventSaved, map[string]string{"question_id": msg.QuestionID})
}

// handleMark flips the marked-for-review flag on one question.
func (h *WSHandler) handleMark(conn *ws.Conn, sessionID, userID uuid.UUID, msg *ws.RequestPayload) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.WriteError("invalid question_id format")
		return
	}
	marked, err := h.sessionService.ToggleMark(sessionID, userID, questionID)
	if err != nil {
		conn.WriteError("mark failed: " + err.Error())
		return
	}
	conn.WriteEvent(ws.EventMarked, map[string]interface{}{
		"question_id": msg.QuestionID,
		"is_marked":   marked,
	})
}

// handleSubmit runs the submission pipeline over the socket.
func (h *WSHandler) handleSubmit(conn *ws.Conn, wsLog zerolog.Logger, sessionID, userID uuid.UUID) {
	out, err := h.sessionService.Submit(context.Background(), sessionID, userID, model.TriggerUser)
	if err != nil {
		wsLog.Error().Err(err).Msg("Submit over WebSocket failed")
		conn.WriteError("submit failed")
		return
	}

	wsLog.Info().
		Str("route", string(out.Route)).
		Float64("band", out.Summary.Band).
		Msg("Session submitted")

	conn.WriteEvent(ws.EventSubmitted, map[string]interface{}{
		"route":    out.Route,
		"band":     out.Summary.Band,
		"feedback": out.Summary.Feedback(),
	})
}
