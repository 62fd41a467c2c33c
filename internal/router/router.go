package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ieltsprep/ielts-backend/internal/config"
	"github.com/ieltsprep/ielts-backend/internal/handler"
	"github.com/ieltsprep/ielts-backend/internal/middleware"
	"github.com/ieltsprep/ielts-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Test    *handler.TestHandler
	Session *handler.SessionHandler
	Result  *handler.ResultHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-User-ID", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Serve hosted audio statically with aggressive caching (1 year);
	// section audio paths resolve against this mount.
	audioGroup := router.Group("/audio")
	audioGroup.Use(middleware.CacheControl(31536000))
	{
		audioGroup.Static("/", cfg.AudioDir)
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for session-opening routes (30 requests per minute per IP).
	startLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Catalog Group ──────────────────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.RequireUser())
	{
		api.GET("/tests", handlers.Test.List)
		api.GET("/tests/:test_id/paper", handlers.Test.Paper)

		// ─── 2. Session Lifecycle ──────────────────────────────────────
		api.POST("/sessions", startLimiter.Middleware(), handlers.Session.Start)
		api.GET("/sessions/:session_id/state", handlers.Session.State)
		api.POST("/sessions/:session_id/submit", handlers.Session.Submit)
		api.POST("/sessions/:session_id/cancel", handlers.Session.Cancel)

		// ─── 3. Answers ────────────────────────────────────────────────
		api.PUT("/sessions/:session_id/answers/:question_id", handlers.Session.SetAnswer)
		api.POST("/sessions/:session_id/answers/:question_id/mark", handlers.Session.ToggleMark)
		api.POST("/sessions/:session_id/answers/:question_id/time", handlers.Session.AddTime)
		api.PUT("/sessions/:session_id/answers/:question_id/confidence", handlers.Session.SetConfidence)

		// ─── 4. Highlights ─────────────────────────────────────────────
		api.POST("/sessions/:session_id/highlights", handlers.Session.AddHighlight)
		api.DELETE("/sessions/:session_id/highlights", handlers.Session.ClearHighlights)
		api.DELETE("/sessions/:session_id/highlights/:highlight_id", handlers.Session.RemoveHighlight)
		api.POST("/sessions/:session_id/highlights/render", handlers.Session.RenderHighlights)

		// ─── 5. Navigation & Audio ─────────────────────────────────────
		api.POST("/sessions/:session_id/sections/:index", handlers.Session.GoToSection)
		api.POST("/sessions/:session_id/audio/play", handlers.Session.PlayAudio)
		api.POST("/sessions/:session_id/audio/pause", handlers.Session.PauseAudio)
		api.POST("/sessions/:session_id/audio/seek", handlers.Session.SeekAudio)
		api.POST("/sessions/:session_id/audio/check", handlers.Session.CheckAudio)

		// ─── 6. Results ────────────────────────────────────────────────
		api.GET("/sessions/:session_id/results", handlers.Result.Results)
		api.GET("/sessions/:session_id/writing-results", handlers.Result.WritingResults)
		api.GET("/results/history", handlers.Result.History)
	}

	// ─── 7. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireUser())
	{
		ws.GET("/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	return router
}
