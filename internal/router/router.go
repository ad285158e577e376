package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/practice-backend/internal/config"
	"github.com/stemsi/practice-backend/internal/handler"
	"github.com/stemsi/practice-backend/internal/identity"
	"github.com/stemsi/practice-backend/internal/metrics"
	"github.com/stemsi/practice-backend/internal/middleware"
	"github.com/stemsi/practice-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Attempt *handler.AttemptHandler
	Content *handler.ContentHandler
	WS      *handler.WSHandler
	Health  *handler.HealthHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// limiter may be nil to disable rate limiting.
func SetupRouter(
	resolver *identity.Resolver,
	limiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.AccessLog(log))

	if cfg.MetricsEnabled {
		metrics.Init()
		router.Use(metrics.Middleware())
		router.GET("/metrics", metrics.Handler())
	}

	router.Use(middleware.Brotli())

	// Health checks stay outside the limiter.
	router.GET("/health", handlers.Health.Live)
	router.GET("/health/ready", handlers.Health.Ready)

	if limiter != nil {
		router.Use(limiter.Middleware())
	}

	// ─── 1. Learner Group ──────────────────────────────────────────────
	learnerAPI := router.Group("/api/v1/learner")
	learnerAPI.Use(
		middleware.RequireLearner(resolver),
		middleware.NoStore(),
	)
	{
		learnerAPI.POST("/tasks/:task_id/attempts", handlers.Attempt.CreateAttempt)
		learnerAPI.GET("/attempts", handlers.Attempt.ListAttempts)
		learnerAPI.GET("/attempts/:attempt_id", handlers.Attempt.LoadAttempt)
		learnerAPI.PUT("/attempts/:attempt_id", handlers.Attempt.SaveAttempt)
		learnerAPI.POST("/attempts/:attempt_id/submit", handlers.Attempt.SubmitAttempt)
		learnerAPI.GET("/attempts/:attempt_id/result", handlers.Attempt.ViewResult)
	}

	// ─── 2. WebSocket Group (token in query) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireLearnerWS(resolver))
	{
		ws.GET("/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 3. Author Group ───────────────────────────────────────────────
	authorAPI := router.Group("/api/v1/author")
	authorAPI.Use(
		middleware.RequireAuthor(resolver),
		middleware.NoStore(),
	)
	{
		authorAPI.PUT("/questions/:question_id", handlers.Content.EditQuestion)
		authorAPI.DELETE("/questions/:question_id", handlers.Content.RetractQuestion)
		authorAPI.PUT("/choices/:choice_id", handlers.Content.EditChoice)
		authorAPI.DELETE("/choices/:choice_id", handlers.Content.RetractChoice)
	}

	return router
}
