package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ministry-roster-api/internal/config"
	"github.com/ministry-roster-api/internal/models"
	"github.com/ministry-roster-api/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	importHandler := NewImportHandler(services, cfg, log)
	coverageHandler := NewCoverageHandler(services, log)
	participationHandler := NewParticipationHandler(services, log)

	router.GET("/health", healthCheck(services))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/stats", statsHandler(services, log))

	v1 := router.Group("/v1")
	{
		v1.POST("/imports/:catalog/analyze", importHandler.Analyze)

		sessions := v1.Group("/sessions")
		{
			sessions.GET("/:session_id", importHandler.GetSession)
			sessions.POST("/:session_id/commit", importHandler.Commit)
		}

		cov := v1.Group("/coverage")
		{
			cov.GET("/departments", coverageHandler.Departments)
			cov.GET("/departments/:name", coverageHandler.Department)
			cov.GET("/groups", coverageHandler.Groups)
			cov.GET("/groups/:name", coverageHandler.Group)
		}

		v1.GET("/leaders", participationHandler.Leaders)
		v1.POST("/participations", participationHandler.Link)
		v1.DELETE("/participations", participationHandler.Unlink)

		v1.POST("/sync/run", syncHandler(services, log))
	}

	return router
}

// healthCheck returns the health status
func healthCheck(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if err := services.Stats.Ping(c.Request.Context()); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "ministry-roster-api",
		})
	}
}

// statsHandler returns collection counts
func statsHandler(services *service.Services, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := services.Stats.Counts(c.Request.Context())
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"database":  counts,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// syncHandler runs one drift correction pass and reports it
func syncHandler(services *service.Services, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		pass, err := services.Sync.RunOnce(c.Request.Context())
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"corrections":   pass.Corrections,
			"written":       pass.Written,
			"leader_drifts": pass.LeaderDrifts,
			"duration_ms":   pass.Duration.Milliseconds(),
		})
	}
}

// respondError maps domain errors onto HTTP status codes
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var verr *models.ValidationError
	var perr *models.PersistenceError
	switch {
	case errors.As(err, &verr):
		body := gin.H{"error": verr.Message}
		if len(verr.Issues) > 0 {
			body["issues"] = verr.Issues
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, models.ErrUnknownUnit):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &perr):
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Persistence failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":            "Commit failed",
			"chunks_committed": perr.ChunksCommitted,
			"total_chunks":     perr.TotalChunks,
		})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
