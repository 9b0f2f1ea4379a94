package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cvposts-backend/internal/shared/telemetry"
)

// Context keys handlers may set to enrich the request log line.
const (
	LogKeyCVFile     = "cvFile"
	LogKeyLLMCalls   = "llmCalls"
	LogKeyPostErrors = "postErrors"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		cvFile, _ := c.Get(LogKeyCVFile)
		llmCalls, _ := c.Get(LogKeyLLMCalls)
		postErrors, _ := c.Get(LogKeyPostErrors)

		telemetry.Info("request.complete", map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"cv_file":     cvFile,
			"llm_calls":   llmCalls,
			"post_errors": postErrors,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		})
	}
}
