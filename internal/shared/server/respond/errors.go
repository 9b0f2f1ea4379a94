package respond

import (
	"github.com/gin-gonic/gin"

	"cvposts-backend/internal/shared/telemetry"
)

// StatusError is the status value carried by every failure payload.
const StatusError = "error"

// ErrorResponse is the uniform failure body.
type ErrorResponse struct {
	Status  string      `json:"status"`
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if details != nil {
		fields["details"] = details
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Status:  StatusError,
		Error:   message,
		Details: details,
	})
}
