package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cvposts-backend/internal/posts"
	"cvposts-backend/internal/services/health"
	"cvposts-backend/internal/shared/config"
	"cvposts-backend/internal/shared/metrics"
	"cvposts-backend/internal/shared/server/middleware"
	"cvposts-backend/internal/shared/server/respond"
)

// RouterDeps carries the handlers mounted on the engine.
type RouterDeps struct {
	Config       config.Config
	PostsHandler *posts.Handler
	Health       *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	if deps.Config.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = deps.Config.MaxUploadBytes
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(deps.Config.LLMModel)
	}
	r.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, healthSvc.Status())
	})
	r.GET("/metrics", metrics.Handler())

	if deps.PostsHandler != nil {
		deps.PostsHandler.RegisterRoutes(r)
	}
	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8000"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
