package bootstrap

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"cvposts-backend/internal/llm"
	openai "cvposts-backend/internal/llm/openai"
	"cvposts-backend/internal/news"
	"cvposts-backend/internal/posts"
	"cvposts-backend/internal/services/health"
	"cvposts-backend/internal/shared/config"
	"cvposts-backend/internal/shared/server"
	"cvposts-backend/internal/shared/telemetry"
)

// App holds the wired dependencies shared by the HTTP and CLI entry points.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	Prompts      llm.Catalogue
	News         *news.Client
	Posts        *posts.Service
	PostsHandler *posts.Handler
	NewProvider  llm.Factory
	Health       *health.Service
}

// Build wires the pipeline and the router from cfg.
func Build(cfg config.Config) (*App, error) {
	telemetry.SetLevel(cfg.LogLevel)

	prompts, err := llm.Prompts()
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	newsClient := news.NewClient(cfg.NewsFeedURL, cfg.NewsLimit, cfg.NewsTimeout)
	svc := posts.NewService(posts.Options{
		Model:           cfg.LLMModel,
		ParseMode:       cfg.ParseMode,
		CalendarDays:    cfg.CalendarDays,
		PostConcurrency: cfg.PostConcurrency,
	}, prompts, newsClient)

	factory := openai.NewFactory(openai.Options{
		BaseURL:    cfg.LLMBaseURL,
		Model:      cfg.LLMModel,
		Timeout:    cfg.LLMTimeout,
		MaxRetries: cfg.LLMMaxRetries,
	})

	app := &App{
		Config:      cfg,
		Prompts:     prompts,
		News:        newsClient,
		Posts:       svc,
		NewProvider: factory,
		Health:      health.NewService(cfg.LLMModel),
	}
	app.PostsHandler = &posts.Handler{
		Svc:            svc,
		NewClient:      factory,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:       cfg,
		PostsHandler: app.PostsHandler,
		Health:       app.Health,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":              cfg.Env,
		"model":            cfg.LLMModel,
		"parse_mode":       cfg.ParseMode,
		"post_concurrency": cfg.PostConcurrency,
	})
	return app, nil
}
