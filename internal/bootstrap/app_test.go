package bootstrap

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"cvposts-backend/internal/shared/config"
	"cvposts-backend/internal/shared/telemetry"
)

func TestBuildWiresRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := telemetry.SetOutput(io.Discard)
	defer restore()

	app, err := Build(config.Config{LLMModel: "gpt-test", PostConcurrency: 2, ParseMode: config.ParseModeLabeled})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if app.Router == nil || app.PostsHandler == nil || app.Posts == nil {
		t.Fatalf("expected router and posts wiring, got %+v", app)
	}

	routes := map[string]bool{}
	for _, r := range app.Router.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{"GET /health", "GET /metrics", "POST /generate-posts", "POST /verify-api-key"} {
		if !routes[want] {
			t.Fatalf("missing route %s in %v", want, routes)
		}
	}

	if _, err := app.NewProvider("bad-key"); err == nil {
		t.Fatalf("expected factory to reject malformed key")
	}

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", resp.Code)
	}
}
