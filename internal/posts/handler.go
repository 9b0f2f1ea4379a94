package posts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cvposts-backend/internal/extract"
	"cvposts-backend/internal/llm"
	"cvposts-backend/internal/shared/metrics"
	"cvposts-backend/internal/shared/server/middleware"
	"cvposts-backend/internal/shared/server/respond"
	"cvposts-backend/internal/shared/telemetry"
	"cvposts-backend/internal/shared/util"
)

const (
	defaultMaxUploadBytes = 10 << 20
	verifyTimeout         = 15 * time.Second

	msgKeyRequired  = "API key is required"
	msgKeyFormat    = `Invalid API key format. Key should start with "sk-"`
	msgNoCV         = "No CV file provided"
	msgAnalysisFail = "Failed to analyze CV"
	msgVerifyFail   = "API key validation failed"
)

// Generator runs the pipeline. *Service satisfies it.
type Generator interface {
	Generate(ctx context.Context, client llm.Client, cvText string) (Generation, error)
}

// Handler serves the post generation and key verification endpoints.
type Handler struct {
	Svc            Generator
	NewClient      llm.Factory
	MaxUploadBytes int64
	// ExtractText defaults to extract.ExtractTextFromBytes.
	ExtractText func(ctx context.Context, data []byte, mimeType, fileName string) (string, error)
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/generate-posts", h.GeneratePosts)
	r.POST("/verify-api-key", h.VerifyAPIKey)
}

// GeneratePosts handles POST /generate-posts.
func (h *Handler) GeneratePosts(c *gin.Context) {
	apiKey := strings.TrimSpace(c.PostForm("api_key"))
	if apiKey == "" {
		respond.Error(c, http.StatusBadRequest, msgKeyRequired, nil)
		return
	}
	if err := llm.ValidateAPIKey(apiKey); err != nil {
		respond.Error(c, http.StatusBadRequest, msgKeyFormat, nil)
		return
	}

	fh, err := c.FormFile("cv")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, msgNoCV, nil)
		return
	}
	if name, err := util.SanitizeFileName(fh.Filename); err == nil {
		c.Set(middleware.LogKeyCVFile, name)
	}

	data, err := h.readUpload(fh)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Failed to read CV file", err.Error())
		return
	}

	ctx := c.Request.Context()
	extractText := h.ExtractText
	if extractText == nil {
		extractText = extract.ExtractTextFromBytes
	}
	cvText, err := extractText(ctx, data, fh.Header.Get("Content-Type"), fh.Filename)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, extractMessage(err), err.Error())
		return
	}

	provider, err := h.NewClient(apiKey)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, msgKeyFormat, nil)
		return
	}
	client := llm.NewCountingClient(provider)

	metrics.IncGenerationStarted()
	start := time.Now()
	gen, err := h.Svc.Generate(ctx, client, cvText)
	metrics.ObserveGenerationDurationMs(float64(time.Since(start).Milliseconds()))
	c.Set(middleware.LogKeyLLMCalls, client.Calls())
	if err != nil {
		metrics.IncGenerationFailed()
		if errors.Is(err, ErrAnalysisFailed) {
			respond.Error(c, http.StatusInternalServerError, msgAnalysisFail, telemetry.RedactString(err.Error()))
			return
		}
		respond.Error(c, http.StatusInternalServerError, "Failed to generate posts", telemetry.RedactString(err.Error()))
		return
	}

	failed := 0
	for _, p := range gen.Posts {
		if !p.OK() {
			failed++
		}
	}
	c.Set(middleware.LogKeyPostErrors, failed)
	telemetry.Info("generation.complete", map[string]any{
		"request_id":   middleware.RequestIDFromContext(c),
		"posts_failed": failed,
		"ideas":        len(gen.Ideas),
		"news_items":   len(gen.News),
		"llm_calls":    client.Calls(),
		"duration_ms":  time.Since(start).Milliseconds(),
	})

	status, body := Render(gen)
	if status != http.StatusOK {
		metrics.IncGenerationFailed()
		if errBody, ok := body.(respond.ErrorResponse); ok {
			respond.Error(c, status, errBody.Error, errBody.Details)
			return
		}
	} else {
		metrics.IncGenerationCompleted()
	}
	c.JSON(status, body)
}

type verifyRequest struct {
	APIKey string `json:"api_key"`
}

// VerifyAPIKey handles POST /verify-api-key.
func (h *Handler) VerifyAPIKey(c *gin.Context) {
	apiKey := verifyKey(c)
	if apiKey == "" {
		respond.Error(c, http.StatusBadRequest, msgKeyRequired, nil)
		return
	}
	if err := llm.ValidateAPIKey(apiKey); err != nil {
		respond.Error(c, http.StatusBadRequest, msgKeyFormat, nil)
		return
	}

	provider, err := h.NewClient(apiKey)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, msgKeyFormat, nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), verifyTimeout)
	defer cancel()
	if _, err := provider.ListModels(ctx); err != nil {
		var pe *llm.ProviderError
		telemetry.Warn("verify.rejected", map[string]any{
			"request_id":        middleware.RequestIDFromContext(c),
			"provider_rejected": errors.As(err, &pe) && pe.Unauthorized(),
			"key_fingerprint":   util.Fingerprint(apiKey),
		})
		respond.Error(c, http.StatusUnauthorized, msgVerifyFail, telemetry.RedactString(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "valid"})
}

// verifyKey looks for the key in the form, then a JSON body, then the
// contents of an uploaded api_key file.
func verifyKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.PostForm("api_key")); key != "" {
		return key
	}
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req verifyRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			if key := strings.TrimSpace(req.APIKey); key != "" {
				return key
			}
		}
	}
	if fh, err := c.FormFile("api_key"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return ""
		}
		defer f.Close()
		raw, err := io.ReadAll(io.LimitReader(f, 1<<10))
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(raw))
	}
	return ""
}

func (h *Handler) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	if fh.Size > limit {
		return nil, fmt.Errorf("file exceeds %d bytes", limit)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file exceeds %d bytes", limit)
	}
	return data, nil
}

func extractMessage(err error) string {
	switch {
	case errors.Is(err, extract.ErrUnsupportedType):
		return "Unsupported CV file type"
	case errors.Is(err, extract.ErrNoText):
		return "No text could be extracted from the CV"
	default:
		return "Failed to read CV file"
	}
}
