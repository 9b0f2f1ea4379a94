package posts

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"cvposts-backend/internal/llm"
	"cvposts-backend/internal/news"
	"cvposts-backend/internal/shared/metrics"
	"cvposts-backend/internal/shared/telemetry"
)

// postContext is computed once per request and shared by every post.
type postContext struct {
	analysis CVAnalysis
	ideas    ContentIdeas
	skills   *string
	trends   *string
	news     []news.Item
}

// GeneratePost drafts, enhances and annotates one post. It never returns an
// error: failures produce a StatusError result.
func (s *Service) GeneratePost(ctx context.Context, client llm.Client, pc postContext, t PostType) PostResult {
	res := s.generatePost(ctx, client, pc, t)
	metrics.IncPost(res.OK())
	if !res.OK() {
		telemetry.Warn("generation.post_failed", map[string]any{
			"request_id": telemetry.RequestID(ctx),
			"post_type":  string(t),
			"error":      res.Err,
		})
	}
	return res
}

func (s *Service) generatePost(ctx context.Context, client llm.Client, pc postContext, t PostType) PostResult {
	if len(pc.ideas) == 0 {
		return failedPost(t, ErrIdeasUnavailable)
	}

	draftReq, err := s.draftRequest(pc, t)
	if err != nil {
		return failedPost(t, err)
	}
	draft, err := client.Chat(ctx, draftReq)
	if err != nil {
		return failedPost(t, err)
	}
	if strings.TrimSpace(draft) == "" {
		return failedPost(t, errors.New("empty draft"))
	}

	content := draft
	enhanced, err := s.Enhance(ctx, client, draft, t.Enhancement())
	switch {
	case err != nil:
		telemetry.Warn("generation.enhance_fallback", map[string]any{
			"request_id": telemetry.RequestID(ctx),
			"post_type":  string(t),
			"error":      err,
		})
	case strings.TrimSpace(enhanced) == "":
		telemetry.Warn("generation.enhance_fallback", map[string]any{
			"request_id": telemetry.RequestID(ctx),
			"post_type":  string(t),
			"error":      "empty enhancement",
		})
	default:
		content = enhanced
	}

	engagement, err := s.call(ctx, client, "engagement", map[string]string{"CONTENT": content})
	if err != nil {
		logDegraded(telemetry.RequestID(ctx), "engagement", err)
		engagement = ""
	}

	return successPost(t, content, PostExtras{
		EngagementSuggestions: engagement,
		IndustryTrends:        pc.trends,
		SkillsAnalysis:        pc.skills,
		RelatedNews:           pc.news,
	})
}

func (s *Service) draftRequest(pc postContext, t PostType) (llm.ChatRequest, error) {
	system, err := s.prompts.Get("post_draft")
	if err != nil {
		return llm.ChatRequest{}, err
	}
	user, err := s.prompts.Get("post_" + string(t))
	if err != nil {
		return llm.ChatRequest{}, err
	}

	ideasJSON, err := json.MarshalIndent(pc.ideas, "", "  ")
	if err != nil {
		return llm.ChatRequest{}, err
	}
	newsJSON, err := json.MarshalIndent(pc.news, "", "  ")
	if err != nil {
		return llm.ChatRequest{}, err
	}

	vars := profileVars(pc.analysis)
	vars["TONE"] = t.Tone()
	vars["IDEAS_JSON"] = string(ideasJSON)
	vars["NEWS_JSON"] = string(newsJSON)
	vars["SKILLS_ANALYSIS"] = deref(pc.skills)
	vars["INDUSTRY_TRENDS"] = deref(pc.trends)

	tmpl := llm.Template{
		System:      system.System,
		User:        user.User,
		Temperature: system.Temperature,
		MaxTokens:   system.MaxTokens,
	}
	return tmpl.Request("post_draft_"+string(t), s.opts.Model, vars), nil
}

// Enhance rewrites content in the given style.
func (s *Service) Enhance(ctx context.Context, client llm.Client, content string, style EnhancementStyle) (string, error) {
	instruction, err := s.prompts.Get("enhance_" + string(style))
	if err != nil {
		return "", err
	}
	return s.call(ctx, client, "enhance", map[string]string{
		"INSTRUCTION": strings.TrimSpace(instruction.User),
		"CONTENT":     content,
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
