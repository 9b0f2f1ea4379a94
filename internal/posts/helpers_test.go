package posts

import (
	"context"
	"errors"
	"strings"
	"sync"

	"cvposts-backend/internal/llm"
	"cvposts-backend/internal/news"
)

const profileJSONReply = `{
  "key_areas_of_expertise": ["Distributed systems", "Platform engineering"],
  "industry_focus": "Technology",
  "notable_achievements": ["Cut infra cost by 40%", "Led migration to Kubernetes"],
  "technical_skills": ["Go", "Kubernetes"],
  "soft_skills": ["Mentoring"],
  "career_level": "Senior",
  "content_topics": ["Cloud cost", "Team growth"]
}`

const ideasJSONReply = "```json\n" + `{"ideas": [
  {"title": "Saving 40%", "angle": "cost", "key_points": ["baseline", "levers"]},
  {"title": "Why Go", "angle": "tooling", "key_points": []},
  {"title": "From IC to lead", "angle": "career"},
  {"title": "Platform as product", "angle": "insight", "key_points": ["users"]},
  {"title": "Migrations", "angle": "lessons", "key_points": ["plan"]}
]}` + "\n```"

// scriptedClient answers by request purpose. Drafts echo their post type so
// later steps can be traced back to it.
type scriptedClient struct {
	mu      sync.Mutex
	calls   []llm.ChatRequest
	replies map[string]string
	fail    map[string]error
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{
		replies: map[string]string{
			"cv_analysis_structured":   profileJSONReply,
			"cv_analysis_labeled":      "Key Areas of Expertise: A, B, C\nIndustry Focus: Tech\n",
			"skills":                   "Go: expert",
			"content_ideas_structured": ideasJSONReply,
			"content_ideas_labeled":    ideasJSONReply,
			"industry_trends":          "AI everywhere",
			"content_calendar":         "Day 1: intro",
			"engagement":               "Ask a question",
		},
		fail: map[string]error{},
	}
}

func (c *scriptedClient) Chat(_ context.Context, req llm.ChatRequest) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	err := c.fail[req.Purpose]
	reply, ok := c.replies[req.Purpose]
	c.mu.Unlock()

	if err != nil {
		return "", err
	}
	if t, isDraft := strings.CutPrefix(req.Purpose, "post_draft_"); isDraft {
		if ferr := c.failFor("draft:" + t); ferr != nil {
			return "", ferr
		}
		return "DRAFT[" + t + "]", nil
	}
	if req.Purpose == "enhance" {
		last := req.Messages[len(req.Messages)-1].Content
		for _, t := range PostTypes {
			if strings.Contains(last, "DRAFT["+string(t)+"]") {
				if ferr := c.failFor("enhance:" + string(t)); ferr != nil {
					return "", ferr
				}
				return "ENHANCED[" + string(t) + "]", nil
			}
		}
		return "", errors.New("enhance: no draft found")
	}
	if !ok {
		return "", errors.New("unexpected purpose " + req.Purpose)
	}
	return reply, nil
}

func (c *scriptedClient) failFor(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fail[key]
}

func (c *scriptedClient) ListModels(context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, llm.ChatRequest{Purpose: "list_models"})
	if err := c.fail["list_models"]; err != nil {
		return nil, err
	}
	return []string{"gpt-4o"}, nil
}

func (c *scriptedClient) purposes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.calls))
	for _, r := range c.calls {
		out = append(out, r.Purpose)
	}
	return out
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type staticSearcher struct {
	items   []news.Item
	queries []string
	mu      sync.Mutex
}

func (s *staticSearcher) Search(_ context.Context, query string) []news.Item {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	return s.items
}

func newTestService(mode string, searcher news.Searcher) *Service {
	return NewService(Options{Model: "test-model", ParseMode: mode, PostConcurrency: 4}, llm.MustPrompts(), searcher)
}

func strPtr(s string) *string {
	return &s
}
