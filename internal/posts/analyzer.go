package posts

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"cvposts-backend/internal/llm"
)

func (s *Service) request(name string, vars map[string]string) (llm.ChatRequest, error) {
	tmpl, err := s.prompts.Get(name)
	if err != nil {
		return llm.ChatRequest{}, err
	}
	return tmpl.Request(name, s.opts.Model, vars), nil
}

func (s *Service) call(ctx context.Context, client llm.Client, name string, vars map[string]string) (string, error) {
	req, err := s.request(name, vars)
	if err != nil {
		return "", err
	}
	out, err := client.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// AnalyzeCV extracts the seven profile fields from cvText.
func (s *Service) AnalyzeCV(ctx context.Context, client llm.Client, cvText string) (CVAnalysis, error) {
	name := "cv_analysis_structured"
	if s.opts.ParseMode == ParseModeLabeled {
		name = "cv_analysis_labeled"
	}
	raw, err := s.call(ctx, client, name, map[string]string{"CV_TEXT": cvText})
	if err != nil {
		return CVAnalysis{}, err
	}
	return s.profileParser.ParseProfile(raw)
}

// AnalyzeSkills returns the model's skills taxonomy as opaque text.
func (s *Service) AnalyzeSkills(ctx context.Context, client llm.Client, cvText string) (string, error) {
	return s.call(ctx, client, "skills", map[string]string{"CV_TEXT": cvText})
}

// AnalyzeTrends returns trend analysis text for an industry.
func (s *Service) AnalyzeTrends(ctx context.Context, client llm.Client, industry, expertise string) (string, error) {
	return s.call(ctx, client, "industry_trends", map[string]string{
		"INDUSTRY":  industry,
		"EXPERTISE": expertise,
	})
}

// GenerateIdeas asks for five content ideas and parses them.
func (s *Service) GenerateIdeas(ctx context.Context, client llm.Client, a CVAnalysis) (ContentIdeas, error) {
	name := "content_ideas_structured"
	if s.opts.ParseMode == ParseModeLabeled {
		name = "content_ideas_labeled"
	}
	raw, err := s.call(ctx, client, name, profileVars(a))
	if err != nil {
		return nil, err
	}
	return s.ideaParser.ParseIdeas(raw)
}

// GenerateCalendar returns a content calendar covering days.
func (s *Service) GenerateCalendar(ctx context.Context, client llm.Client, a CVAnalysis, days int) (string, error) {
	vars := profileVars(a)
	vars["DAYS"] = strconv.Itoa(days)
	return s.call(ctx, client, "content_calendar", vars)
}

func profileVars(a CVAnalysis) map[string]string {
	return map[string]string{
		"EXPERTISE":        joinComma(a.KeyAreasOfExpertise),
		"INDUSTRY":         a.IndustryFocus,
		"CAREER_LEVEL":     a.CareerLevel,
		"TOPICS":           joinComma(a.ContentTopics),
		"TECHNICAL_SKILLS": joinComma(a.TechnicalSkills),
		"ACHIEVEMENTS":     a.NotableAchievements,
	}
}

func joinComma(items []string) string {
	return strings.Join(items, ", ")
}
