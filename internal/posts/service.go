package posts

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"cvposts-backend/internal/llm"
	"cvposts-backend/internal/news"
	"cvposts-backend/internal/shared/telemetry"
)

const (
	ParseModeStructured = "structured"
	ParseModeLabeled    = "labeled"

	defaultCalendarDays = 30
)

// Options tunes the pipeline.
type Options struct {
	Model        string
	ParseMode    string
	CalendarDays int
	// PostConcurrency bounds concurrent post generations. 1 generates the
	// four posts one after another.
	PostConcurrency int
}

// Service runs the CV to posts pipeline against a caller-supplied client.
type Service struct {
	opts          Options
	prompts       llm.Catalogue
	news          news.Searcher
	profileParser ProfileParser
	ideaParser    IdeaParser
}

// NewService builds a Service. A nil searcher disables news lookups.
func NewService(opts Options, prompts llm.Catalogue, searcher news.Searcher) *Service {
	if opts.CalendarDays <= 0 {
		opts.CalendarDays = defaultCalendarDays
	}
	if opts.PostConcurrency < 1 {
		opts.PostConcurrency = 1
	}
	if opts.ParseMode != ParseModeLabeled {
		opts.ParseMode = ParseModeStructured
	}
	return &Service{
		opts:          opts,
		prompts:       prompts,
		news:          searcher,
		profileParser: DefaultProfileParser(),
		ideaParser:    DefaultIdeaParser(),
	}
}

// Generate analyzes cvText once, fans out the supporting analyses, then
// writes the four posts. Only a CV analysis failure is returned as an
// error; every other failure degrades the affected part of the Generation.
func (s *Service) Generate(ctx context.Context, client llm.Client, cvText string) (Generation, error) {
	start := time.Now()
	reqID := telemetry.RequestID(ctx)

	analysis, err := s.AnalyzeCV(ctx, client, cvText)
	if err != nil {
		return Generation{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	telemetry.Info("generation.analysis_complete", map[string]any{
		"request_id":  reqID,
		"industry":    analysis.IndustryFocus,
		"expertise":   len(analysis.KeyAreasOfExpertise),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	gen := Generation{Analysis: analysis}
	expertise := joinComma(analysis.KeyAreasOfExpertise)

	var fan errgroup.Group
	fan.Go(func() error {
		gen.SkillsAnalysis = optional(reqID, "skills", func() (string, error) {
			return s.AnalyzeSkills(ctx, client, cvText)
		})
		return nil
	})
	fan.Go(func() error {
		ideas, err := s.GenerateIdeas(ctx, client, analysis)
		if err != nil {
			logDegraded(reqID, "content_ideas", err)
			return nil
		}
		gen.Ideas = ideas
		return nil
	})
	fan.Go(func() error {
		gen.IndustryTrends = optional(reqID, "industry_trends", func() (string, error) {
			return s.AnalyzeTrends(ctx, client, analysis.IndustryFocus, expertise)
		})
		return nil
	})
	fan.Go(func() error {
		gen.ContentCalendar = optional(reqID, "content_calendar", func() (string, error) {
			return s.GenerateCalendar(ctx, client, analysis, s.opts.CalendarDays)
		})
		return nil
	})
	fan.Go(func() error {
		gen.News = s.searchNews(ctx, analysis)
		return nil
	})
	_ = fan.Wait()

	shared := postContext{
		analysis: analysis,
		ideas:    gen.Ideas,
		skills:   gen.SkillsAnalysis,
		trends:   gen.IndustryTrends,
		news:     gen.News,
	}

	gen.Posts = make([]PostResult, len(PostTypes))
	var writers errgroup.Group
	writers.SetLimit(s.opts.PostConcurrency)
	for i, t := range PostTypes {
		writers.Go(func() error {
			gen.Posts[i] = s.GeneratePost(ctx, client, shared, t)
			return nil
		})
	}
	_ = writers.Wait()

	if err := ctx.Err(); err != nil {
		return gen, err
	}
	return gen, nil
}

func (s *Service) searchNews(ctx context.Context, analysis CVAnalysis) []news.Item {
	if s.news == nil {
		return []news.Item{}
	}
	items := s.news.Search(ctx, news.Query(analysis.IndustryFocus, analysis.KeyAreasOfExpertise))
	if items == nil {
		return []news.Item{}
	}
	return items
}

// optional runs fn and converts a failure into an absent value.
func optional(reqID, step string, fn func() (string, error)) *string {
	out, err := fn()
	if err != nil {
		logDegraded(reqID, step, err)
		return nil
	}
	return &out
}

func logDegraded(reqID, step string, err error) {
	telemetry.Warn("generation.step_degraded", map[string]any{
		"request_id": reqID,
		"step":       step,
		"error":      err,
	})
}
