package posts

import (
	"fmt"
	"net/http"

	"cvposts-backend/internal/news"
	"cvposts-backend/internal/shared/server/respond"
)

// Response is the success payload of POST /generate-posts.
type Response struct {
	Status          string                 `json:"status"`
	CVAnalysis      CVAnalysis             `json:"cv_analysis"`
	ContentIdeas    map[string]ContentIdea `json:"content_ideas"`
	Posts           []FormattedPost        `json:"posts"`
	IndustryTrends  string                 `json:"industry_trends"`
	ContentCalendar *string                `json:"content_calendar"`
	News            []news.Item            `json:"news"`
	SkillsAnalysis  any                    `json:"skills_analysis"`
}

// FormattedPost is one entry of Response.Posts. Details is present only for
// successful posts.
type FormattedPost struct {
	Type    PostType   `json:"type"`
	Content string     `json:"content"`
	Status  PostStatus `json:"status"`
	*PostDetails
}

// PostDetails carries the extended fields of a successful post.
type PostDetails struct {
	EngagementSuggestions string      `json:"engagement_suggestions"`
	IndustryTrends        string      `json:"industry_trends"`
	SkillsAnalysis        any         `json:"skills_analysis"`
	RelatedNews           []news.Item `json:"related_news"`
}

const formatFailedMessage = "Failed to format response data"

// Format assembles the response payload. It is pure: equal inputs give equal
// output. Panics are recovered and returned as errors.
func Format(g Generation) (resp Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			resp = Response{}
			err = fmt.Errorf("format response: %v", rec)
		}
	}()

	if len(g.Posts) != len(PostTypes) {
		return Response{}, fmt.Errorf("format response: expected %d posts, got %d", len(PostTypes), len(g.Posts))
	}

	posts := make([]FormattedPost, 0, len(g.Posts))
	for _, p := range g.Posts {
		fp := FormattedPost{Type: p.Type, Content: p.Content, Status: p.Status}
		if p.OK() {
			extras := PostExtras{}
			if p.Extras != nil {
				extras = *p.Extras
			}
			fp.PostDetails = &PostDetails{
				EngagementSuggestions: extras.EngagementSuggestions,
				IndustryTrends:        deref(extras.IndustryTrends),
				SkillsAnalysis:        skillsValue(extras.SkillsAnalysis),
				RelatedNews:           formatNews(extras.RelatedNews),
			}
		}
		posts = append(posts, fp)
	}

	ideas := make(map[string]ContentIdea, len(g.Ideas))
	for key, idea := range g.Ideas {
		ideas[key] = ContentIdea{
			Title:     idea.Title,
			Angle:     idea.Angle,
			KeyPoints: nonNil(idea.KeyPoints),
		}
	}

	var calendar *string
	if g.ContentCalendar != nil {
		c := *g.ContentCalendar
		calendar = &c
	}

	return Response{
		Status:          string(StatusSuccess),
		CVAnalysis:      g.Analysis.normalized(),
		ContentIdeas:    ideas,
		Posts:           posts,
		IndustryTrends:  deref(g.IndustryTrends),
		ContentCalendar: calendar,
		News:            formatNews(g.News),
		SkillsAnalysis:  firstSkills(g.Posts),
	}, nil
}

// Render returns the HTTP status and body for g, converting a formatting
// failure into the uniform error payload.
func Render(g Generation) (int, any) {
	resp, err := Format(g)
	if err != nil {
		return http.StatusInternalServerError, respond.ErrorResponse{
			Status:  respond.StatusError,
			Error:   formatFailedMessage,
			Details: err.Error(),
		}
	}
	return http.StatusOK, resp
}

// firstSkills mirrors the per-post skills analysis of the first post, or an
// empty object when it has none.
func firstSkills(posts []PostResult) any {
	if len(posts) == 0 || !posts[0].OK() || posts[0].Extras == nil {
		return map[string]any{}
	}
	return skillsValue(posts[0].Extras.SkillsAnalysis)
}

func skillsValue(s *string) any {
	if s == nil {
		return map[string]any{}
	}
	return *s
}

func formatNews(items []news.Item) []news.Item {
	out := make([]news.Item, 0, len(items))
	out = append(out, items...)
	return out
}
