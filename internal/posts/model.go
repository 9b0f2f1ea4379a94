package posts

import "cvposts-backend/internal/news"

// PostType is one of the four content categories generated per request.
type PostType string

const (
	PostAchievement     PostType = "achievement"
	PostSkillHighlight  PostType = "skill_highlight"
	PostCareerJourney   PostType = "career_journey"
	PostIndustryInsight PostType = "industry_insight"
)

// PostTypes lists every post type in response order.
var PostTypes = []PostType{PostAchievement, PostSkillHighlight, PostCareerJourney, PostIndustryInsight}

// Tone is the writing tone requested for the draft.
func (t PostType) Tone() string {
	switch t {
	case PostAchievement:
		return "professional"
	case PostSkillHighlight:
		return "confident"
	case PostCareerJourney:
		return "storytelling"
	case PostIndustryInsight:
		return "thought_leadership"
	default:
		return "professional"
	}
}

// Enhancement is the rewrite style applied to the draft.
func (t PostType) Enhancement() EnhancementStyle {
	switch t {
	case PostSkillHighlight:
		return EnhanceProblemSolution
	case PostIndustryInsight:
		return EnhanceThoughtLeadership
	default:
		return EnhanceStorytelling
	}
}

// EnhancementStyle names a secondary rewriting instruction.
type EnhancementStyle string

const (
	EnhanceStorytelling      EnhancementStyle = "storytelling"
	EnhanceDataDriven        EnhancementStyle = "data_driven"
	EnhanceThoughtLeadership EnhancementStyle = "thought_leadership"
	EnhanceProblemSolution   EnhancementStyle = "problem_solution"
	EnhanceCaseStudy         EnhancementStyle = "case_study"
)

// CVAnalysis is the profile extracted from a CV. List fields are never nil
// once normalized.
type CVAnalysis struct {
	KeyAreasOfExpertise []string `json:"key_areas_of_expertise"`
	IndustryFocus       string   `json:"industry_focus"`
	NotableAchievements string   `json:"notable_achievements"`
	TechnicalSkills     []string `json:"technical_skills"`
	SoftSkills          []string `json:"soft_skills"`
	CareerLevel         string   `json:"career_level"`
	ContentTopics       []string `json:"content_topics"`
}

func (a CVAnalysis) normalized() CVAnalysis {
	a.KeyAreasOfExpertise = nonNil(a.KeyAreasOfExpertise)
	a.TechnicalSkills = nonNil(a.TechnicalSkills)
	a.SoftSkills = nonNil(a.SoftSkills)
	a.ContentTopics = nonNil(a.ContentTopics)
	return a
}

func (a CVAnalysis) isEmpty() bool {
	return len(a.KeyAreasOfExpertise) == 0 && a.IndustryFocus == "" && a.NotableAchievements == "" &&
		len(a.TechnicalSkills) == 0 && len(a.SoftSkills) == 0 && a.CareerLevel == "" && len(a.ContentTopics) == 0
}

// ContentIdea is one suggested post topic.
type ContentIdea struct {
	Title     string   `json:"title"`
	Angle     string   `json:"angle"`
	KeyPoints []string `json:"key_points"`
}

// ContentIdeas maps idea_N keys to ideas.
type ContentIdeas map[string]ContentIdea

// PostStatus tags a PostResult.
type PostStatus string

const (
	StatusSuccess PostStatus = "success"
	StatusError   PostStatus = "error"
)

// PostExtras is the context attached to a successful post.
type PostExtras struct {
	EngagementSuggestions string
	IndustryTrends        *string
	SkillsAnalysis        *string
	RelatedNews           []news.Item
}

// PostResult is the tagged outcome of generating one post. Extras is set
// only for StatusSuccess; Err only for StatusError.
type PostResult struct {
	Type    PostType
	Status  PostStatus
	Content string
	Extras  *PostExtras
	Err     error
}

// OK reports whether the post was generated.
func (r PostResult) OK() bool {
	return r.Status == StatusSuccess
}

func successPost(t PostType, content string, extras PostExtras) PostResult {
	return PostResult{Type: t, Status: StatusSuccess, Content: content, Extras: &extras}
}

func failedPost(t PostType, err error) PostResult {
	return PostResult{Type: t, Status: StatusError, Content: errorContent(t), Err: err}
}

func errorContent(t PostType) string {
	return "Error generating " + string(t) + " post. Please try again."
}

// Generation holds every pipeline output for one request. Nil pointers mark
// steps that failed and were skipped.
type Generation struct {
	Analysis        CVAnalysis
	Ideas           ContentIdeas
	Posts           []PostResult
	IndustryTrends  *string
	ContentCalendar *string
	SkillsAnalysis  *string
	News            []news.Item
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
