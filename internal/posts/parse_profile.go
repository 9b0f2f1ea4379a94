package posts

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"cvposts-backend/internal/llm"
)

// ProfileParser turns a model response into a CVAnalysis.
type ProfileParser interface {
	ParseProfile(raw string) (CVAnalysis, error)
}

// ProfileParserChain tries each parser in order and returns the first success.
type ProfileParserChain []ProfileParser

func (c ProfileParserChain) ParseProfile(raw string) (CVAnalysis, error) {
	var errs []string
	for _, p := range c {
		a, err := p.ParseProfile(raw)
		if err == nil {
			return a, nil
		}
		errs = append(errs, causeText(err))
	}
	return CVAnalysis{}, fmt.Errorf("%w: %s", ErrUnparseable, strings.Join(errs, " | "))
}

// causeText drops the ErrUnparseable prefix so a chain reports it once.
func causeText(err error) string {
	return strings.TrimPrefix(err.Error(), ErrUnparseable.Error()+": ")
}

// DefaultProfileParser prefers schema-valid JSON and falls back to labeled lines.
func DefaultProfileParser() ProfileParser {
	return ProfileParserChain{JSONProfileParser{}, LabeledProfileParser{}}
}

// JSONProfileParser reads the structured-output JSON object.
type JSONProfileParser struct{}

// List fields and achievements arrive either as a JSON array or as one
// string, depending on the model.
type profileJSON struct {
	KeyAreasOfExpertise json.RawMessage `json:"key_areas_of_expertise"`
	IndustryFocus       string          `json:"industry_focus"`
	NotableAchievements json.RawMessage `json:"notable_achievements"`
	TechnicalSkills     json.RawMessage `json:"technical_skills"`
	SoftSkills          json.RawMessage `json:"soft_skills"`
	CareerLevel         string          `json:"career_level"`
	ContentTopics       json.RawMessage `json:"content_topics"`
}

func (JSONProfileParser) ParseProfile(raw string) (CVAnalysis, error) {
	doc := llm.CleanJSON(raw)
	if err := validateJSON(cvAnalysisSchema, doc); err != nil {
		return CVAnalysis{}, err
	}
	var p profileJSON
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return CVAnalysis{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	a := CVAnalysis{
		KeyAreasOfExpertise: listValue(p.KeyAreasOfExpertise),
		IndustryFocus:       strings.TrimSpace(p.IndustryFocus),
		NotableAchievements: achievementsText(p.NotableAchievements),
		TechnicalSkills:     listValue(p.TechnicalSkills),
		SoftSkills:          listValue(p.SoftSkills),
		CareerLevel:         strings.TrimSpace(p.CareerLevel),
		ContentTopics:       listValue(p.ContentTopics),
	}.normalized()
	if a.isEmpty() {
		return CVAnalysis{}, fmt.Errorf("%w: no profile fields", ErrUnparseable)
	}
	return a, nil
}

// achievementsText accepts either a string or a list of strings.
func achievementsText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(cleanList(list), "\n")
	}
	return ""
}

// listValue accepts a list of strings or a comma separated string.
func listValue(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return cleanList(list)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return splitList(s)
	}
	return nil
}

// LabeledProfileParser reads "Label: value" lines. Lines that do not open a
// label continue the current field.
type LabeledProfileParser struct{}

type profileField struct {
	label string
	list  bool
	set   func(a *CVAnalysis, text string, items []string)
}

var profileFields = []profileField{
	{label: "Key Areas of Expertise", list: true, set: func(a *CVAnalysis, _ string, v []string) { a.KeyAreasOfExpertise = v }},
	{label: "Industry Focus", set: func(a *CVAnalysis, v string, _ []string) { a.IndustryFocus = v }},
	{label: "Notable Achievements", set: func(a *CVAnalysis, v string, _ []string) { a.NotableAchievements = v }},
	{label: "Technical Skills", list: true, set: func(a *CVAnalysis, _ string, v []string) { a.TechnicalSkills = v }},
	{label: "Soft Skills", list: true, set: func(a *CVAnalysis, _ string, v []string) { a.SoftSkills = v }},
	{label: "Career Level", set: func(a *CVAnalysis, v string, _ []string) { a.CareerLevel = v }},
	{label: "Content Topics", list: true, set: func(a *CVAnalysis, _ string, v []string) { a.ContentTopics = v }},
}

var enumeration = regexp.MustCompile(`^\d+[.)]\s*`)

func (LabeledProfileParser) ParseProfile(raw string) (CVAnalysis, error) {
	var (
		a       CVAnalysis
		current *profileField
		buf     []string
		found   int
	)
	flush := func() {
		if current == nil || len(buf) == 0 {
			return
		}
		joined := strings.Join(buf, "\n")
		if current.list {
			current.set(&a, "", splitList(joined))
		} else {
			current.set(&a, joined, nil)
		}
		found++
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if field, value, ok := matchProfileLabel(line); ok {
			flush()
			current = field
			buf = buf[:0]
			if value != "" {
				buf = append(buf, value)
			}
			continue
		}
		if current != nil {
			buf = append(buf, line)
		}
	}
	flush()

	if found == 0 {
		return CVAnalysis{}, fmt.Errorf("%w: no labeled fields", ErrUnparseable)
	}
	return a.normalized(), nil
}

func matchProfileLabel(line string) (*profileField, string, bool) {
	candidate := stripMarkers(line)
	candidate = stripMarkers(enumeration.ReplaceAllString(candidate, ""))
	for i := range profileFields {
		if value, ok := matchLabel(candidate, profileFields[i].label); ok {
			return &profileFields[i], value, true
		}
	}
	return nil, "", false
}

// matchLabel reports whether s opens with label followed by a colon, allowing
// markdown emphasis around the label, and returns the trimmed remainder.
func matchLabel(s, label string) (string, bool) {
	if len(s) < len(label) || !strings.EqualFold(s[:len(label)], label) {
		return "", false
	}
	rest := strings.TrimLeft(s[len(label):], "* ")
	if !strings.HasPrefix(rest, ":") {
		return "", false
	}
	value := strings.TrimLeft(rest[1:], "* ")
	return strings.TrimSpace(strings.TrimRight(value, "* ")), true
}

func stripMarkers(s string) string {
	return strings.TrimLeft(s, "#* ")
}

func splitList(s string) []string {
	return cleanList(strings.Split(s, ","))
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
