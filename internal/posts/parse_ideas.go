package posts

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"cvposts-backend/internal/llm"
)

// IdeaParser turns a model response into numbered content ideas.
type IdeaParser interface {
	ParseIdeas(raw string) (ContentIdeas, error)
}

// IdeaParserChain tries each parser in order and returns the first success.
type IdeaParserChain []IdeaParser

func (c IdeaParserChain) ParseIdeas(raw string) (ContentIdeas, error) {
	var errs []string
	for _, p := range c {
		ideas, err := p.ParseIdeas(raw)
		if err == nil {
			return ideas, nil
		}
		errs = append(errs, causeText(err))
	}
	return nil, fmt.Errorf("%w: %s", ErrUnparseable, strings.Join(errs, " | "))
}

// DefaultIdeaParser prefers schema-valid JSON and falls back to numbered blocks.
func DefaultIdeaParser() IdeaParser {
	return IdeaParserChain{JSONIdeaParser{}, NumberedIdeaParser{}}
}

func ideaKey(n int) string {
	return "idea_" + strconv.Itoa(n)
}

// JSONIdeaParser reads {"ideas":[{"title","angle","key_points"}]}.
type JSONIdeaParser struct{}

func (JSONIdeaParser) ParseIdeas(raw string) (ContentIdeas, error) {
	doc := llm.CleanJSON(raw)
	if err := validateJSON(contentIdeasSchema, doc); err != nil {
		return nil, err
	}
	var payload struct {
		Ideas []ContentIdea `json:"ideas"`
	}
	if err := json.Unmarshal([]byte(doc), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	out := make(ContentIdeas, len(payload.Ideas))
	for i, idea := range payload.Ideas {
		out[ideaKey(i+1)] = ContentIdea{
			Title:     strings.TrimSpace(idea.Title),
			Angle:     strings.TrimSpace(idea.Angle),
			KeyPoints: cleanList(idea.KeyPoints),
		}
	}
	return out, nil
}

// NumberedIdeaParser reads the "1. Title: ... / Angle: ... / - point" layout.
// A line starting with digits and a period opens idea_N and the rest of that
// line is parsed like any other line. Lines before the first idea and lines
// that are not Title, Angle or "-" bullets are ignored.
type NumberedIdeaParser struct{}

func (NumberedIdeaParser) ParseIdeas(raw string) (ContentIdeas, error) {
	ideas := ContentIdeas{}
	var (
		current string
		idea    ContentIdea
	)
	save := func() {
		if current != "" {
			ideas[current] = idea
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if rest, ok := cutNumber(stripMarkers(line)); ok {
			save()
			current = ideaKey(len(ideas) + 1)
			idea = ContentIdea{KeyPoints: []string{}}
			line = rest
			if line == "" {
				continue
			}
		}
		if current == "" {
			continue
		}

		candidate := stripMarkers(line)
		switch {
		case strings.HasPrefix(line, "-"):
			if point := strings.TrimSpace(line[1:]); point != "" {
				idea.KeyPoints = append(idea.KeyPoints, point)
			}
		default:
			if v, ok := matchLabel(candidate, "Title"); ok {
				idea.Title = strings.TrimSpace(strings.Trim(v, `"`))
			} else if v, ok := matchLabel(candidate, "Angle"); ok {
				idea.Angle = v
			}
		}
	}
	save()
	return ideas, nil
}

// cutNumber strips a leading "N." enumeration.
func cutNumber(line string) (string, bool) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) || line[i] != '.' {
		return "", false
	}
	return strings.TrimSpace(line[i+1:]), true
}
