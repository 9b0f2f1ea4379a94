package llm

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed prompts/templates.yaml
var templatesYAML []byte

// Template is one prompt from the embedded catalogue. Fragments such as
// per-post user prompts only carry User.
type Template struct {
	System      string  `yaml:"system"`
	User        string  `yaml:"user"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	JSON        bool    `yaml:"json"`
}

// Catalogue maps template names to templates.
type Catalogue map[string]Template

var (
	catalogueOnce sync.Once
	catalogue     Catalogue
	catalogueErr  error
)

// ParseCatalogue decodes a YAML prompt catalogue.
func ParseCatalogue(raw []byte) (Catalogue, error) {
	var out Catalogue
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse prompt catalogue: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("parse prompt catalogue: no templates")
	}
	return out, nil
}

// Prompts returns the embedded catalogue.
func Prompts() (Catalogue, error) {
	catalogueOnce.Do(func() {
		catalogue, catalogueErr = ParseCatalogue(templatesYAML)
	})
	return catalogue, catalogueErr
}

// MustPrompts is Prompts for program start-up; the catalogue is embedded, so
// failure means a broken build.
func MustPrompts() Catalogue {
	c, err := Prompts()
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the named template.
func (c Catalogue) Get(name string) (Template, error) {
	t, ok := c[name]
	if !ok {
		return Template{}, fmt.Errorf("prompt template %q not found", name)
	}
	return t, nil
}

// Render replaces {{KEY}} placeholders in s with vars[KEY].
func Render(s string, vars map[string]string) string {
	if len(vars) == 0 {
		return s
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(vars)*2)
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// Request renders the template into a chat request for model.
func (t Template) Request(purpose, model string, vars map[string]string) ChatRequest {
	var messages []Message
	if sys := strings.TrimSpace(Render(t.System, vars)); sys != "" {
		messages = append(messages, Message{Role: "system", Content: sys})
	}
	messages = append(messages, Message{Role: "user", Content: Render(t.User, vars)})
	return ChatRequest{
		Purpose:     purpose,
		Model:       model,
		Messages:    messages,
		Temperature: t.Temperature,
		MaxTokens:   t.MaxTokens,
		JSON:        t.JSON,
	}
}
