package posts

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const cvAnalysisSchemaJSON = `{
  "type": "object",
  "minProperties": 1,
  "definitions": {
    "stringOrList": {
      "anyOf": [
        {"type": "string"},
        {"type": "array", "items": {"type": "string"}}
      ]
    }
  },
  "properties": {
    "key_areas_of_expertise": {"$ref": "#/definitions/stringOrList"},
    "industry_focus": {"type": "string"},
    "notable_achievements": {"$ref": "#/definitions/stringOrList"},
    "technical_skills": {"$ref": "#/definitions/stringOrList"},
    "soft_skills": {"$ref": "#/definitions/stringOrList"},
    "career_level": {"type": "string"},
    "content_topics": {"$ref": "#/definitions/stringOrList"}
  }
}`

const contentIdeasSchemaJSON = `{
  "type": "object",
  "required": ["ideas"],
  "properties": {
    "ideas": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["title"],
        "properties": {
          "title": {"type": "string"},
          "angle": {"type": "string"},
          "key_points": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

var (
	cvAnalysisSchema   = mustSchema(cvAnalysisSchemaJSON)
	contentIdeasSchema = mustSchema(contentIdeasSchemaJSON)
)

func mustSchema(raw string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return s
}

// validateJSON checks doc against schema and reports every violation.
func validateJSON(schema *gojsonschema.Schema, doc string) error {
	res, err := schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: schema validation failed: %s", ErrUnparseable, strings.Join(msgs, "; "))
}
