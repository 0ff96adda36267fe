package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const verdictSchemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["score", "feedback", "status", "is_ai_suspected"],
	"properties": {
		"score": {"type": "integer", "minimum": 0, "maximum": 100},
		"feedback": {"type": "string"},
		"status": {"type": "string", "enum": ["Pass", "Fail"]},
		"is_ai_suspected": {"type": "boolean"}
	}
}`

var verdictSchema = jsonschema.MustCompileString("verdict.schema.json", verdictSchemaJSON)

// ParseVerdict decodes raw grader output and enforces the verdict contract:
// all four fields present, score an integer within [0, 100], status exactly
// Pass or Fail. Any deviation is an error the caller degrades on.
func ParseVerdict(content string) (Verdict, error) {
	cleaned := stripCodeFences(content)

	var probe interface{}
	if err := json.Unmarshal([]byte(cleaned), &probe); err != nil {
		return Verdict{}, fmt.Errorf("parse verdict json: %w", err)
	}
	if err := verdictSchema.Validate(probe); err != nil {
		return Verdict{}, fmt.Errorf("verdict shape: %w", err)
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(cleaned), &verdict); err != nil {
		return Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	return verdict, nil
}

// stripCodeFences removes a Markdown fence wrapper some models add despite
// the JSON response mime type.
func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

func graderSystemPrompt() string {
	return "Role: You are a strict senior computer science professor grading a timed coding challenge. " +
		"Task 1: grade the submitted code harshly for correctness against the challenge description, then efficiency and style. " +
		"Task 2: judge whether the code was generated by an AI assistant rather than written under time pressure " +
		"(over-polished prose comments, tutorial phrasing, boilerplate disclaimers). " +
		"Respond with only a JSON object of the form " +
		`{"score": <integer 0-100>, "feedback": "<one or two short sentences>", "status": "Pass" or "Fail", "is_ai_suspected": <boolean>}.`
}

func buildGradePrompt(req GradeRequest) string {
	builder := strings.Builder{}
	builder.WriteString("# Challenge\n")
	builder.WriteString(req.Title)
	builder.WriteString("\n\n## Description\n")
	builder.WriteString(req.Description)
	builder.WriteString("\n\n## Language\n")
	builder.WriteString(req.Language)
	builder.WriteString("\n\n## Submitted Code\n")
	builder.WriteString(req.Code)
	builder.WriteString("\n\nReturn only the JSON verdict.")
	return builder.String()
}
