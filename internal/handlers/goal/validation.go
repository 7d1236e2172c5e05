// internal/handlers/goal/validation.go
package goal

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const recordSchema = `{
	"type": "object",
	"required": ["goal_name", "target_amount", "category"],
	"properties": {
		"goal_name": {"type": "string", "minLength": 1},
		"target_amount": {"type": "number", "minimum": 0},
		"target_date": {"type": ["string", "null"], "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
		"category": {"type": "string"}
	}
}`

var fenceMarkers = regexp.MustCompile("```json|```")

func stripFences(raw string) string {
	return strings.TrimSpace(fenceMarkers.ReplaceAllString(raw, ""))
}

func validateRecord(jsonText string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(recordSchema),
		gojsonschema.NewStringLoader(jsonText),
	)
	if err != nil {
		return err
	}
	if !result.Valid() {
		var reasons []string
		for _, e := range result.Errors() {
			reasons = append(reasons, e.String())
		}
		return fmt.Errorf("schema validation failed: %s", strings.Join(reasons, "; "))
	}
	return nil
}
