// internal/handlers/transaction/validation.go
package transaction

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// recordSchema rejects malformed model output before anything reaches the
// database.
const recordSchema = `{
	"type": "object",
	"required": ["amount", "transaction_type", "transaction_date", "category"],
	"properties": {
		"amount": {"type": "number", "minimum": 0},
		"transaction_type": {"type": "string", "enum": ["debit", "credit"]},
		"transaction_date": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
		"category": {"type": "string", "enum": ["salary", "grocery", "entertainment", "utility", "restaurant", "transport", "other"]}
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
