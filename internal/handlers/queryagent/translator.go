// internal/handlers/queryagent/translator.go
package queryagent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"finassist/internal/common/bedrock"
	"finassist/internal/common/metrics"
)

// schemaPrompt documents the exact two-relation schema and the two fixed
// date-arithmetic conventions the generated SQL must follow.
const schemaPrompt = `You are an expert financial SQL assistant.
You will receive user's conversation context and question.
Generate a valid PostgreSQL query based on the following tables:

Table: transactions
- id (serial primary key)
- amount (numeric)
- transaction_type (text)  -- 'credit' or 'debit'
- transaction_date (date)
- category (text)
- raw_message (text)
- created_at (timestamp)

Table: goal
- id (serial primary key)
- goal_name (text)
- target_amount (numeric)
- target_date (date)
- category (text)
- raw_message (text)

Rules:
1. Always use age(date1, date2) for date differences.
2. To calculate remaining months: EXTRACT(MONTH FROM age(target_date, CURRENT_DATE)).
3. Return only a valid SQL query - no markdown or explanations.

User Context: %s
User Question: '%s'
`

var codeFence = regexp.MustCompile("```sql|```")

// translate obtains a SQL query for the question from the completion
// service and strips residual code-fence markers. The result is untrusted
// and must pass validateQuery before execution.
func (h *Handler) translate(ctx context.Context, question, memoryContext string) (string, error) {
	prompt := fmt.Sprintf(schemaPrompt, memoryContext, question)

	raw, err := h.completer.Complete(ctx, prompt, bedrock.Options{
		MaxTokens:   400,
		Temperature: 0.3,
		TopP:        0.9,
	})
	if err != nil {
		metrics.CompletionCalls.WithLabelValues("translator", "error").Inc()
		return "", fmt.Errorf("%w: %v", ErrQueryGenerationFailed, err)
	}
	metrics.CompletionCalls.WithLabelValues("translator", "ok").Inc()

	query := strings.TrimSpace(codeFence.ReplaceAllString(raw, ""))
	if query == "" {
		return "", fmt.Errorf("%w: model returned empty query", ErrQueryGenerationFailed)
	}
	return query, nil
}
