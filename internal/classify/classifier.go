// Package classify maps raw user text to an intent with layered rules:
// exact greeting match, investment keyword match, completion-service
// fallback, then a keyword override that corrects the model's systematic
// confusion between generic queries and budget-alert queries.
package classify

import (
	"context"
	"fmt"
	"strings"

	"finassist/internal/common/bedrock"
	"finassist/internal/common/logger"
	"finassist/internal/common/metrics"
	"finassist/internal/models"
)

var greetings = map[string]struct{}{
	"hi":    {},
	"hello": {},
	"hey":   {},
	"heya":  {},
	"yo":    {},
}

var investmentKeywords = []string{
	"invest", "investment", "returns", "mutual fund", "stock", "sip", "etf", "portfolio",
}

// budgetKeywords trigger the budget_guardian override when the model answers
// "query" for text that is really about spending alerts or daily limits.
var budgetKeywords = []string{
	"today", "week", "daily", "limit", "over budget", "spent",
}

const classificationPrompt = `You are a financial assistant intent classifier. Classify the user input into one of these categories:

1. transaction - money spent or received
2. goal - saving or future targets
3. query - general finance questions or data requests
4. budget_guardian - user asking about spending alerts or daily budget status

Respond with only one word: transaction, goal, query, or budget_guardian.

Input: "%s"
`

type Classifier struct {
	completer bedrock.Completer
	logger    logger.Logger
}

func NewClassifier(completer bedrock.Completer, log logger.Logger) *Classifier {
	return &Classifier{
		completer: completer,
		logger:    log.WithFields(map[string]interface{}{"component": "classifier"}),
	}
}

// Classify never fails: any completion error or unexpected label maps to
// IntentUnknown rather than surfacing an error to the dispatcher.
func (c *Classifier) Classify(ctx context.Context, text string) models.Intent {
	cleaned := strings.ToLower(strings.TrimSpace(text))

	if _, ok := greetings[cleaned]; ok {
		return models.IntentGreeting
	}

	for _, k := range investmentKeywords {
		if strings.Contains(cleaned, k) {
			return models.IntentInvestment
		}
	}

	// Tight generation bounds to encourage a deterministic single-word answer.
	answer, err := c.completer.Complete(ctx, fmt.Sprintf(classificationPrompt, text), bedrock.Options{
		MaxTokens:   50,
		Temperature: 0.3,
	})
	if err != nil {
		metrics.CompletionCalls.WithLabelValues("classifier", "error").Inc()
		c.logger.WithError(err).Warn("intent classification fell back to unknown", map[string]interface{}{})
		return models.IntentUnknown
	}
	metrics.CompletionCalls.WithLabelValues("classifier", "ok").Inc()

	label := strings.ToLower(strings.TrimSpace(answer))

	if label == "query" && containsAny(cleaned, budgetKeywords) {
		label = string(models.IntentBudgetGuardian)
	}

	switch models.Intent(label) {
	case models.IntentTransaction, models.IntentGoal, models.IntentQuery, models.IntentBudgetGuardian:
		return models.Intent(label)
	}

	c.logger.Warn("unexpected classification label", map[string]interface{}{"label": label})
	return models.IntentUnknown
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
