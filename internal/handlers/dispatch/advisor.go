// internal/handlers/dispatch/advisor.go
package dispatch

import (
	"context"
	"fmt"

	"finassist/internal/common/bedrock"
	"finassist/internal/common/metrics"
)

// Advisor produces investment guidance. Investment questions are answered
// inside the dispatcher instead of being delegated.
type Advisor interface {
	Advise(ctx context.Context, text string) (string, error)
}

const advisorPrompt = `You are an experienced financial advisor. Based on the current market environment, inflation trends, and general risk tolerance, suggest the 5 best investment options for an Indian investor. Before suggesting anything do a clear analysis of the instruments you will be suggesting and verify their performance.

Remember you are an advisor, not a language model.

Consider the factors mentioned below; if not provided you already know the best factors.
User query: "%s"

If the user is asking a yes/no question, answer it that way: start with "Yes, this will go up because ..." or "No, this will not go up due to ...".`

type CompletionAdvisor struct {
	completer bedrock.Completer
}

func NewCompletionAdvisor(completer bedrock.Completer) *CompletionAdvisor {
	return &CompletionAdvisor{completer: completer}
}

func (a *CompletionAdvisor) Advise(ctx context.Context, text string) (string, error) {
	answer, err := a.completer.Complete(ctx, fmt.Sprintf(advisorPrompt, text), bedrock.Options{
		MaxTokens:   300,
		Temperature: 0.5,
	})
	if err != nil {
		metrics.CompletionCalls.WithLabelValues("advisor", "error").Inc()
		return "", err
	}
	metrics.CompletionCalls.WithLabelValues("advisor", "ok").Inc()
	return answer, nil
}
