package models

// Intent is the classified purpose of a user message; it drives routing and
// is never persisted.
type Intent string

const (
	IntentGreeting       Intent = "greeting"
	IntentTransaction    Intent = "transaction"
	IntentGoal           Intent = "goal"
	IntentQuery          Intent = "query"
	IntentBudgetGuardian Intent = "budget_guardian"
	IntentInvestment     Intent = "investment"
	IntentUnknown        Intent = "unknown"
)

// Delegated returns true for intents handled by a collaborator service
// rather than inside the dispatcher.
func (i Intent) Delegated() bool {
	switch i {
	case IntentTransaction, IntentGoal, IntentQuery, IntentBudgetGuardian:
		return true
	}
	return false
}

// ServiceName maps a delegated intent to its collaborator service name.
func (i Intent) ServiceName() string {
	return string(i)
}
