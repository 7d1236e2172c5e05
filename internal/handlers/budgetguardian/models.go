// internal/handlers/budgetguardian/models.go
package budgetguardian

// Input is the minimal payload the dispatcher sends to every collaborator.
type Input struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// Output mirrors the alerting reply shape consumed by the envelope
// normalizer (a response field rather than a message field).
type Output struct {
	Agent    string `json:"agent"`
	Response string `json:"response"`
}

// SpendingSummary aggregates the recent transaction window.
type SpendingSummary struct {
	Spent      float64 `json:"spent"`
	Earned     float64 `json:"earned"`
	NetBalance float64 `json:"net_balance"`
}

type transaction struct {
	Amount   float64
	Type     string
	Category string
	Date     string
}
