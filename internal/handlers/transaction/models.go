// internal/handlers/transaction/models.go
package transaction

// Input is the minimal payload the dispatcher sends to every collaborator.
type Input struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// Record is the structured transaction extracted from the raw message.
type Record struct {
	Amount          float64 `json:"amount"`
	TransactionType string  `json:"transaction_type"`
	TransactionDate string  `json:"transaction_date"`
	Category        string  `json:"category"`
}

// Output mirrors the extractor reply shape consumed by the envelope
// normalizer.
type Output struct {
	Message string `json:"message"`
	Data    Record `json:"data"`
}
