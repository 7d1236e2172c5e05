// internal/handlers/goal/models.go
package goal

// Input is the minimal payload the dispatcher sends to every collaborator.
type Input struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// Record is the structured goal extracted from the raw message. TargetDate
// is a pointer because the model is allowed to answer null when no date or
// timespan can be derived.
type Record struct {
	GoalName     string  `json:"goal_name"`
	TargetAmount float64 `json:"target_amount"`
	TargetDate   *string `json:"target_date"`
	Category     string  `json:"category"`
}

// Output mirrors the extractor reply shape consumed by the envelope
// normalizer.
type Output struct {
	Message string `json:"message"`
	Data    Record `json:"data"`
}
