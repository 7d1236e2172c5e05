// internal/handlers/queryagent/models.go
package queryagent

// Input is the minimal payload the dispatcher sends to every collaborator.
type Input struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// Output carries the narrated answer plus the generated SQL and serialized
// rows for diagnosis by the caller.
type Output struct {
	Message      string                   `json:"message"`
	GeneratedSQL string                   `json:"generated_sql"`
	Data         []map[string]interface{} `json:"data"`
}

// ErrorBody is the structured failure payload; AttemptedSQL is set when the
// pipeline got far enough to generate a query.
type ErrorBody struct {
	Error        string `json:"error"`
	AttemptedSQL string `json:"sql,omitempty"`
}
