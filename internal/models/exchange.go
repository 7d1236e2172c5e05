package models

import "time"

// Exchange is one user/assistant turn in the conversational memory log.
type Exchange struct {
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}
