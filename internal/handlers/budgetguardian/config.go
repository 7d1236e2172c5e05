// internal/handlers/budgetguardian/config.go
package budgetguardian

import "time"

type Config struct {
	Timeout       time.Duration
	WindowDays    int
	ContextWindow int
	DefaultUserID string

	// AlertsEnabled pushes an overspend notification when the daily debit
	// total crosses DailyLimit.
	AlertsEnabled bool
	DailyLimit    float64
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:       45 * time.Second,
		WindowDays:    1,
		ContextWindow: 5,
		DefaultUserID: "default_user",
	}
}
