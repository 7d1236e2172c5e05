// internal/handlers/queryagent/config.go
package queryagent

import "time"

type Config struct {
	Timeout       time.Duration
	ContextWindow int
	DefaultUserID string
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:       60 * time.Second,
		ContextWindow: 5,
		DefaultUserID: "default_user",
	}
}
