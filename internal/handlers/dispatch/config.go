// internal/handlers/dispatch/config.go
package dispatch

import "time"

type Config struct {
	// Timeout bounds the whole turn: classification, delegation and reply
	// synthesis together.
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{Timeout: 60 * time.Second}
}
