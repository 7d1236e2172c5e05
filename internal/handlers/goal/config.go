// internal/handlers/goal/config.go
package goal

import "time"

type Config struct {
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{Timeout: 45 * time.Second}
}
