// internal/handlers/transaction/config.go
package transaction

import "time"

type Config struct {
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{Timeout: 45 * time.Second}
}
