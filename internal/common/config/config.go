// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig                `mapstructure:"app"`
	Server    ServerConfig             `mapstructure:"server"`
	Database  DatabaseConfig           `mapstructure:"database"`
	Bedrock   BedrockConfig            `mapstructure:"bedrock"`
	Delegates DelegatesConfig          `mapstructure:"delegates"`
	Memory    MemoryConfig             `mapstructure:"memory"`
	Alerts    AlertsConfig             `mapstructure:"alerts"`
	Handlers  map[string]HandlerConfig `mapstructure:"handlers"`
	Logging   LoggingConfig            `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`  // seconds
	WriteTimeout int `mapstructure:"write_timeout"` // seconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// BedrockConfig holds the completion service settings.
type BedrockConfig struct {
	Region  string `mapstructure:"region"`
	ModelID string `mapstructure:"model_id"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

func (b BedrockConfig) TimeoutDuration() time.Duration {
	return time.Duration(b.Timeout) * time.Millisecond
}

// DelegatesConfig maps collaborator service names to their base URLs.
type DelegatesConfig struct {
	BaseURLs   map[string]string `mapstructure:"base_urls"`
	Timeout    int               `mapstructure:"timeout"` // milliseconds
	MaxRetries int               `mapstructure:"max_retries"`
}

func (d DelegatesConfig) TimeoutDuration() time.Duration {
	return time.Duration(d.Timeout) * time.Millisecond
}

// MemoryConfig bounds the per-user conversational exchange log.
type MemoryConfig struct {
	MaxExchanges  int `mapstructure:"max_exchanges"`
	ContextWindow int `mapstructure:"context_window"`
	TTL           int `mapstructure:"ttl"` // seconds, 0 disables expiry
}

func (m MemoryConfig) TTLDuration() time.Duration {
	return time.Duration(m.TTL) * time.Second
}

// AlertsConfig controls the budget guardian's overspend push notifications.
type AlertsConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	SNSTopicARN string  `mapstructure:"sns_topic_arn"`
	Region      string  `mapstructure:"region"`
	DailyLimit  float64 `mapstructure:"daily_limit"`
}

// HandlerConfig holds the core settings applicable to every handler.
type HandlerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Timeout int  `mapstructure:"timeout"` // milliseconds
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
