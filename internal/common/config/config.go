// internal/common/config/config.go
package config

import (
	"strings"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Registry RegistryConfig `mapstructure:"registry"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig points at the collaboration platform backend. The push
// channel scheme is derived from the base URL scheme (https -> wss).
type ServerConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// WebSocketURL converts the REST base URL to the push channel base.
func (s ServerConfig) WebSocketURL() string {
	url := s.BaseURL
	url = strings.Replace(url, "https://", "wss://", 1)
	url = strings.Replace(url, "http://", "ws://", 1)
	return strings.TrimSuffix(url, "/")
}

// AuthConfig holds settings for the platform token endpoint.
type AuthConfig struct {
	TokenURL     string `mapstructure:"token_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	// StaticToken bypasses the token endpoint when set (tests, dev).
	StaticToken string `mapstructure:"static_token"`
}

// RealtimeConfig controls push channel lifecycle behavior.
type RealtimeConfig struct {
	BackoffBase    int  `mapstructure:"backoff_base"`     // milliseconds
	BackoffCap     int  `mapstructure:"backoff_cap"`      // milliseconds
	SendPingOnOpen bool `mapstructure:"send_ping_on_open"`
	PingInterval   int  `mapstructure:"ping_interval"` // milliseconds, 0 disables
}

// BackoffBaseDuration returns the reconnect backoff base.
func (r RealtimeConfig) BackoffBaseDuration() time.Duration {
	return time.Duration(r.BackoffBase) * time.Millisecond
}

// BackoffCapDuration returns the reconnect backoff cap.
func (r RealtimeConfig) BackoffCapDuration() time.Duration {
	return time.Duration(r.BackoffCap) * time.Millisecond
}

// ChatConfig holds chat session settings.
type ChatConfig struct {
	HistoryPageLimit int `mapstructure:"history_page_limit"`
}

// RegistryConfig points at the event contract registry file.
type RegistryConfig struct {
	Path   string `mapstructure:"path"`
	Strict bool   `mapstructure:"strict"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
