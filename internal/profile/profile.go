// Package profile holds the per-process configuration for the tempo
// server, loaded once at startup.
package profile

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev".
	Mode string
	// Addr is the binding address for the server.
	Addr string
	// Port is the binding port for the server.
	Port int
	// Version is the current server version.
	Version string

	// Model endpoint configuration.
	AIBaseURL string // TEMPO_AI_BASE_URL (default: https://api.openai.com/v1)
	AIAPIKey  string // TEMPO_AI_API_KEY
	AIModel   string // TEMPO_AI_MODEL (default: gpt-4o-mini)

	// Token budget per completion.
	AIMaxTokens int // TEMPO_AI_MAX_TOKENS (default: 2048)

	// Retention for usage records and idle sessions, in days.
	RetentionDays int // TEMPO_RETENTION_DAYS (default: 30)

	// Per-user request rate (requests per second) for the HTTP surface.
	RateLimitPerSecond int // TEMPO_RATE_LIMIT_RPS (default: 10)
}

// IsDev returns true unless the profile runs in prod mode.
func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Retention returns the retention window as a duration.
func (p *Profile) Retention() time.Duration {
	return time.Duration(p.RetentionDays) * 24 * time.Hour
}

// FromEnv loads configuration from TEMPO_* environment variables,
// leaving already-set fields alone so flag bindings win.
func (p *Profile) FromEnv() {
	if p.Mode == "" {
		p.Mode = getEnvOrDefault("TEMPO_MODE", "dev")
	}
	if p.Addr == "" {
		p.Addr = os.Getenv("TEMPO_ADDR")
	}
	if p.Port == 0 {
		p.Port = getIntEnvOrDefault("TEMPO_PORT", 8230)
	}
	if p.AIBaseURL == "" {
		p.AIBaseURL = getEnvOrDefault("TEMPO_AI_BASE_URL", "https://api.openai.com/v1")
	}
	if p.AIAPIKey == "" {
		p.AIAPIKey = os.Getenv("TEMPO_AI_API_KEY")
	}
	if p.AIModel == "" {
		p.AIModel = getEnvOrDefault("TEMPO_AI_MODEL", "gpt-4o-mini")
	}
	if p.AIMaxTokens == 0 {
		p.AIMaxTokens = getIntEnvOrDefault("TEMPO_AI_MAX_TOKENS", 2048)
	}
	if p.RetentionDays == 0 {
		p.RetentionDays = getIntEnvOrDefault("TEMPO_RETENTION_DAYS", 30)
	}
	if p.RateLimitPerSecond == 0 {
		p.RateLimitPerSecond = getIntEnvOrDefault("TEMPO_RATE_LIMIT_RPS", 10)
	}
}

// Validate checks the profile for startup-blocking problems.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port: %d", p.Port)
	}
	if p.AIAPIKey == "" {
		return errors.New("model API key is required, set TEMPO_AI_API_KEY")
	}
	if p.RetentionDays <= 0 {
		return errors.Errorf("invalid retention days: %d", p.RetentionDays)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
