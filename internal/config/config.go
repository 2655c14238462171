package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port            int
	LogLevel        string
	AnthropicAPIKey string
	AnthropicModel  string
	LLMRetries      int
	MaxTurns        int
	JudgeProfile    string
	ScoringRules    string
	SessionTTL      time.Duration
	NatsURL         string
	NatsToken       string
	SlackBotToken   string
	SlackChannel    string
	APIToken        string
}

func Load() Config {
	cfg := Config{
		Port:            envInt("ADVOCATE_PORT", 8760),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("ADVOCATE_MODEL", "claude-sonnet-4-20250514"),
		LLMRetries:      envInt("ADVOCATE_LLM_RETRIES", 2),
		MaxTurns:        envInt("ADVOCATE_MAX_TURNS", 3),
		JudgeProfile:    strings.ToLower(envStr("ADVOCATE_JUDGE_PROFILE", "balanced")),
		ScoringRules:    strings.ToLower(envStr("ADVOCATE_SCORING", "canonical")),
		SessionTTL:      envDuration("ADVOCATE_SESSION_TTL", 60*time.Minute),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		SlackBotToken:   envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:    envStr("SLACK_CHANNEL", ""),
		APIToken:        envStr("ADVOCATE_API_TOKEN", ""),
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 3
	}
	if cfg.LLMRetries < 0 {
		cfg.LLMRetries = 0
	}
	return cfg
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

// envDuration accepts Go duration strings ("90m") or a bare number of minutes.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Minute
	}
	return fallback
}
