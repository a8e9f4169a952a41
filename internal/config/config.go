package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port              int
	StoreDriver       string
	DatabaseURL       string
	RedisURL          string
	LogLevel          string
	OpenAIAPIKey      string
	OpenAIModel       string
	PromptPath        string
	NatsURL           string
	SlackBotToken     string
	SlackLeadsChannel string
}

func Load() Config {
	return Config{
		Port:              envInt("PORT", 8080),
		StoreDriver:       envStr("STORE_DRIVER", "postgres"),
		DatabaseURL:       envStr("DATABASE_URL", ""),
		RedisURL:          envStr("REDIS_URL", ""),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		OpenAIAPIKey:      envStr("OPENAI_API_KEY", ""),
		OpenAIModel:       envStr("OPENAI_MODEL", "gpt-4o-mini"),
		PromptPath:        envStr("PROMPT_PATH", ""),
		NatsURL:           envStr("NATS_URL", ""),
		SlackBotToken:     envStr("SLACK_BOT_TOKEN", ""),
		SlackLeadsChannel: envStr("SLACK_LEADS_CHANNEL", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
