package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultModel はどこにも指定がないときに使うモデル。
const DefaultModel = "gpt-4o-mini"

// Config はサービス全体の設定値をまとめる。
type Config struct {
	Server ServerConfig
	OpenAI OpenAIConfig
}

// Load は環境変数から設定を読み込む。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadOpenAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, OpenAI: ai}, nil
}

// ServerConfig は HTTP リスナーの設定。
type ServerConfig struct {
	Addr         string
	FrontendURL  string
	Production   bool
	RateLimitMax int
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "3001"
	}

	addr := port
	if !strings.Contains(port, ":") {
		if strings.Contains(port, " ") {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		addr = ":" + port
	}

	rateLimit := 100
	if override, err := parseOptionalIntEnv("RATE_LIMIT_MAX"); err != nil {
		return ServerConfig{}, err
	} else if override != nil && *override > 0 {
		rateLimit = *override
	}

	return ServerConfig{
		Addr:         addr,
		FrontendURL:  strings.TrimSpace(os.Getenv("FRONTEND_URL")),
		Production:   strings.TrimSpace(os.Getenv("NODE_ENV")) == "production" || strings.TrimSpace(os.Getenv("APP_ENV")) == "production",
		RateLimitMax: rateLimit,
	}, nil
}

// OpenAIConfig は OpenAI API 関連の設定。
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature *float64
	MaxTokens   *int
}

func loadOpenAIConfig() (OpenAIConfig, error) {
	temperature, err := parseOptionalFloatEnv("OPENAI_TEMPERATURE")
	if err != nil {
		return OpenAIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("OPENAI_MAX_TOKENS")
	if err != nil {
		return OpenAIConfig{}, err
	}

	return OpenAIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		Model:       getEnvOrDefault("OPENAI_MODEL", DefaultModel),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
