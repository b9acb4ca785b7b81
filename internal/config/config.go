package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Environment string `json:"environment"`
	APIPrefix   string `json:"api_prefix"`
	LogLevel    string `json:"log_level"`

	// CORS
	CORSOrigins []string `json:"cors_origins"`

	// Auth
	APIKeyHeader string   `json:"api_key_header"`
	APIKeys      []string `json:"api_keys"`
	EnableAuth   bool     `json:"enable_auth"`

	// Rate Limiting
	RateLimitPerMinute int `json:"rate_limit_per_minute"`

	// Dataset
	DatasetPath string `json:"dataset_path"`

	// Model endpoint
	Provider         string `json:"provider"` // "ollama" | "anthropic"
	OllamaURL        string `json:"ollama_url"`
	Model            string `json:"model"`
	AnthropicAPIKey  string `json:"anthropic_api_key"`
	AnthropicBaseURL string `json:"anthropic_base_url"` // override for custom proxy

	// Agent loop
	AgentTimeout    int `json:"agent_timeout"`     // seconds, whole conversation
	ChatTimeout     int `json:"chat_timeout"`      // seconds, per model HTTP call
	MaxRounds       int `json:"max_rounds"`        // model rounds per question
	MaxToolFailures int `json:"max_tool_failures"` // consecutive failures before giving up

	// Security
	EnableDataMasking  bool     `json:"enable_data_masking"`
	EnablePIIDetection bool     `json:"enable_pii_detection"`
	SensitiveColumns   []string `json:"sensitive_columns"`
	PIIKeywords        []string `json:"pii_keywords"`
	EnableAuditLogging bool     `json:"enable_audit_logging"`
}

func Load() (*Config, error) {
	// A .env file next to the binary is optional; real environment wins.
	_ = godotenv.Load()

	cfg := &Config{
		Host:               DefaultHost,
		Port:               DefaultPort,
		Environment:        DefaultEnvironment,
		APIPrefix:          DefaultAPIPrefix,
		LogLevel:           DefaultLogLevel,
		CORSOrigins:        DefaultCORSOrigins,
		APIKeyHeader:       "X-API-Key",
		EnableAuth:         true,
		RateLimitPerMinute: DefaultRateLimitPerMinute,
		DatasetPath:        DefaultDatasetPath,
		Provider:           DefaultProvider,
		OllamaURL:          DefaultOllamaURL,
		Model:              DefaultModel,
		AgentTimeout:       DefaultAgentTimeout,
		ChatTimeout:        DefaultChatTimeout,
		MaxRounds:          DefaultMaxRounds,
		MaxToolFailures:    DefaultMaxToolFails,
		EnableDataMasking:  true,
		EnablePIIDetection: true,
		SensitiveColumns:   DefaultSensitiveColumns,
		PIIKeywords:        DefaultPIIKeywords,
		EnableAuditLogging: true,
	}

	// Load from JSON config file if specified
	if path := getEnv("CSVAGENT_CONFIG", ""); path != "" {
		if err := loadJSON(path, cfg); err != nil {
			return nil, err
		}
	}

	// Environment overrides
	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadJSON(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := getEnv("CSVAGENT_HOST", ""); v != "" {
		cfg.Host = v
	}
	if v := getEnv("CSVAGENT_PORT", ""); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := getEnv("CSVAGENT_ENV", ""); v != "" {
		cfg.Environment = v
	}
	if v := getEnv("CSVAGENT_LOG_LEVEL", ""); v != "" {
		cfg.LogLevel = v
	}
	if v := getEnv("CSVAGENT_API_KEYS", ""); v != "" {
		cfg.APIKeys = strings.Split(v, ",")
	}
	if v := getEnv("CSV_PATH", ""); v != "" {
		cfg.DatasetPath = v
	}
	if v := getEnv("PROVIDER", ""); v != "" {
		cfg.Provider = v
	}
	if v := getEnv("OLLAMA_URL", ""); v != "" {
		cfg.OllamaURL = v
	}
	if v := getEnv("MODEL", ""); v != "" {
		cfg.Model = v
	}
	if v := getEnv("ANTHROPIC_API_KEY", ""); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := getEnv("ANTHROPIC_BASE_URL", ""); v != "" {
		cfg.AnthropicBaseURL = v
	}
	if v := getEnv("AGENT_TIMEOUT", ""); v != "" {
		if t, err := strconv.Atoi(v); err == nil {
			cfg.AgentTimeout = t
		}
	}
	if v := getEnv("CHAT_TIMEOUT", ""); v != "" {
		if t, err := strconv.Atoi(v); err == nil {
			cfg.ChatTimeout = t
		}
	}
	if v := getEnv("MAX_ROUNDS", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRounds = n
		}
	}
	if v := getEnv("MAX_TOOL_FAILURES", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxToolFailures = n
		}
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		if r, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitPerMinute = r
		}
	}
	if v := getEnv("ENABLE_AUTH", ""); v != "" {
		cfg.EnableAuth = v == "true" || v == "1"
	}
	if v := getEnv("ENABLE_DATA_MASKING", ""); v != "" {
		cfg.EnableDataMasking = v == "true" || v == "1"
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
