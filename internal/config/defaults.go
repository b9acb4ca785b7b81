package config

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8000
	DefaultEnvironment = "development"
	DefaultAPIPrefix   = "/api/v1"
	DefaultLogLevel    = "info"

	DefaultRateLimitPerMinute = 60

	DefaultDatasetPath = "data/data.csv"

	DefaultProvider     = "ollama"
	DefaultOllamaURL    = "http://localhost:11434"
	DefaultModel        = "qwen3:8b"
	DefaultAgentTimeout = 120 // seconds, whole conversation
	DefaultChatTimeout  = 300 // seconds, per model HTTP call
	DefaultMaxRounds    = 8
	DefaultMaxToolFails = 3

	DefaultCORSMaxAge = 300
)

var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
}

var DefaultSensitiveColumns = []string{
	"email", "phone", "ssn", "social_security_number",
	"credit_card", "password", "secret", "token",
	"api_key", "access_key", "private_key",
}

var DefaultPIIKeywords = []string{
	"password", "ssn", "social security", "credit card",
	"bank account", "pin", "secret", "private key",
	"access token", "api key", "personal data",
}
