package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	// Environment
	Environment string
	Port        string

	// Database
	DatabaseURL string

	// Parse limits applied to every request
	MaxItemsPerSet int
	MaxTotalItems  int
	MaxTokens      int

	// Scoring thresholds (component weights stay code defaults; these
	// are the knobs operators actually reach for)
	ClarityThreshold       float64
	ClarificationThreshold float64
	MaxResults             int

	// LLM API Keys (clarification phrasing only; parsing never calls out)
	OpenAIAPIKey string // OpenAI API key for GPT models
	GeminiAPIKey string // Google Gemini API key
	LLMProvider  string // "openai" or "gemini"

	// ClarifierEnabled gates LLM-phrased clarification questions; the
	// deterministic template path always works without it
	ClarifierEnabled bool
	ClarifyModel     string // model used to phrase clarification questions

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse

	// AWS (CloudWatch metrics, production only)
	AWSRegion string

	// Auth mode
	// - "none": No auth (self-hosted, local dev)
	// - "gateway": Trust X-User-* headers from maestro-cloud
	// - "jwt": Validate bearer tokens locally
	AuthMode  string
	JWTSecret string
}

func Load() *Config {
	return &Config{
		Environment:            getEnv("ENVIRONMENT", "development"),
		Port:                   getEnv("PORT", "8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		MaxItemsPerSet:         getEnvInt("MAESTRO_MAX_ITEMS_PER_SET", 2000),
		MaxTotalItems:          getEnvInt("MAESTRO_MAX_TOTAL_ITEMS", 20000),
		MaxTokens:              getEnvInt("MAESTRO_MAX_TOKENS", 64),
		ClarityThreshold:       getEnvFloat("MAESTRO_CLARITY_THRESHOLD", 0.15),
		ClarificationThreshold: getEnvFloat("MAESTRO_CLARIFICATION_THRESHOLD", 0.5),
		MaxResults:             getEnvInt("MAESTRO_MAX_RESULTS", 5),
		OpenAIAPIKey:           getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:           getEnv("GEMINI_API_KEY", ""),
		LLMProvider:            getEnv("LLM_PROVIDER", "openai"),
		ClarifierEnabled:       getEnv("CLARIFIER_ENABLED", "false") == "true",
		ClarifyModel:           getEnv("CLARIFY_MODEL", "gpt-5-mini"),
		SentryDSN:              getEnv("SENTRY_DSN", ""),
		LangfusePublicKey:      getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey:      getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:           getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:        getEnv("LANGFUSE_ENABLED", "false") == "true",
		AWSRegion:              getEnv("AWS_REGION", "us-east-1"),
		AuthMode:               getEnv("AUTH_MODE", "none"), // Default to no auth for self-hosted
		JWTSecret:              getEnv("JWT_SECRET", ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// IsGatewayMode returns true if running behind the Express gateway
func (c *Config) IsGatewayMode() bool {
	return c.AuthMode == "gateway"
}

// IsJWTMode returns true if tokens are validated locally
func (c *Config) IsJWTMode() bool {
	return c.AuthMode == "jwt"
}
