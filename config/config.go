package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider slot identifiers. Each slot is filled only when its credential is set.
const (
	ProviderGemini   = "gemini"
	ProviderDeepSeek = "deepseek"
	ProviderGroq     = "groq"
)

// KnownProviders lists every provider slot the relay can build, in default priority order.
var KnownProviders = []string{ProviderGemini, ProviderDeepSeek, ProviderGroq}

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Providers     ProvidersConfig
	Relay         RelayConfig
	Auth          AuthConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ProvidersConfig holds LLM provider configurations
type ProvidersConfig struct {
	Gemini   ProviderConfig
	DeepSeek ProviderConfig
	Groq     ProviderConfig
}

// ProviderConfig holds the settings of one provider slot.
// An empty APIKey leaves the slot unregistered.
type ProviderConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Timeout      time.Duration
	RateLimitRPM int
}

// RelayConfig holds dispatcher and persona settings
type RelayConfig struct {
	// Priority is the order in which providers are attempted for every message.
	Priority    []string
	Temperature float64
	MaxTokens   int
	PersonaFile string
}

// AuthConfig holds optional bearer token settings for the API.
// Auth is disabled when JWTSecret is empty.
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
}

// CORSConfig holds allowed origins for browser clients
type CORSConfig struct {
	AllowedOrigins []string
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or text
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Providers: ProvidersConfig{
			Gemini: ProviderConfig{
				APIKey:       getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", "")),
				BaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/"),
				Model:        getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
				Timeout:      getEnvAsDuration("GEMINI_TIMEOUT", 20*time.Second),
				RateLimitRPM: getEnvAsInt("GEMINI_RATE_LIMIT_RPM", 0),
			},
			DeepSeek: ProviderConfig{
				APIKey:       getEnv("DEEPSEEK_API_KEY", ""),
				BaseURL:      getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
				Model:        getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
				Timeout:      getEnvAsDuration("DEEPSEEK_TIMEOUT", 20*time.Second),
				RateLimitRPM: getEnvAsInt("DEEPSEEK_RATE_LIMIT_RPM", 0),
			},
			Groq: ProviderConfig{
				APIKey:       getEnv("GROQ_API_KEY", ""),
				BaseURL:      getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
				Model:        getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
				Timeout:      getEnvAsDuration("GROQ_TIMEOUT", 20*time.Second),
				RateLimitRPM: getEnvAsInt("GROQ_RATE_LIMIT_RPM", 0),
			},
		},
		Relay: RelayConfig{
			Priority:    getEnvAsList("RELAY_PROVIDER_PRIORITY", KnownProviders),
			Temperature: getEnvAsFloat("RELAY_TEMPERATURE", 0.7),
			MaxTokens:   getEnvAsInt("RELAY_MAX_TOKENS", 0),
			PersonaFile: getEnv("PERSONA_FILE", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			JWTIssuer: getEnv("AUTH_JWT_ISSUER", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if len(c.Relay.Priority) == 0 {
		return fmt.Errorf("provider priority must list at least one provider")
	}
	seen := make(map[string]bool, len(c.Relay.Priority))
	for _, id := range c.Relay.Priority {
		if _, ok := c.Providers.Get(id); !ok {
			return fmt.Errorf("unknown provider %q in priority (known: %s)", id, strings.Join(KnownProviders, ", "))
		}
		if seen[id] {
			return fmt.Errorf("provider %q listed twice in priority", id)
		}
		seen[id] = true
	}

	for _, id := range KnownProviders {
		p, _ := c.Providers.Get(id)
		if p.Timeout <= 0 {
			return fmt.Errorf("%s timeout must be positive", id)
		}
		if p.RateLimitRPM < 0 {
			return fmt.Errorf("%s rate limit must not be negative", id)
		}
	}

	if c.Relay.Temperature < 0 || c.Relay.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.Relay.MaxTokens < 0 {
		return fmt.Errorf("max tokens must not be negative")
	}

	// At least one provider credential is required in production
	if c.IsProduction() && c.Providers.ConfiguredCount() == 0 {
		return fmt.Errorf("at least one LLM provider must be configured in production")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Get returns the configuration of a provider slot by identifier
func (p *ProvidersConfig) Get(id string) (ProviderConfig, bool) {
	switch id {
	case ProviderGemini:
		return p.Gemini, true
	case ProviderDeepSeek:
		return p.DeepSeek, true
	case ProviderGroq:
		return p.Groq, true
	}
	return ProviderConfig{}, false
}

// ConfiguredCount returns how many provider slots carry a credential
func (p *ProvidersConfig) ConfiguredCount() int {
	n := 0
	for _, id := range KnownProviders {
		if cfg, _ := p.Get(id); cfg.APIKey != "" {
			n++
		}
	}
	return n
}

// AttemptBudget returns the longest time one message can spend walking the priority order
func (c *Config) AttemptBudget() time.Duration {
	var total time.Duration
	for _, id := range c.Relay.Priority {
		if p, ok := c.Providers.Get(id); ok && p.APIKey != "" {
			total += p.Timeout
		}
	}
	return total
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
