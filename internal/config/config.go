package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jwebster45206/archetype-engine/internal/services"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	// LLM
	LLMProvider string
	ModelName   string
	LLMBaseURL  string
	LLMTimeout  time.Duration
	APIKey      string // key for the selected provider

	// Storage
	RedisURL   string
	SessionTTL time.Duration
	DataDir    string // empty means the embedded scenarios

	// Tracing
	OTelEnabled  bool
	OTelEndpoint string
}

// Load reads configuration from the environment. A .env file in the working
// directory is read first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		LogLevel:     parseLogLevel(getEnv("LOG_LEVEL", "info")),
		LLMProvider:  strings.ToLower(getEnv("LLM_PROVIDER", services.ProviderAnthropic)),
		ModelName:    getEnv("MODEL_NAME", ""),
		LLMBaseURL:   getEnv("LLM_BASE_URL", ""),
		LLMTimeout:   time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", int(services.DefaultTimeout/time.Second))) * time.Second,
		RedisURL:     getEnv("REDIS_URL", "localhost:6379"),
		SessionTTL:   time.Duration(getEnvInt("SESSION_TTL_MINUTES", 24*60)) * time.Minute,
		DataDir:      getEnv("DATA_DIR", ""),
		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	switch cfg.LLMProvider {
	case services.ProviderAnthropic:
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case services.ProviderOpenAI:
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	case services.ProviderGemini:
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, fmt.Errorf("an API key is required for provider %s", c.LLMProvider))
	}
	if c.LLMTimeout <= 0 {
		errs = append(errs, errors.New("LLM_TIMEOUT_SECONDS must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL_MINUTES must be positive"))
	}
	return errors.Join(errs...)
}

// A two_stage turn makes its gateway calls one after another: guard rail,
// classification, narration.
const gatewayCallsPerTurn = 3

// storageSlack covers loading and saving the session around a turn.
const storageSlack = 15 * time.Second

// TurnBudget is the longest a single turn can spend waiting on the LLM.
func (c *Config) TurnBudget() time.Duration {
	return gatewayCallsPerTurn * c.LLMTimeout
}

// WriteTimeout is the HTTP server write deadline. A turn that was applied
// must still be able to send its response.
func (c *Config) WriteTimeout() time.Duration {
	return c.TurnBudget() + storageSlack
}

// LockTTL outlives the slowest request, so the session lock cannot expire
// while its turn is still running.
func (c *Config) LockTTL() time.Duration {
	return c.WriteTimeout() + storageSlack
}

// Provider returns the gateway provider settings.
func (c *Config) Provider() services.ProviderConfig {
	return services.ProviderConfig{
		Name:    c.LLMProvider,
		APIKey:  c.APIKey,
		Model:   c.ModelName,
		BaseURL: c.LLMBaseURL,
		Timeout: c.LLMTimeout,
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
