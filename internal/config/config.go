// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.reefguide/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - LLM: provider selection (groq/gemini), model, generation parameters
//   - Embedding: embedder model and vector dimension
//   - Storage: PostgreSQL connection (see storage.go)
//   - RAG: chunking budgets and retrieval parameters
//   - Session: TTL and conversation history cap
//
// Security: sensitive data (passwords, API keys) are never logged; MarshalJSON
// masks them explicitly.
// Validation: comprehensive range checks in validation.go with clear error messages.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the LLM provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidTopP indicates the top_p value is out of range.
	ErrInvalidTopP = errors.New("invalid top_p")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbedderDimension indicates the embedder produces incompatible vector dimensions.
	ErrInvalidEmbedderDimension = errors.New("incompatible embedder dimension")

	// ErrInvalidChunkBudget indicates the chunker token budgets are inconsistent.
	ErrInvalidChunkBudget = errors.New("invalid chunk token budget")

	// ErrInvalidRetrieval indicates the retrieval parameters are out of range.
	ErrInvalidRetrieval = errors.New("invalid retrieval parameters")

	// ErrInvalidSession indicates the session parameters are out of range.
	ErrInvalidSession = errors.New("invalid session parameters")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// LLM provider identifiers used in Config.Provider.
const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 outputs 3072 dimensions by default, but supports
	// truncation to 768 via OutputDimensionality (Matryoshka Representation
	// Learning). The pgvector schema uses 768 dimensions; see embed.Dimension.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultEmbedderDimension matches the vector(768) column in db/migrations.
	DefaultEmbedderDimension = 768

	// DefaultMaxHistoryEntries caps conversation history at 50 exchanges.
	DefaultMaxHistoryEntries = 100

	// DefaultSessionTTL is how long a session stays live without extension.
	DefaultSessionTTL = 24 * time.Hour

	// DefaultMaxMessageLength bounds a single inbound chat message.
	DefaultMaxMessageLength = 2000
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// Environment: "dev" or "production". Controls whether internal error
	// detail is surfaced in API responses.
	Environment string `mapstructure:"environment" json:"environment"`

	// LLM provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`     // "groq" (default) or "gemini"
	ModelName   string  `mapstructure:"model_name" json:"model_name"` // e.g. "llama-3.3-70b-versatile", "gemini-2.5-flash"
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`
	TopP        float32 `mapstructure:"top_p" json:"top_p"`

	// API keys (read from environment)
	GroqAPIKey   string `mapstructure:"groq_api_key" json:"groq_api_key"`     // SENSITIVE: masked in MarshalJSON
	GeminiAPIKey string `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON

	// Embedding configuration
	EmbedderModel     string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbedderDimension int    `mapstructure:"embedder_dimension" json:"embedder_dimension"`

	// Chunking budgets (token estimates, see internal/chunk)
	ChunkTargetTokens int `mapstructure:"chunk_target_tokens" json:"chunk_target_tokens"`
	ChunkMaxTokens    int `mapstructure:"chunk_max_tokens" json:"chunk_max_tokens"`
	ChunkMinTokens    int `mapstructure:"chunk_min_tokens" json:"chunk_min_tokens"`

	// Retrieval configuration
	RetrievalTopK          int     `mapstructure:"retrieval_top_k" json:"retrieval_top_k"`
	RetrievalMinSimilarity float32 `mapstructure:"retrieval_min_similarity" json:"retrieval_min_similarity"`

	// Session configuration
	SessionTTL        time.Duration `mapstructure:"session_ttl" json:"session_ttl"`
	MaxHistoryEntries int           `mapstructure:"max_history_entries" json:"max_history_entries"`
	MaxMessageLength  int           `mapstructure:"max_message_length" json:"max_message_length"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server listen address
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".reefguide")

	// Ensure directory exists (use 0750 permission for better security)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Parse DATABASE_URL if set (highest priority for PostgreSQL config)
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// CRITICAL: Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("environment", "dev")

	// LLM defaults
	viper.SetDefault("provider", ProviderGroq)
	viper.SetDefault("model_name", "llama-3.3-70b-versatile")
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 1024)
	viper.SetDefault("top_p", 0.9)

	// Embedding defaults
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("embedder_dimension", DefaultEmbedderDimension)

	// Chunking defaults
	viper.SetDefault("chunk_target_tokens", 650)
	viper.SetDefault("chunk_max_tokens", 800)
	viper.SetDefault("chunk_min_tokens", 100)

	// Retrieval defaults
	viper.SetDefault("retrieval_top_k", 5)
	viper.SetDefault("retrieval_min_similarity", 0.0)

	// Session defaults
	viper.SetDefault("session_ttl", DefaultSessionTTL)
	viper.SetDefault("max_history_entries", DefaultMaxHistoryEntries)
	viper.SetDefault("max_message_length", DefaultMaxMessageLength)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "reefguide")
	viper.SetDefault("postgres_password", "reefguide_dev_password")
	viper.SetDefault("postgres_db_name", "reefguide")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// HTTP defaults
	viper.SetDefault("listen_addr", "127.0.0.1:8080")
}

// bindEnvVariables binds environment variables explicitly.
// Secrets come only from the environment, never from the config file on disk.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	// If this panics, it's a BUG in our code, not a runtime error
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("groq_api_key", "GROQ_API_KEY")
	mustBind("gemini_api_key", "GEMINI_API_KEY")

	mustBind("environment", "REEFGUIDE_ENV")
	mustBind("provider", "REEFGUIDE_PROVIDER")
	mustBind("model_name", "REEFGUIDE_MODEL_NAME")
	mustBind("listen_addr", "REEFGUIDE_LISTEN_ADDR")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid substring matching against real secret fragments.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Shows first 2 and last 2 characters for secrets longer than 8 characters,
// fully masks shorter ones to prevent substring attacks.
//
// THREAT MODEL: This defends against accidental logging of real secrets.
// It is NOT cryptographically secure - if logs are compromised, rotate secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//   - GroqAPIKey
//   - GeminiAPIKey
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.GroqAPIKey = maskSecret(a.GroqAPIKey)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// IsProduction reports whether the app runs in production mode.
// Controls whether internal error detail leaks into API responses.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
