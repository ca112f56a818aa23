package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. IACADASTRO_OLLAMA_BASE_URL
const EnvPrefix = "IACADASTRO"

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Ollama     OllamaConfig     `mapstructure:"ollama"`
	Generation GenerationConfig `mapstructure:"generation"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Prompts    PromptsConfig    `mapstructure:"prompts"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port" validate:"required,numeric"`
	Environment    string   `mapstructure:"environment" validate:"oneof=development production test"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// OllamaConfig holds generation backend configuration
type OllamaConfig struct {
	BaseURL           string        `mapstructure:"base_url" validate:"required,url"`
	ProbeTimeout      time.Duration `mapstructure:"probe_timeout" validate:"gt=0"`
	PullTimeout       time.Duration `mapstructure:"pull_timeout" validate:"gt=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`
}

// GenerationConfig holds the default generation settings
type GenerationConfig struct {
	Model       string        `mapstructure:"model" validate:"required"`
	Temperature float64       `mapstructure:"temperature" validate:"gte=0"`
	MaxTokens   int           `mapstructure:"max_tokens" validate:"gt=0"`
	Workers     int           `mapstructure:"workers" validate:"gt=0"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	UseCache    bool          `mapstructure:"use_cache"`
	Mode        string        `mapstructure:"mode" validate:"oneof=generate chat"`
	// Caller-level resilience for the CLI
	RetryAttempts int           `mapstructure:"retry_attempts" validate:"gte=0"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Store           string        `mapstructure:"store" validate:"oneof=memory file sqlite"`
	Path            string        `mapstructure:"path"`
	TTL             time.Duration `mapstructure:"ttl" validate:"gt=0"`
	PersistEvery    int           `mapstructure:"persist_every" validate:"gte=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gte=0"`
}

// PromptsConfig holds the prompt configuration file location
type PromptsConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip" validate:"gte=0"` // requests per minute, 0 disables
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error fatal"`
	Format string `mapstructure:"format" validate:"oneof=cli text json"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from path, or searches the default
// locations when path is empty. Environment variables override both.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/iacadastro/")
	}

	// Environment variable settings
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional unless explicitly given)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Ollama defaults
	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.probe_timeout", "5s")
	v.SetDefault("ollama.pull_timeout", "5m")
	v.SetDefault("ollama.requests_per_second", 0)

	// Generation defaults
	v.SetDefault("generation.model", "gemma2:2b")
	v.SetDefault("generation.temperature", 0.7)
	v.SetDefault("generation.max_tokens", 500)
	v.SetDefault("generation.workers", 2)
	v.SetDefault("generation.timeout", "60s")
	v.SetDefault("generation.use_cache", true)
	v.SetDefault("generation.mode", "generate")
	v.SetDefault("generation.retry_attempts", 3)
	v.SetDefault("generation.retry_delay", "1s")

	// Cache defaults
	v.SetDefault("cache.store", "file")
	v.SetDefault("cache.path", "data/cache/descriptions.json")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.persist_every", 10)
	v.SetDefault("cache.cleanup_interval", "0s")

	// Prompt defaults
	v.SetDefault("prompts.path", "data/prompts.yaml")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "cli")
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// validate validates the configuration
func validate(config *Config) error {
	if err := structValidator.Struct(config); err != nil {
		return err
	}

	if config.Cache.Store != "memory" && config.Cache.Path == "" {
		return fmt.Errorf("cache path is required when cache store is '%s'", config.Cache.Store)
	}

	return nil
}
