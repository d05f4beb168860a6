package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Provider ProviderConfig `mapstructure:"provider"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Matching MatchingConfig `mapstructure:"matching"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ProviderConfig holds the Steel Tiger ERP endpoint and credentials
type ProviderConfig struct {
	APIURL        string        `mapstructure:"api_url"`
	AuthURL       string        `mapstructure:"auth_url"`
	License       string        `mapstructure:"license"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	CUIT          string        `mapstructure:"cuit"`
	Email         string        `mapstructure:"email"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
}

// Configured reports whether ERP credentials are present
func (p ProviderConfig) Configured() bool {
	return p.License != ""
}

// AuthEmail is the email registered on authorization, the user name when no
// email is set
func (p ProviderConfig) AuthEmail() string {
	if p.Email != "" {
		return p.Email
	}
	return p.User
}

// CacheConfig holds dataset store configuration
type CacheConfig struct {
	Type      string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL  string        `mapstructure:"redis_url"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"` // zero keeps datasets until replaced
}

// RefreshConfig holds the dataset refresh schedule
type RefreshConfig struct {
	Cron        string        `mapstructure:"cron"`
	OnStart     bool          `mapstructure:"on_start"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
}

// LLMConfig selects the summarizer used when nothing matches locally
type LLMConfig struct {
	Provider  string        `mapstructure:"provider"` // "", "openai" or "gemini"
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// MatchingConfig holds query matching configuration
type MatchingConfig struct {
	MinSimilarity      float64 `mapstructure:"min_similarity"`
	DefaultList        string  `mapstructure:"default_list"`
	DirectPlaceholder  string  `mapstructure:"direct_placeholder"`
	CountryCode        string  `mapstructure:"country_code"`
	EnableDebugLogging bool    `mapstructure:"enable_debug_logging"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// legacyEnv maps config keys to the environment variables earlier
// deployments of the middleware used
var legacyEnv = map[string]string{
	"server.port":       "PORT",
	"provider.api_url":  "STEEL_API_URL",
	"provider.license":  "STEEL_LICENSE",
	"provider.user":     "STEEL_USER",
	"provider.password": "STEEL_PASSWORD",
	"provider.cuit":     "STEEL_CUIT",
	"provider.email":    "STEEL_EMAIL",
	"refresh.cron":      "REFRESH_CRON",
	"llm.api_key":       "OPENAI_API_KEY",
	"llm.model":         "OPENAI_MODEL",
}

// Load loads configuration from .env files, environment variables and
// config files
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/steeltiger/")

	// Environment variable settings
	v.SetEnvPrefix("STEELTIGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := "STEELTIGER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// A bare OPENAI_API_KEY has always meant the OpenAI summarizer
	if config.LLM.Provider == "" && config.LLM.APIKey != "" {
		config.LLM.Provider = "openai"
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key gets a default
// so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "3008")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Provider defaults
	v.SetDefault("provider.api_url", "https://www.apiarbro.xfoxnet.com/api/RecuperarDatos_ERP_por_Query")
	v.SetDefault("provider.auth_url", "https://www.apiarbro.xfoxnet.com/Api/Autorizacion")
	v.SetDefault("provider.license", "")
	v.SetDefault("provider.user", "")
	v.SetDefault("provider.password", "")
	v.SetDefault("provider.cuit", "0")
	v.SetDefault("provider.email", "")
	v.SetDefault("provider.timeout", "60s")
	v.SetDefault("provider.max_attempts", 4)
	v.SetDefault("provider.rate_per_second", 2.0)
	v.SetDefault("provider.burst", 4)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.key_prefix", "steeltiger:")
	v.SetDefault("cache.ttl", "0s")

	// Refresh defaults
	v.SetDefault("refresh.cron", "5 * * * *")
	v.SetDefault("refresh.on_start", true)
	v.SetDefault("refresh.timeout", "5m")
	v.SetDefault("refresh.concurrency", 4)

	// LLM defaults
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.max_tokens", 80)
	v.SetDefault("llm.timeout", "20s")

	// Matching defaults
	v.SetDefault("matching.min_similarity", 0.4)
	v.SetDefault("matching.default_list", "LISTA 1")
	v.SetDefault("matching.direct_placeholder", "_phoneNumber")
	v.SetDefault("matching.country_code", "54")
	v.SetDefault("matching.enable_debug_logging", false)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required when cache type is 'redis' (set STEELTIGER_CACHE_REDIS_URL)")
	}

	switch strings.ToLower(config.LLM.Provider) {
	case "":
	case "openai", "gemini":
		if config.LLM.APIKey == "" {
			return fmt.Errorf("llm api key is required when llm provider is %q (set STEELTIGER_LLM_API_KEY)", config.LLM.Provider)
		}
	default:
		return fmt.Errorf("llm provider must be 'openai', 'gemini' or empty, got: %s", config.LLM.Provider)
	}

	if config.Matching.MinSimilarity <= 0 || config.Matching.MinSimilarity > 1 {
		return fmt.Errorf("matching min_similarity must be in (0, 1], got: %v", config.Matching.MinSimilarity)
	}

	if _, err := cron.ParseStandard(config.Refresh.Cron); err != nil {
		return fmt.Errorf("refresh cron %q is invalid: %w", config.Refresh.Cron, err)
	}

	if config.Provider.MaxAttempts < 1 {
		return fmt.Errorf("provider max_attempts must be at least 1, got: %d", config.Provider.MaxAttempts)
	}

	return nil
}
