package config

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"port"`
	DatabaseURL string `mapstructure:"database_url"`
	LogLevel    string `mapstructure:"log_level"`

	// S3
	S3Endpoint        string `mapstructure:"s3_endpoint"`
	S3AccessKeyID     string `mapstructure:"s3_access_key_id"`
	S3SecretAccessKey string `mapstructure:"s3_secret_access_key"`
	S3BucketName      string `mapstructure:"s3_bucket_name"`
	S3UseSSL          bool   `mapstructure:"s3_use_ssl"`

	// LLM. An empty key for the selected provider disables AI extraction;
	// the heuristic extractor takes over.
	LLMProvider      string        `mapstructure:"llm_provider"`
	LLMBaseURL       string        `mapstructure:"llm_base_url"`
	LLMTimeout       time.Duration `mapstructure:"llm_timeout"`
	OpenRouterAPIKey string        `mapstructure:"openrouter_api_key"`
	OpenRouterModel  string        `mapstructure:"openrouter_model"`
	OpenAIAPIKey     string        `mapstructure:"openai_api_key"`
	OpenAIModel      string        `mapstructure:"openai_model"`
	AnthropicAPIKey  string        `mapstructure:"anthropic_api_key"`
	AnthropicModel   string        `mapstructure:"anthropic_model"`

	// Primo discovery API. An empty key turns every search into "not found".
	PrimoBaseURL   string        `mapstructure:"primo_api_base_url"`
	PrimoAPIKey    string        `mapstructure:"primo_api_key"`
	PrimoVID       string        `mapstructure:"primo_vid"`
	PrimoTab       string        `mapstructure:"primo_tab"`
	PrimoScope     string        `mapstructure:"primo_scope"`
	PrimoTimeout   time.Duration `mapstructure:"primo_timeout"`
	PrimoRateLimit float64       `mapstructure:"primo_rate_limit"`

	// Concurrency
	MatchConcurrency int           `mapstructure:"match_concurrency"`
	BatchConcurrency int           `mapstructure:"batch_concurrency"`
	BatchTimeout     time.Duration `mapstructure:"batch_timeout"`

	// Upload limits
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

var defaults = map[string]any{
	"port":                 "8080",
	"database_url":         "data/syllabi.db",
	"log_level":            "info",
	"s3_endpoint":          "localhost:9000",
	"s3_access_key_id":     "minioadmin",
	"s3_secret_access_key": "minioadmin",
	"s3_bucket_name":       "syllabi",
	"s3_use_ssl":           false,
	"llm_provider":         "openrouter",
	"llm_base_url":         "",
	"llm_timeout":          90 * time.Second,
	"openrouter_api_key":   "",
	"openrouter_model":     "openai/o4-mini",
	"openai_api_key":       "",
	"openai_model":         "o4-mini",
	"anthropic_api_key":    "",
	"anthropic_model":      "claude-sonnet-4-5-20250929",
	"primo_api_base_url":   "",
	"primo_api_key":        "",
	"primo_vid":            "",
	"primo_tab":            "",
	"primo_scope":          "",
	"primo_timeout":        15 * time.Second,
	"primo_rate_limit":     0.0,
	"match_concurrency":    4,
	"batch_concurrency":    4,
	"batch_timeout":        10 * time.Minute,
	"max_file_size":        int64(10 * 1024 * 1024),
}

// Load reads configuration from an optional config.yaml in the working
// directory and from environment variables named after the keys in upper
// case (PORT, OPENROUTER_API_KEY, PRIMO_API_KEY, ...). Environment wins.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.LLMProvider {
	case "openrouter", "openai", "anthropic", "none":
	default:
		return eris.Errorf("config: unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.MatchConcurrency < 1 {
		return eris.New("config: MATCH_CONCURRENCY must be at least 1")
	}
	if c.BatchConcurrency < 1 {
		return eris.New("config: BATCH_CONCURRENCY must be at least 1")
	}
	if c.PrimoRateLimit < 0 {
		return eris.New("config: PRIMO_RATE_LIMIT must not be negative")
	}
	return nil
}

// LLMCredential returns the API key of the selected provider.
func (c *Config) LLMCredential() string {
	switch c.LLMProvider {
	case "openrouter":
		return c.OpenRouterAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return ""
	}
}
