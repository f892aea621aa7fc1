package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/brandscope/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	OpenRouter  OpenRouterConfig `toml:"openrouter"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
	Analysis    AnalysisConfig  `toml:"analysis"`
	Retention   RetentionConfig `toml:"retention"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// OpenRouterConfig contains configuration for the OpenRouter provider transport.
// The analysis matrix sends every (provider, prompt) call through OpenRouter.
type OpenRouterConfig struct {
	APIKey         string        `toml:"api_key"`          // OpenRouter API key
	BaseURL        string        `toml:"base_url"`         // API base URL (default: https://openrouter.ai/api/v1)
	RequestTimeout time.Duration `toml:"request_timeout"`  // Per-call timeout; one slow provider must not stall the matrix
	MaxTokens      int           `toml:"max_tokens"`       // Max completion tokens per provider call
	Temperature    float32       `toml:"temperature"`      // Completion temperature
	RateLimit      int           `toml:"rate_limit"`       // Requests per second across all providers
	Referer        string        `toml:"referer"`          // HTTP-Referer header sent to OpenRouter
	AppTitle       string        `toml:"app_title"`        // X-Title header sent to OpenRouter
}

// GeminiConfig contains Google Gemini API configuration for secondary-model calls
// (prompt enhancement, semantic aggregation, one-line recommendation)
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for aggregation (default: "gemini-2.5-pro")
	FlashModel  string  `toml:"flash_model"` // Fast model for enhancement/recommendation (default: "gemini-2.5-flash")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.1)
}

// ClaudeConfig contains Anthropic Claude API configuration for secondary-model calls
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Model for AI operations (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 4096)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.1)
}

// LLMProvider represents the secondary-model provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for secondary-model providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude" (default: "gemini")
}

// AnalysisConfig contains tuning for the competitive analysis engine
type AnalysisConfig struct {
	Concurrency     int `toml:"concurrency"`      // Concurrent provider calls in the matrix (default: 2)
	RankCeiling     int `toml:"rank_ceiling"`     // Max rank used by the fallback scorer (default: 7)
	MatrixProgress  int `toml:"matrix_progress"`  // Progress ceiling during the provider matrix, 0-100 (default: 80)
	MaxBrandsPerCall int `toml:"max_brands_per_call"` // Brands requested from each provider (default: 7)
}

// RetentionConfig controls scheduled pruning of terminal analyses
type RetentionConfig struct {
	Enabled  bool   `toml:"enabled"`  // Enable scheduled pruning (default: false)
	Schedule string `toml:"schedule"` // Cron schedule (default: "0 * * * *" - hourly)
	MaxAge   string `toml:"max_age"`  // Delete completed/failed analyses older than this (default: "720h")
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here; only user-facing settings
// should be exposed in brandscope.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		OpenRouter: OpenRouterConfig{
			APIKey:         "", // User must provide API key (config, KV store, or BRANDSCOPE_OPENROUTER_API_KEY)
			BaseURL:        "https://openrouter.ai/api/v1",
			RequestTimeout: 60 * time.Second,
			MaxTokens:      1024,
			Temperature:    0.7,
			RateLimit:      5,
			Referer:        "http://localhost:8080",
			AppTitle:       "Brandscope",
		},
		Gemini: GeminiConfig{
			APIKey:      "",
			Model:       "gemini-2.5-pro",
			FlashModel:  "gemini-2.5-flash",
			Timeout:     "5m",
			Temperature: 0.1,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   4096,
			Timeout:     "5m",
			Temperature: 0.1,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Analysis: AnalysisConfig{
			Concurrency:      2,
			RankCeiling:      7,
			MatrixProgress:   80,
			MaxBrandsPerCall: 7,
		},
		Retention: RetentionConfig{
			Enabled:  false,
			Schedule: "0 * * * *",
			MaxAge:   "720h",
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files.
// Later files override earlier files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("BRANDSCOPE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("BRANDSCOPE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("BRANDSCOPE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("BRANDSCOPE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("BRANDSCOPE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("BRANDSCOPE_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Provider transport configuration
	if apiKey := os.Getenv("BRANDSCOPE_OPENROUTER_API_KEY"); apiKey != "" {
		config.OpenRouter.APIKey = apiKey
	}
	if timeout := os.Getenv("BRANDSCOPE_OPENROUTER_REQUEST_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			config.OpenRouter.RequestTimeout = t
		}
	}

	// Secondary-model configuration
	if apiKey := os.Getenv("BRANDSCOPE_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("BRANDSCOPE_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}

	// Analysis configuration
	if concurrency := os.Getenv("BRANDSCOPE_ANALYSIS_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil && c > 0 {
			config.Analysis.Concurrency = c
		}
	}
}

// Validate checks configuration invariants that would otherwise surface
// deep inside the analysis pipeline.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Storage.Badger.Path == "" {
		return fmt.Errorf("storage.badger.path is required")
	}
	if c.Analysis.Concurrency < 1 {
		return fmt.Errorf("analysis.concurrency must be at least 1")
	}
	if c.Analysis.RankCeiling < 1 {
		return fmt.Errorf("analysis.rank_ceiling must be at least 1")
	}
	if c.Analysis.MatrixProgress < 1 || c.Analysis.MatrixProgress > 100 {
		return fmt.Errorf("analysis.matrix_progress must be in 1..100")
	}
	if c.Retention.Enabled {
		if _, err := time.ParseDuration(c.Retention.MaxAge); err != nil {
			return fmt.Errorf("invalid retention.max_age: %w", err)
		}
	}
	return nil
}

// ResolveAPIKey resolves an API key with priority: env var -> KV store -> config.
// kvStorage may be nil (resolution skips the KV store).
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"openrouter_api_key": {"BRANDSCOPE_OPENROUTER_API_KEY", "OPENROUTER_API_KEY"},
		"gemini_api_key":     {"BRANDSCOPE_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"anthropic_api_key":  {"BRANDSCOPE_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key %q not found in environment, KV store, or config", name)
}
