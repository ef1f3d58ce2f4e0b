// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/job-assistant/internal/llm"
)

// Embedding providers accepted in embedding_provider.
const (
	EmbeddingGemini = "gemini"
	EmbeddingHash   = "hash"
)

// Default values applied by Defaults.
const (
	DefaultKnowledgeBaseDir = "knowledge_base"
	DefaultDataDir          = "data"
	DefaultOutputDir        = "output"
	DefaultTopK             = 5
	DefaultRequestTimeout   = 15
	DefaultPort             = 8080
)

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults, environment variables or CLI flags.
type Config struct {
	// Model
	APIKey string            `json:"api_key,omitempty"` // Gemini API key
	Model  string            `json:"model,omitempty"`   // Model used for every tier
	Models map[string]string `json:"models,omitempty"`  // Per-tier override: lite, standard, advanced

	// Knowledge index
	EmbeddingProvider string `json:"embedding_provider,omitempty"` // gemini or hash
	EmbeddingModel    string `json:"embedding_model,omitempty"`
	KnowledgeBaseDir  string `json:"knowledge_base_dir,omitempty"`
	TopK              int    `json:"top_k,omitempty"` // Hits per match query

	// Storage
	DataDir     string `json:"data_dir,omitempty"`     // SQLite database directory
	OutputDir   string `json:"output_dir,omitempty"`   // JSON export directory
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL; replaces SQLite when set

	// Behavior
	RequestTimeoutSeconds int  `json:"request_timeout_seconds,omitempty"`
	UseBrowser            bool `json:"use_browser,omitempty"` // Render thin pages in headless Chrome
	Verbose               bool `json:"verbose,omitempty"`
	LogJSON               bool `json:"log_json,omitempty"`
	Port                  int  `json:"port,omitempty"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Model:                 llm.DefaultModel,
		EmbeddingProvider:     EmbeddingGemini,
		EmbeddingModel:        llm.DefaultEmbeddingModel,
		KnowledgeBaseDir:      DefaultKnowledgeBaseDir,
		TopK:                  DefaultTopK,
		DataDir:               DefaultDataDir,
		OutputDir:             DefaultOutputDir,
		RequestTimeoutSeconds: DefaultRequestTimeout,
		Port:                  DefaultPort,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required values such as the API key are checked by the commands that need them.
func (c *Config) Validate() error {
	if c.TopK < 0 {
		return fmt.Errorf("config error: 'top_k' must be non-negative")
	}
	if c.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'request_timeout_seconds' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}

	switch c.EmbeddingProvider {
	case "", EmbeddingGemini, EmbeddingHash:
	default:
		return fmt.Errorf("config error: unknown embedding_provider %q (want %s or %s)",
			c.EmbeddingProvider, EmbeddingGemini, EmbeddingHash)
	}

	for tier := range c.Models {
		switch llm.ModelTier(tier) {
		case llm.TierLite, llm.TierStandard, llm.TierAdvanced:
		default:
			return fmt.Errorf("config error: unknown model tier %q", tier)
		}
	}

	if c.KnowledgeBaseDir != "" {
		if info, err := os.Stat(c.KnowledgeBaseDir); err == nil && !info.IsDir() {
			return fmt.Errorf("config error: knowledge_base_dir is not a directory: %s", c.KnowledgeBaseDir)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.EmbeddingProvider == "" {
		result.EmbeddingProvider = defaults.EmbeddingProvider
	}
	if result.EmbeddingModel == "" {
		result.EmbeddingModel = defaults.EmbeddingModel
	}
	if result.KnowledgeBaseDir == "" {
		result.KnowledgeBaseDir = defaults.KnowledgeBaseDir
	}
	if result.DataDir == "" {
		result.DataDir = defaults.DataDir
	}
	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	// Int fields: use default if zero
	if result.TopK == 0 {
		result.TopK = defaults.TopK
	}
	if result.RequestTimeoutSeconds == 0 {
		result.RequestTimeoutSeconds = defaults.RequestTimeoutSeconds
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Per-tier models: file entries win, defaults fill the rest
	if len(defaults.Models) > 0 {
		merged := make(map[string]string, len(defaults.Models)+len(result.Models))
		for k, v := range defaults.Models {
			merged[k] = v
		}
		for k, v := range result.Models {
			merged[k] = v
		}
		result.Models = merged
	}

	// Bool fields: cannot distinguish unset from false, so we OR them
	result.UseBrowser = result.UseBrowser || defaults.UseBrowser
	result.Verbose = result.Verbose || defaults.Verbose
	result.LogJSON = result.LogJSON || defaults.LogJSON

	return result
}

// ApplyEnv fills empty secrets and connection strings from the environment.
// GEMINI_API_KEY takes precedence over GOOGLE_API_KEY.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if c.APIKey == "" {
		c.APIKey = getenv("GEMINI_API_KEY")
	}
	if c.APIKey == "" {
		c.APIKey = getenv("GOOGLE_API_KEY")
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = getenv("DATABASE_URL")
	}
}

// LLMConfig maps the model settings onto the client configuration.
func (c *Config) LLMConfig() *llm.Config {
	model := c.Model
	if model == "" {
		model = llm.DefaultModel
	}
	cfg := llm.SingleModelConfig(model)
	for tier, name := range c.Models {
		if name != "" {
			cfg = cfg.WithModel(llm.ModelTier(tier), name)
		}
	}
	return cfg
}

// RequestTimeout is the HTTP fetch timeout.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return DefaultRequestTimeout * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// UsePostgres reports whether the Postgres backend replaces SQLite.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}
