package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-assistant/internal/llm"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"model": "gemini-1.5-pro",
		"models": {"advanced": "gemini-2.5-pro"},
		"knowledge_base_dir": "kb",
		"top_k": 7,
		"use_browser": true,
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "gemini-1.5-pro", cfg.Model)
	assert.Equal(t, "gemini-2.5-pro", cfg.Models["advanced"])
	assert.Equal(t, "kb", cfg.KnowledgeBaseDir)
	assert.Equal(t, 7, cfg.TopK)
	assert.True(t, cfg.UseBrowser)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644))

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate(t *testing.T) {
	notDir := filepath.Join(t.TempDir(), "file.md")
	require.NoError(t, os.WriteFile(notDir, []byte("x"), 0644))

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults", cfg: Defaults()},
		{name: "empty", cfg: Config{}},
		{name: "hash embeddings", cfg: Config{EmbeddingProvider: EmbeddingHash}},
		{name: "negative top_k", cfg: Config{TopK: -1}, wantErr: "top_k"},
		{name: "negative timeout", cfg: Config{RequestTimeoutSeconds: -5}, wantErr: "request_timeout_seconds"},
		{name: "bad port", cfg: Config{Port: 70000}, wantErr: "port"},
		{name: "unknown provider", cfg: Config{EmbeddingProvider: "openai"}, wantErr: "embedding_provider"},
		{name: "unknown tier", cfg: Config{Models: map[string]string{"huge": "x"}}, wantErr: "model tier"},
		{name: "knowledge base is a file", cfg: Config{KnowledgeBaseDir: notDir}, wantErr: "not a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	partial := Config{
		Model:  "custom-model",
		TopK:   3,
		Models: map[string]string{"advanced": "big"},
	}
	defaults := Defaults()
	defaults.Models = map[string]string{"advanced": "ignored", "lite": "small"}
	defaults.Verbose = true

	merged := partial.MergeWithDefaults(defaults)

	// Custom values should be preserved
	assert.Equal(t, "custom-model", merged.Model)
	assert.Equal(t, 3, merged.TopK)
	assert.Equal(t, "big", merged.Models["advanced"])

	// Default values should fill in empty fields
	assert.Equal(t, "small", merged.Models["lite"])
	assert.Equal(t, DefaultKnowledgeBaseDir, merged.KnowledgeBaseDir)
	assert.Equal(t, DefaultOutputDir, merged.OutputDir)
	assert.Equal(t, DefaultDataDir, merged.DataDir)
	assert.Equal(t, DefaultRequestTimeout, merged.RequestTimeoutSeconds)
	assert.Equal(t, DefaultPort, merged.Port)
	assert.Equal(t, EmbeddingGemini, merged.EmbeddingProvider)
	assert.True(t, merged.Verbose)

	// The receiver is untouched
	assert.Empty(t, partial.OutputDir)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{Model: "m", Port: 9000}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, "m", merged.Model)
	assert.Equal(t, 9000, merged.Port)
	assert.Nil(t, merged.Models)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"GOOGLE_API_KEY": "google-key",
		"DATABASE_URL":   "postgres://localhost/jobs",
	}
	getenv := func(k string) string { return env[k] }

	cfg := Config{}
	cfg.ApplyEnv(getenv)
	assert.Equal(t, "google-key", cfg.APIKey)
	assert.Equal(t, "postgres://localhost/jobs", cfg.DatabaseURL)
	assert.True(t, cfg.UsePostgres())

	env["GEMINI_API_KEY"] = "gemini-key"
	cfg = Config{}
	cfg.ApplyEnv(getenv)
	assert.Equal(t, "gemini-key", cfg.APIKey)

	cfg = Config{APIKey: "file-key"}
	cfg.ApplyEnv(getenv)
	assert.Equal(t, "file-key", cfg.APIKey)
}

func TestLLMConfig(t *testing.T) {
	cfg := Config{Model: "base", Models: map[string]string{"advanced": "big", "lite": ""}}
	llmCfg := cfg.LLMConfig()

	assert.Equal(t, "base", llmCfg.GetModel(llm.TierStandard))
	assert.Equal(t, "base", llmCfg.GetModel(llm.TierLite))
	assert.Equal(t, "big", llmCfg.GetModel(llm.TierAdvanced))

	assert.Equal(t, llm.DefaultModel, (&Config{}).LLMConfig().GetModel(llm.TierStandard))
}

func TestRequestTimeout(t *testing.T) {
	assert.Equal(t, 15*time.Second, (&Config{}).RequestTimeout())
	assert.Equal(t, 30*time.Second, (&Config{RequestTimeoutSeconds: 30}).RequestTimeout())
}
