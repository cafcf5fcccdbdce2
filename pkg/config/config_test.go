package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
server:
  port: 9090
  cors_enabled: true

llm:
  base_url: "https://api.example.test/v1"
  model: "gpt-4"
  embedding_model: "text-embedding-3-large"
  max_tokens: 1000
  temperature: 0.5

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_policies"
  vector_dim: 768

scraper:
  http_timeout_seconds: 10
  nav_timeout_seconds: 20
  settle_seconds: 1
  batch_delay_seconds: 5
  user_agent: "policyscan-test/1.0"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	// Test loading config
	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Verify loaded values
	assert.Equal(t, 9090, config.Server.Port)
	assert.True(t, config.Server.CORSEnabled)
	assert.Equal(t, "https://api.example.test/v1", config.LLM.BaseURL)
	assert.Equal(t, "gpt-4", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, "test_policies", config.Database.TableName)
	assert.Equal(t, 768, config.Database.VectorDim)
	assert.Equal(t, 10, config.Scraper.HTTPTimeoutSeconds)
	assert.Equal(t, "policyscan-test/1.0", config.Scraper.UserAgent)
}

func TestLoadConfigDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("server:\n  port: 3000\n"), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 3000, config.Server.Port)
	assert.Equal(t, "gpt-3.5-turbo", config.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", config.LLM.EmbeddingModel)
	assert.Equal(t, 500, config.LLM.MaxTokens)
	assert.Equal(t, "policies", config.Database.TableName)
	assert.Equal(t, 1536, config.Database.VectorDim)
	assert.Equal(t, 15, config.Scraper.HTTPTimeoutSeconds)
	assert.Equal(t, 30, config.Scraper.NavTimeoutSeconds)
}

func TestConfigValidation(t *testing.T) {
	valid, err := getDefaultConfig()
	require.NoError(t, err)
	assert.Empty(t, valid.Validate())

	invalid := &Config{}
	invalid.Server.Port = 99999
	invalid.LLM.MaxTokens = 5000
	invalid.LLM.Temperature = 3.0
	invalid.Database.VectorDim = -1
	invalid.Scraper.HTTPTimeoutSeconds = 0
	invalid.Scraper.NavTimeoutSeconds = 0

	errors := invalid.Validate()
	assert.Len(t, errors, 6)
	assert.Contains(t, errors[0].Error(), "server.port")
	assert.Contains(t, errors[1].Error(), "max_tokens must be between 1 and 4096")
	assert.Contains(t, errors[2].Error(), "temperature must be between 0 and 2")
	assert.Contains(t, errors[3].Error(), "vector_dim must be positive")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env-test")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("PORT", "4000")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "sk-env-test", config.LLM.APIKey)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
	assert.Equal(t, 4000, config.Server.Port)
}
