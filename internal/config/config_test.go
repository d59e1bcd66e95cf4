package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	LoadConfig()

	assert.Equal(t, "8080", AppConfig.HTTPPort)
	assert.Equal(t, "ollama", AppConfig.LLMProvider)
	assert.Equal(t, "mongodb://127.0.0.1:27017", AppConfig.MongoURI)
	assert.Equal(t, "chatbot", AppConfig.MongoDatabase)
	assert.Equal(t, "conversations", AppConfig.MongoCollection)
	assert.Equal(t, 5, AppConfig.MongoTimeoutSecs)
	assert.Equal(t, 1000, AppConfig.ChunkSize)
	assert.Equal(t, 200, AppConfig.ChunkOverlap)
	assert.Equal(t, 4, AppConfig.TopK)
}

func TestLoadConfigYAMLThenEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlBody := "mongo_database: from-yaml\nmongo_collection: also-yaml\nchunk_size: 500\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MONGO_COLLECTION", "from-env")

	LoadConfig()

	// YAML overrides defaults, environment overrides YAML.
	assert.Equal(t, "from-yaml", AppConfig.MongoDatabase)
	assert.Equal(t, "from-env", AppConfig.MongoCollection)
	assert.Equal(t, 500, AppConfig.ChunkSize)
}
