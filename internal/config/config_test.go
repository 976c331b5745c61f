package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoader_LoadDefaults(t *testing.T) {
	t.Setenv("KB_CONFIG_FILE", "")

	cfg, err := NewConfigLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 500, cfg.Knowledge.ChunkSize)
	assert.Equal(t, 100, cfg.Knowledge.ListTopK)
	assert.Equal(t, 5, cfg.Support.AnswerTopK)
	assert.Equal(t, 10, cfg.Support.SearchTopK)
	assert.Equal(t, "ko", cfg.Support.Locale)

	assert.Equal(t, "pinecone", cfg.Embedding.Provider)
	assert.Equal(t, "multilingual-e5-large", cfg.Embedding.Model)
	assert.Equal(t, 1024, cfg.Embedding.Dimension)

	assert.Equal(t, "pinecone", cfg.Vector.Provider)
	assert.Equal(t, "kiwi-rag", cfg.Vector.Index)

	assert.Equal(t, "gemini", cfg.Generation.Provider)
	assert.Equal(t, "gemini-flash-latest", cfg.Generation.Model)
	assert.Equal(t, 500, cfg.Generation.MaxOutputTokens)
	assert.InDelta(t, 0.3, cfg.Generation.Temperature, 1e-6)

	assert.Equal(t, 15*time.Second, cfg.Timeouts.Embedding)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Generation)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.Storage.Enabled)
}

func TestConfigLoader_EnvOverrides(t *testing.T) {
	t.Setenv("KB_CONFIG_FILE", "")
	t.Setenv("KB_VECTOR_PROVIDER", "memory")
	t.Setenv("KB_SUPPORT_ANSWER_TOP_K", "3")
	t.Setenv("PINECONE_API_KEY", "pc-test-key")
	t.Setenv("PINECONE_HOST", "https://kiwi-rag.svc.pinecone.io")
	t.Setenv("GEMINI_API_KEY", "gemini-test-key")
	t.Setenv("KB_TIMEOUTS_INDEX", "2s")

	cfg, err := NewConfigLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Vector.Provider)
	assert.Equal(t, 3, cfg.Support.AnswerTopK)
	assert.Equal(t, "pc-test-key", cfg.Pinecone.APIKey)
	assert.Equal(t, "https://kiwi-rag.svc.pinecone.io", cfg.Pinecone.Host)
	assert.Equal(t, "gemini-test-key", cfg.Google.APIKey)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Index)
}

func TestConfigLoader_InvalidProvider(t *testing.T) {
	t.Setenv("KB_CONFIG_FILE", "")
	t.Setenv("KB_GENERATION_PROVIDER", "unknown")

	_, err := NewConfigLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestConfigLoader_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	content := []byte("knowledge:\n  chunk_size: 300\nsupport:\n  locale: en\nvector:\n  provider: qdrant\n")
	require.NoError(t, os.WriteFile(file, content, 0o600))
	t.Setenv("KB_CONFIG_FILE", file)

	loader := NewConfigLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Knowledge.ChunkSize)
	assert.Equal(t, "en", cfg.Support.Locale)
	assert.Equal(t, "qdrant", cfg.Vector.Provider)
	assert.Equal(t, file, loader.ConfigFileUsed())
}

func TestConfigLoader_MissingExplicitFile(t *testing.T) {
	t.Setenv("KB_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := NewConfigLoader().Load()
	assert.Error(t, err)
}

func TestConfigLoader_WatchWithoutFile(t *testing.T) {
	t.Setenv("KB_CONFIG_FILE", "")

	loader := NewConfigLoader()
	_, err := loader.Load()
	require.NoError(t, err)
	assert.False(t, loader.Watch(func(*Config) {}))
}
