package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbrag/internal/core/domain"
)

func TestBootstrap_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("INDEX_PATH", filepath.Join(dir, "index"))
	t.Setenv("CHROMA_PATH", "")

	s, err := bootstrap(dir)
	require.NoError(t, err)
	defer s.Close()

	require.NotNil(t, s.Settings)
	require.NotNil(t, s.Ingest)
	require.NotNil(t, s.Query)
	assert.NoError(t, s.Unavailable)
	assert.False(t, s.Query.HasLLM())

	stats, err := s.Query.Stats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Chunks)
	assert.Equal(t, filepath.Join(dir, "index", domain.IndexFileName), stats.IndexPath)
}

func TestBootstrap_WithLLMKey(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	t.Setenv("INDEX_PATH", filepath.Join(dir, "index"))

	s, err := bootstrap(dir)
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, s.Query.HasLLM())
}

func TestBootstrap_EmbeddingUnavailable(t *testing.T) {
	dir := t.TempDir()
	config := "[embedding]\nprovider = \"openai\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(config), 0600))

	s, err := bootstrap(dir)
	require.NoError(t, err)

	assert.NotNil(t, s.Settings)
	assert.Nil(t, s.Ingest)
	assert.Nil(t, s.Query)
	assert.ErrorIs(t, s.Unavailable, domain.ErrEmbeddingUnavailable)
}

func TestNewExtractor_UsesConfiguredTableLabel(t *testing.T) {
	settings := domain.DefaultAppSettings()
	assert.Equal(t, "Table", newExtractor(&settings).TableLabel())

	settings.Extract.TableLabel = "Bảng"
	assert.Equal(t, "Bảng", newExtractor(&settings).TableLabel())
}

func TestBootstrap_TableLabelFromConfig(t *testing.T) {
	dir := t.TempDir()
	config := "[extract]\ntable_label = \"Bảng\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(config), 0600))
	t.Setenv("INDEX_PATH", filepath.Join(dir, "index"))

	s, err := bootstrap(dir)
	require.NoError(t, err)
	defer s.Close()

	settings, err := s.Settings.Get()
	require.NoError(t, err)
	assert.Equal(t, "Bảng", settings.Extract.TableLabel)
}
