package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSettingsShow(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "[Paths]")
	assert.Contains(t, out, "knowledge-base")
	assert.Contains(t, out, filepath.Join("kbrag_index", "index.db"))
	assert.Contains(t, out, "Ollama (local)")
	assert.Contains(t, out, "embeddinggemma:latest")
	assert.Contains(t, out, "deepseek-chat")
	assert.Contains(t, out, "API Key: (not set)")
	assert.Contains(t, out, "chunker -> table_chunker -> metadata -> chunkid")
	assert.Contains(t, out, "table_chunker: chunk_size=2000 overlap=200")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsDefaultRunsShow(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "settings")

	require.NoError(t, err)
	assert.Contains(t, out, "Current Settings")
}

func TestSettingsShow_NotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	SetServices(nil)

	_, err := execute(t, "", "settings", "show")

	assert.EqualError(t, err, "settings service not configured")
}

func TestSettingsPaths_Flags(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "settings", "paths", "--data", "/docs", "--index", "/idx")

	require.NoError(t, err)
	assert.Contains(t, out, "Data: /docs")
	assert.Contains(t, out, "Index: /idx")
	assert.Equal(t, "/docs", ts.store.GetString("paths.data"))
	assert.Equal(t, "/idx", ts.store.GetString("paths.index"))
}

func TestSettingsPaths_Prompted(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	// Blank index answer keeps the current value
	out, err := execute(t, "/srv/docs\n\n", "settings", "paths")

	require.NoError(t, err)
	assert.Contains(t, out, "Data directory [./knowledge-base]:")
	assert.Equal(t, "/srv/docs", ts.store.GetString("paths.data"))
	assert.Equal(t, "./kbrag_index", ts.store.GetString("paths.index"))
}

func TestSettingsEmbedding_Ollama(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "1\nnomic-embed-text\n", "settings", "embedding")

	require.NoError(t, err)
	assert.Contains(t, out, "Validating configuration... OK")
	assert.Equal(t, "ollama", ts.store.GetString("embedding.provider"))
	assert.Equal(t, "nomic-embed-text", ts.store.GetString("embedding.model"))
}

func TestSettingsEmbedding_OpenAIRequiresKey(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "2\n\n\n", "settings", "embedding")

	assert.EqualError(t, err, "API key is required for this provider")
}

func TestSettingsLLM(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "\nhttps://llm.example.com/v1/\nsk-test-1234567890\n", "settings", "llm")

	require.NoError(t, err)
	assert.Contains(t, out, "LLM configured: deepseek-chat at https://llm.example.com/v1")
	assert.Equal(t, "sk-test-1234567890", ts.store.GetString("llm.api_key"))
}

func TestSettingsLLM_RequiresKey(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "\n\n\n", "settings", "llm")

	assert.EqualError(t, err, "API key is required")
}

func TestDisplayKey(t *testing.T) {
	assert.Equal(t, "(not set)", displayKey(""))
	assert.Equal(t, "sk-1...cdef", displayKey("sk-1234567890abcdef"))
}
