package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv_LoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KBRAG_TEST_DOTENV=from-file\n"), 0600))
	t.Cleanup(func() { _ = os.Unsetenv("KBRAG_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path))

	assert.Equal(t, "from-file", os.Getenv("KBRAG_TEST_DOTENV"))
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KBRAG_TEST_KEEP=from-file\n"), 0600))
	t.Setenv("KBRAG_TEST_KEEP", "from-env")

	require.NoError(t, LoadDotEnv(path))

	assert.Equal(t, "from-env", os.Getenv("KBRAG_TEST_KEEP"))
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestLoadDotEnv_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOT VALID LINE WITHOUT EQUALS 'unterminated\n"), 0600))

	assert.Error(t, LoadDotEnv(path))
}

func TestDefaultEnvBindings(t *testing.T) {
	bindings := DefaultEnvBindings()
	byKey := make(map[string][]string, len(bindings))
	for _, b := range bindings {
		byKey[b.Key] = b.Vars
	}

	assert.Equal(t, []string{"DATA_PATH"}, byKey[KeyDataPath])
	assert.Equal(t, []string{"INDEX_PATH", "CHROMA_PATH"}, byKey[KeyIndexPath])
	assert.Equal(t, []string{"OLLAMA_HOST"}, byKey[KeyOllamaHost])
	assert.Equal(t, []string{"DEEPSEEK_API_KEY", "LLM_API_KEY"}, byKey[KeyLLMAPIKey])
}
