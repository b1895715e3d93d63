package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Configuration keys that can be set from the environment.
const (
	KeyDataPath   = "paths.data"
	KeyIndexPath  = "paths.index"
	KeyOllamaHost = "embedding.ollama_host"
	KeyLLMAPIKey  = "llm.api_key"
)

// EnvBinding maps a configuration key to the environment variables that
// override it, in priority order.
type EnvBinding struct {
	Key  string
	Vars []string
}

// DefaultEnvBindings returns the environment variables kbrag honours.
func DefaultEnvBindings() []EnvBinding {
	return []EnvBinding{
		{Key: KeyDataPath, Vars: []string{"DATA_PATH"}},
		{Key: KeyIndexPath, Vars: []string{"INDEX_PATH", "CHROMA_PATH"}},
		{Key: KeyOllamaHost, Vars: []string{"OLLAMA_HOST"}},
		{Key: KeyLLMAPIKey, Vars: []string{"DEEPSEEK_API_KEY", "LLM_API_KEY"}},
	}
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are skipped and variables that are already set
// are not overwritten. With no arguments, ./.env is tried.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}
