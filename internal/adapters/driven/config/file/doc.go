// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage with environment overrides
//   - PromptStore: User-editable answer prompts
//
// LoadDotEnv populates the process environment from .env files before the
// ConfigStore reads its bindings.
package file
