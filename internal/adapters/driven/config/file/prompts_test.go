package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbrag/internal/core/ports/driven"
)

func newPromptStore(t *testing.T) (*PromptStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	return store, dir
}

func writePrompt(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".txt"), []byte(content), 0o600))
}

func TestNewPromptStore_Dir(t *testing.T) {
	store, dir := newPromptStore(t)
	assert.Equal(t, dir, store.Dir())

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	store, err = NewPromptStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".kbrag", "prompts"), store.Dir())
}

func TestPromptStore_SeedsDirectory(t *testing.T) {
	store, dir := newPromptStore(t)

	_, err := store.Load(driven.PromptSystem)
	require.NoError(t, err)

	for _, f := range []string{"answer.txt", "system.txt", "README.md"} {
		assert.FileExists(t, filepath.Join(dir, f))
	}

	readme, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "`answer.txt`")
	assert.Contains(t, string(readme), "`system.txt`")
}

func TestPromptStore_DefaultAnswerTakesContextAndQuestion(t *testing.T) {
	store, _ := newPromptStore(t)

	p, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(p, "%s"))
	assert.NoError(t, promptSpecs[driven.PromptAnswer].check(p))
}

func TestPromptStore_UserEdits(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		content string
		want    string
	}{
		{"custom answer", driven.PromptAnswer, "Context: %s\nQ: %s", "Context: %s\nQ: %s"},
		{"whitespace trimmed", driven.PromptSystem, "\n\n  Be brief.  \n", "Be brief."},
		{"empty file", driven.PromptSystem, "   \n", promptSpecs[driven.PromptSystem].fallback},
		{"one placeholder", driven.PromptAnswer, "Q: %s", promptSpecs[driven.PromptAnswer].fallback},
		{"three placeholders", driven.PromptAnswer, "%s %s %s", promptSpecs[driven.PromptAnswer].fallback},
		{"literal percent", driven.PromptAnswer, "Context: %s\nAnswer 100%% from it: %s", "Context: %s\nAnswer 100%% from it: %s"},
		{"bare percent", driven.PromptAnswer, "Context: %s\nBe 100% sure: %s", promptSpecs[driven.PromptAnswer].fallback},
		{"other verb", driven.PromptAnswer, "Context: %v\nQ: %s %s", promptSpecs[driven.PromptAnswer].fallback},
		{"trailing percent", driven.PromptAnswer, "%s %s %", promptSpecs[driven.PromptAnswer].fallback},
		{"system prompt keeps percents", driven.PromptSystem, "Be 100% accurate.", "Be 100% accurate."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, dir := newPromptStore(t)
			writePrompt(t, dir, tt.prompt, tt.content)

			got, err := store.Load(tt.prompt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// Seeding never overwrites the user's file.
			data, err := os.ReadFile(filepath.Join(dir, tt.prompt+".txt"))
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(data))
		})
	}
}

func TestPromptStore_MissingFileFallsBack(t *testing.T) {
	store, dir := newPromptStore(t)
	_, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "answer.txt")))
	store.Reload()

	p, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	assert.Equal(t, promptSpecs[driven.PromptAnswer].fallback, p)
}

func TestPromptStore_UnknownPrompt(t *testing.T) {
	store, _ := newPromptStore(t)

	_, err := store.Load("summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summary")
}

func TestPromptStore_CachesUntilReload(t *testing.T) {
	store, dir := newPromptStore(t)

	first, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)

	writePrompt(t, dir, driven.PromptAnswer, "New: %s / %s")

	cached, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	assert.Equal(t, "New: %s / %s", fresh)
}

func TestPromptStore_UnwritableDirUsesBuiltIns(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	store, err := NewPromptStore(filepath.Join(blocker, "prompts"))
	require.NoError(t, err)

	p, err := store.Load(driven.PromptSystem)
	require.NoError(t, err)
	assert.Equal(t, promptSpecs[driven.PromptSystem].fallback, p)
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	store, _ := newPromptStore(t)

	const n = 50
	results := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := store.Load(driven.PromptAnswer)
			assert.NoError(t, err)
			results[i] = p
		}()
	}
	wg.Wait()

	for _, p := range results {
		assert.Equal(t, results[0], p)
	}
}

func TestCheckAnswerTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		wantErr  error
	}{
		{"two placeholders", "%s\n---\n%s", nil},
		{"escaped percent", "%s is 50%% of %s", nil},
		{"one placeholder", "%s", errPlaceholders},
		{"bare percent", "%s 100% %s", errVerb},
		{"width flag", "%5s %s", errVerb},
		{"digit verb", "%d %s %s", errVerb},
		{"trailing percent", "%s %s %", errVerb},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkAnswerTemplate(tt.template)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.NotContains(t, fmt.Sprintf(tt.template, "ctx", "q"), "%!")
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
