package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/kbrag/internal/core/ports/driven"
	"github.com/custodia-labs/kbrag/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// errPlaceholders is returned for an answer template that does not take
// exactly a context and a question.
var errPlaceholders = errors.New("answer prompt must contain exactly two %s placeholders")

// errVerb is returned for a % sequence other than %s or %%.
var errVerb = errors.New("answer prompt may only use %s placeholders; write %% for a literal percent sign")

// promptSpec describes one editable prompt file.
type promptSpec struct {
	summary  string
	fallback string
	check    func(string) error
}

var promptSpecs = map[string]promptSpec{
	driven.PromptAnswer: {
		summary: "wraps the retrieved context (first %s) and the question (second %s)",
		fallback: `Answer the question based only on the following context:

%s

---

Answer the question based on the above context: %s`,
		check: checkAnswerTemplate,
	},
	driven.PromptSystem: {
		summary: "system message sent with every answer request",
		fallback: `You answer questions about an internal knowledge base of office documents.
Use only the supplied context. If the context does not contain the answer, say so plainly.
Quote table values exactly as they appear.`,
	},
}

// checkAnswerTemplate accepts a template that fmt.Sprintf can fill with the
// context and the question: exactly two %s, with %% for literal percents.
func checkAnswerTemplate(p string) error {
	placeholders := 0
	for i := 0; i < len(p); i++ {
		if p[i] != '%' {
			continue
		}
		if i+1 == len(p) {
			return fmt.Errorf("%w: trailing %%", errVerb)
		}
		i++
		switch p[i] {
		case 's':
			placeholders++
		case '%':
		default:
			return fmt.Errorf("%w: found %%%c", errVerb, p[i])
		}
	}
	if placeholders != 2 {
		return errPlaceholders
	}
	return nil
}

// PromptStore serves prompt templates from <dir>/<name>.txt. Missing, empty
// or malformed files fall back to the built-in text. The directory is seeded
// with the built-in prompts on first use, never overwriting edits.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu     sync.Mutex
	loaded map[string]string
}

// NewPromptStore returns a store rooted at dir, or ~/.kbrag/prompts when dir is empty.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".kbrag", "prompts")
	}
	return &PromptStore{dir: dir, loaded: make(map[string]string)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the named prompt.
func (s *PromptStore) Load(name string) (string, error) {
	spec, known := promptSpecs[name]
	if !known {
		return "", fmt.Errorf("unknown prompt %q", name)
	}

	s.seedOnce.Do(func() { s.seedErr = s.seed() })
	if s.seedErr != nil {
		logger.Debug("prompts: %v, using built-in %s", s.seedErr, name)
		return spec.fallback, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.loaded[name]; ok {
		return p, nil
	}

	p := s.read(name, spec)
	s.loaded[name] = p
	return p, nil
}

// Reload forgets loaded prompts so the next Load reads from disk again.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.loaded = make(map[string]string)
	s.mu.Unlock()
}

func (s *PromptStore) read(name string, spec promptSpec) string {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return spec.fallback
	}
	p := strings.TrimSpace(string(data))
	if p == "" {
		return spec.fallback
	}
	if spec.check != nil {
		if err := spec.check(p); err != nil {
			logger.Warn("Ignoring %s: %v", s.path(name), err)
			return spec.fallback
		}
	}
	return p
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

func (s *PromptStore) seed() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}

	names := make([]string, 0, len(promptSpecs))
	for name := range promptSpecs {
		names = append(names, name)
	}
	sort.Strings(names)

	var readme strings.Builder
	readme.WriteString("# kbrag prompts\n\nEdit these files to change how answers are phrased.\n")
	readme.WriteString("Changes apply to the next command or after restarting `kbrag serve`.\n\n")

	for _, name := range names {
		spec := promptSpecs[name]
		fmt.Fprintf(&readme, "- `%s.txt`: %s\n", name, spec.summary)
		if err := writeIfMissing(s.path(name), spec.fallback); err != nil {
			return fmt.Errorf("seed prompt %q: %w", name, err)
		}
	}

	return writeIfMissing(filepath.Join(s.dir, "README.md"), readme.String())
}

func writeIfMissing(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
