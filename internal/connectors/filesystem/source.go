// Package filesystem provides the knowledge base document source: a flat
// directory of .docx files, listed in name order and optionally watched.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/kbrag/internal/core/domain"
	"github.com/custodia-labs/kbrag/internal/core/ports/driven"
	"github.com/custodia-labs/kbrag/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// DefaultDebounce coalesces bursts of events, such as an editor saving a
// file through a temporary copy, into one change notification.
const DefaultDebounce = 2 * time.Second

// lockFilePrefix marks Office owner files left next to open documents.
const lockFilePrefix = "~$"

// Source lists and reads candidate documents from a directory.
// Subdirectories are not scanned.
type Source struct {
	root       string
	extensions []string
	debounce   time.Duration
}

// Option configures a Source.
type Option func(*Source)

// WithExtensions replaces the accepted file extensions.
func WithExtensions(exts ...string) Option {
	return func(s *Source) {
		s.extensions = exts
	}
}

// WithDebounce sets the quiet period before a change is reported.
func WithDebounce(d time.Duration) Option {
	return func(s *Source) {
		s.debounce = d
	}
}

// New creates a source rooted at dir accepting .docx files.
func New(dir string, opts ...Option) *Source {
	s := &Source{
		root:       dir,
		extensions: []string{".docx"},
		debounce:   DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the directory being scanned.
func (s *Source) Root() string {
	return s.root
}

// List returns candidate documents sorted by name.
// A missing directory yields an empty list.
func (s *Source) List(ctx context.Context) ([]domain.SourceFile, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Knowledge base directory %s does not exist", s.root)
			return nil, nil
		}
		return nil, fmt.Errorf("read directory %s: %w", s.root, err)
	}

	var files []domain.SourceFile
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || isHidden(entry.Name()) || !s.isCandidate(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			logger.Warn("Skipping %s: %v", entry.Name(), err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, domain.SourceFile{
			Path:    filepath.Join(s.root, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// Read loads the bytes of one document.
func (s *Source) Read(ctx context.Context, file domain.SourceFile) (*domain.RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := file.Path
	if path == "" {
		path = filepath.Join(s.root, file.Name)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.Name, err)
	}

	name := file.Name
	if name == "" {
		name = filepath.Base(path)
	}
	return &domain.RawDocument{
		URI:      path,
		Filename: name,
		Content:  content,
	}, nil
}

// Watch reports debounced changes to candidate documents until ctx is
// cancelled. Events for the same path within the debounce window collapse
// into one, carrying the latest change type.
func (s *Source) Watch(ctx context.Context) (<-chan domain.FileChange, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", s.root, err)
	}

	out := make(chan domain.FileChange)
	go s.watchLoop(ctx, watcher, out)
	return out, nil
}

func (s *Source) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- domain.FileChange) {
	defer close(out)
	defer watcher.Close()

	pending := make(map[string]domain.FileChange)
	timer := time.NewTimer(s.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			change := s.handleFsEvent(event)
			if change == nil {
				continue
			}
			pending[change.Path] = *change
			timer.Reset(s.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			for _, p := range paths {
				select {
				case out <- pending[p]:
				case <-ctx.Done():
					return
				}
			}
			pending = make(map[string]domain.FileChange)
		}
	}
}

// handleFsEvent converts an fsnotify event into a change for candidate
// files. Directories, hidden files, lock files and chmod-only events are
// ignored. Hidden is judged relative to the root.
func (s *Source) handleFsEvent(event fsnotify.Event) *domain.FileChange {
	rel, err := filepath.Rel(s.root, event.Name)
	if err != nil {
		rel = event.Name
	}
	if isHidden(rel) || !s.isCandidate(filepath.Base(event.Name)) {
		return nil
	}

	switch {
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		return &domain.FileChange{Type: domain.ChangeDeleted, Path: event.Name}
	case event.Op&fsnotify.Create != 0, event.Op&fsnotify.Write != 0:
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		typ := domain.ChangeUpdated
		if event.Op&fsnotify.Create != 0 {
			typ = domain.ChangeCreated
		}
		return &domain.FileChange{Type: typ, Path: event.Name}
	default:
		return nil
	}
}

// isCandidate reports whether a base filename is an ingestible document.
func (s *Source) isCandidate(name string) bool {
	if strings.HasPrefix(name, lockFilePrefix) {
		return false
	}
	ext := filepath.Ext(name)
	for _, want := range s.extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

// isHidden reports whether any path element starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
