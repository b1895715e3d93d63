package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/kbrag/internal/core/domain"
	"github.com/custodia-labs/kbrag/internal/core/ports/driven"
	"github.com/custodia-labs/kbrag/internal/postprocessors/chunker"
	"github.com/custodia-labs/kbrag/internal/postprocessors/chunkid"
	"github.com/custodia-labs/kbrag/internal/postprocessors/metadata"
)

// Config is one processor's table from the [pipeline.<name>] config section.
type Config map[string]any

// Int returns key as an int. TOML decodes integers as int64 and JSON as float64.
func (c Config) Int(key string) (int, bool) {
	switch v := c[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// BuilderFunc builds a processor from its config table, which may be nil.
type BuilderFunc func(cfg Config) (driven.PostProcessor, error)

// Registry resolves the processor names listed in pipeline.processors.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// NewDefaultRegistry returns a registry holding the built-in processors.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// Register adds a builder. It panics if name is empty or already taken.
func (r *Registry) Register(name string, builder BuilderFunc) {
	if name == "" || builder == nil {
		panic("postprocessors: Register needs a name and a builder")
	}
	if _, dup := r.builders[name]; dup {
		panic("postprocessors: Register called twice for " + name)
	}
	r.builders[name] = builder
}

// Build constructs the named processor.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: processor %q (known: %v)", domain.ErrUnsupportedType, name, r.Names())
	}
	proc, err := builder(Config(cfg))
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	return proc, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterDefaults registers the prose and table splitters, metadata
// normalisation and chunk ID assignment.
func RegisterDefaults(r *Registry) {
	r.Register(domain.ProcessorChunker, func(cfg Config) (driven.PostProcessor, error) {
		return chunker.New(splitOptions(cfg)...), nil
	})
	r.Register(domain.ProcessorTableChunker, func(cfg Config) (driven.PostProcessor, error) {
		return chunker.NewTable(splitOptions(cfg)...), nil
	})
	r.Register(domain.ProcessorMetadata, func(Config) (driven.PostProcessor, error) {
		return metadata.New(), nil
	})
	r.Register(domain.ProcessorChunkID, func(Config) (driven.PostProcessor, error) {
		return chunkid.New(), nil
	})
}

// splitOptions reads chunk_size and overlap. Missing, mistyped or out of
// range values keep the splitter's own defaults.
func splitOptions(cfg Config) []chunker.Option {
	var opts []chunker.Option
	if size, ok := cfg.Int("chunk_size"); ok && size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := cfg.Int("overlap"); ok && overlap >= 0 {
		opts = append(opts, chunker.WithOverlap(overlap))
	}
	return opts
}
