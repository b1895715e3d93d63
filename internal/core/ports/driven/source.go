package driven

import (
	"context"

	"github.com/custodia-labs/kbrag/internal/core/domain"
)

// DocumentSource discovers and reads documents from the knowledge base.
type DocumentSource interface {
	// Root returns the location being scanned.
	Root() string

	// List returns candidate documents sorted by name.
	// A missing root yields an empty list, not an error.
	List(ctx context.Context) ([]domain.SourceFile, error)

	// Read loads the bytes of one document.
	Read(ctx context.Context, file domain.SourceFile) (*domain.RawDocument, error)

	// Watch reports changes to candidate documents until ctx is cancelled.
	// The channel is closed when watching stops.
	Watch(ctx context.Context) (<-chan domain.FileChange, error)
}
