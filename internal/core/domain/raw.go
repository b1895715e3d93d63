package domain

import "time"

// SourceFile is a candidate document discovered in the knowledge base directory.
type SourceFile struct {
	// Path is the full filesystem path.
	Path string

	// Name is the base filename. It becomes the chunk source.
	Name string

	// Size is the file size in bytes.
	Size int64

	// ModTime is the last modification time.
	ModTime time.Time
}

// RawDocument represents the opaque bytes of a source file.
// It is the source's output before extraction.
type RawDocument struct {
	// URI is the original location (file path).
	URI string

	// Filename is the base name used as the chunk source.
	Filename string

	// Content is the raw bytes.
	Content []byte
}

// ChangeType represents the type of document change.
type ChangeType int

const (
	// ChangeCreated indicates a new document.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified document.
	ChangeUpdated

	// ChangeDeleted indicates a removed document.
	ChangeDeleted
)

// String returns a human-readable change name.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// FileChange is a change event reported by a watched document source.
type FileChange struct {
	// Type is the kind of change.
	Type ChangeType

	// Path is the affected file.
	Path string
}
