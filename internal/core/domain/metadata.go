package domain

import (
	"fmt"
	"strconv"
)

// Metadata keys that survive normalisation.
const (
	MetaSource     = "source"
	MetaPage       = "page"
	MetaType       = "type"
	MetaID         = "id"
	MetaTotalPages = "total_pages"
	MetaHasTable   = "has_table"
	MetaUsedOCR    = "used_ocr"
	MetaFileType   = "file_type"
)

// AllowedMetadataKeys lists, in canonical order, the only keys a chunk's
// metadata may carry at the storage boundary.
func AllowedMetadataKeys() []string {
	return []string{
		MetaSource,
		MetaPage,
		MetaType,
		MetaID,
		MetaTotalPages,
		MetaHasTable,
		MetaUsedOCR,
		MetaFileType,
	}
}

// ChunkMetadata is the fixed metadata record of a section or chunk.
type ChunkMetadata struct {
	// Source is the base filename of the originating document.
	Source string `json:"source"`

	// Page is the section index within the document.
	Page int `json:"page"`

	// Type is the content label, e.g. "docx_text" or "docx_table".
	Type string `json:"type"`

	// ID is the deterministic chunk identifier. Empty until assigned.
	ID string `json:"id,omitempty"`

	// TotalPages is the section count of the document.
	TotalPages int `json:"total_pages"`

	// HasTable is true for table sections.
	HasTable bool `json:"has_table"`

	// UsedOCR is true when content was recovered by OCR.
	UsedOCR bool `json:"used_ocr,omitempty"`

	// FileType is the source format tag, e.g. "docx".
	FileType string `json:"file_type"`
}

// Map returns the boundary representation of the record.
// ID is omitted until assigned and UsedOCR only appears when set.
func (m ChunkMetadata) Map() map[string]any {
	out := map[string]any{
		MetaSource:     m.Source,
		MetaPage:       m.Page,
		MetaType:       m.Type,
		MetaTotalPages: m.TotalPages,
		MetaHasTable:   m.HasTable,
		MetaFileType:   m.FileType,
	}
	if m.ID != "" {
		out[MetaID] = m.ID
	}
	if m.UsedOCR {
		out[MetaUsedOCR] = true
	}
	return out
}

// ChunkMetadataFromMap decodes an arbitrary boundary map into the fixed record.
// The map is normalised first, so unknown keys are ignored and values of the
// wrong kind are coerced where possible.
func ChunkMetadataFromMap(raw map[string]any) ChunkMetadata {
	m := NormaliseMetadata(raw)
	return ChunkMetadata{
		Source:     stringValue(m[MetaSource]),
		Page:       intValue(m[MetaPage]),
		Type:       stringValue(m[MetaType]),
		ID:         stringValue(m[MetaID]),
		TotalPages: intValue(m[MetaTotalPages]),
		HasTable:   boolValue(m[MetaHasTable]),
		UsedOCR:    boolValue(m[MetaUsedOCR]),
		FileType:   stringValue(m[MetaFileType]),
	}
}

// NormaliseMetadata restricts a metadata mapping to the allowed keys.
// Primitive values (strings, numbers, booleans and nil) pass through
// unchanged, any other present value is stringified, and absent keys stay
// absent. It never fails and is idempotent.
func NormaliseMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for _, key := range AllowedMetadataKeys() {
		value, ok := in[key]
		if !ok {
			continue
		}
		if isPrimitive(value) {
			out[key] = value
		} else {
			out[key] = fmt.Sprint(value)
		}
	}
	return out
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint:
		return int(n)
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		return int(n)
	case uint64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

func boolValue(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	case nil:
		return false
	default:
		return intValue(b) != 0
	}
}
