package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSectionType_Label tests metadata type labels
func TestSectionType_Label(t *testing.T) {
	assert.Equal(t, "docx_text", SectionText.Label(FileTypeDOCX))
	assert.Equal(t, "docx_table", SectionTable.Label(FileTypeDOCX))
	assert.Equal(t, "table", SectionTable.String())
}

// TestSection_Length tests length is measured in characters, not bytes
func TestSection_Length(t *testing.T) {
	s := Section{Content: "naïve café"}
	assert.Equal(t, 10, s.Length())
	assert.Equal(t, 0, Section{}.Length())
}

// TestChunk_ID tests the ID accessor reads assigned metadata
func TestChunk_ID(t *testing.T) {
	c := Chunk{Content: "hello"}
	assert.Empty(t, c.ID())

	c.Metadata.ID = "a.docx:docx:page_0:chunk_0"
	assert.Equal(t, "a.docx:docx:page_0:chunk_0", c.ID())
	assert.Equal(t, 5, c.Length())
}
