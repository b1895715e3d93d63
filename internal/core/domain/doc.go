// Package domain holds the value types shared by every layer of kbrag.
//
// A run starts with SourceFile and RawDocument, which the extractor turns
// into Sections: one per paragraph run or table. Splitting turns sections
// into Chunks, each carrying a ChunkMetadata record whose ID has the form
// source:file_type:page_N[_table][_ocr]:chunk_M. Queries return SearchHits
// and QueryResponses, and an ingestion run is summarised by an IngestReport.
//
// Settings types and the sentinel errors live here too. The package
// depends on the standard library only.
package domain
