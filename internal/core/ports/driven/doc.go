// Package driven declares what the core needs from the outside world.
//
// Ingestion needs a DocumentSource to list and read files, an Extractor to
// turn DOCX bytes into sections, a PostProcessorPipeline to cut and label
// chunks, an EmbeddingService and a VectorIndex. Settings live behind a
// ConfigStore.
//
// LLMService, PromptStore and AIConfigValidator may be nil. Without an LLM
// the query path still searches; without prompts the built-in templates
// are used.
//
// This package imports domain and nothing else from kbrag.
package driven
