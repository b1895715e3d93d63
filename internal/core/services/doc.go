// Package services holds the ingestion, query and settings use cases.
//
// IngestService turns a folder of documents into an index generation,
// QueryService retrieves chunks and asks the answer model, and
// SettingsService reads and writes config.toml. Each talks to the outside
// world only through the driven ports.
package services
