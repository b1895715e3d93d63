// Package normalisers provides implementations of the Extractor interface.
// Each extractor turns the raw bytes of one document format into ordered
// sections ready for splitting.
package normalisers
