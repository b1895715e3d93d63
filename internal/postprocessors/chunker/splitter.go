package chunker

import (
	"strings"
	"unicode/utf8"
)

// Splitter is a recursive character splitter. It cuts on the coarsest
// separator present in the text, greedily merges pieces up to the chunk size
// with overlap carried from the previous window, and recurses with finer
// separators into pieces that are still too long. Lengths are in characters.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewSplitter creates a splitter. Separators are tried in order; an empty
// separator splits into single characters.
func NewSplitter(chunkSize, overlap int, separators []string) *Splitter {
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: separators,
	}
}

// Piece is one chunk of text and its character offset in the source.
type Piece struct {
	Text   string
	Offset int
}

// Split cuts text into trimmed, non-empty pieces and locates each one.
// Offsets are non-negative and non-decreasing.
func (s *Splitter) Split(text string) []Piece {
	chunks := s.SplitText(text)
	pieces := make([]Piece, 0, len(chunks))

	index, prevLen := 0, 0
	for _, c := range chunks {
		from := index + prevLen - s.overlap
		if from < 0 {
			from = 0
		}
		found := runeIndex(text, c, from)
		if found < index {
			// Repeated text inside the overlap can match before the previous
			// chunk; offsets never go backwards.
			found = runeIndex(text, c, index)
		}
		if found < 0 {
			found = index
		}
		index, prevLen = found, utf8.RuneCountInString(c)
		pieces = append(pieces, Piece{Text: c, Offset: found})
	}
	return pieces
}

// SplitText cuts text into trimmed, non-empty chunks.
func (s *Splitter) SplitText(text string) []string {
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	var sep string
	if len(separators) > 0 {
		sep = separators[len(separators)-1]
	}
	var finer []string
	for i, candidate := range separators {
		if candidate == "" {
			sep = ""
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			finer = separators[i+1:]
			break
		}
	}

	var (
		out  []string
		good []string
	)
	for _, piece := range splitKeepSeparator(text, sep) {
		if length(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, s.merge(good)...)
			good = nil
		}
		if len(finer) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, s.split(piece, finer)...)
		}
	}
	if len(good) > 0 {
		out = append(out, s.merge(good)...)
	}
	return out
}

// merge joins small pieces into windows of at most chunkSize characters.
// When a window is emitted, pieces are dropped from its front until what
// remains fits in the overlap and leaves room for the next piece.
func (s *Splitter) merge(pieces []string) []string {
	var (
		out     []string
		current []string
		total   int
	)

	for _, p := range pieces {
		n := length(p)
		if total+n > s.chunkSize && len(current) > 0 {
			if doc := joinTrimmed(current); doc != "" {
				out = append(out, doc)
			}
			for total > s.overlap || (total+n > s.chunkSize && total > 0) {
				total -= length(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}

	if doc := joinTrimmed(current); doc != "" {
		out = append(out, doc)
	}
	return out
}

// splitKeepSeparator splits text on sep, attaching each separator to the
// start of the piece that follows it. An empty sep yields single characters.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func joinTrimmed(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}

// runeIndex finds sub in text at or after the character offset from and
// returns its character offset, or -1.
func runeIndex(text, sub string, from int) int {
	start := 0
	for i := 0; i < from && start < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[start:])
		start += size
	}
	if from > 0 && start >= len(text) {
		if sub == "" {
			return utf8.RuneCountInString(text)
		}
		return -1
	}
	idx := strings.Index(text[start:], sub)
	if idx < 0 {
		return -1
	}
	return from + utf8.RuneCountInString(text[start:start+idx])
}
