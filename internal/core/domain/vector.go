package domain

import "fmt"

// SquaredL2 returns the squared Euclidean distance between two vectors.
// Lower is closer. Vectors of different length are compared over their
// common prefix, with the excess of the longer one counted against it.
func SquaredL2(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	for _, v := range a[n:] {
		sum += float64(v) * float64(v)
	}
	for _, v := range b[n:] {
		sum += float64(v) * float64(v)
	}
	return sum
}

// CheckDimensions verifies that every chunk embedding has the width of the
// vectors already stored. A width of 0 means nothing is stored yet, in which
// case the first chunk sets the width for the batch.
func CheckDimensions(stored int, chunks []Chunk) error {
	want := stored
	for _, c := range chunks {
		if want == 0 {
			want = len(c.Embedding)
		}
		if len(c.Embedding) != want {
			return fmt.Errorf("%w: chunk %s has %d dimensions, index has %d",
				ErrDimensionMismatch, c.ID(), len(c.Embedding), want)
		}
	}
	return nil
}
