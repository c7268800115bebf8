package common

import "fmt"

// Sample is one training point: a key and its 0-based rank in the
// globally sorted input.
type Sample struct {
	Key float64
	Pos int
}

// String for debug printing
func (s Sample) String() string {
	return fmt.Sprintf("Sample{Key: %g, Pos: %d}", s.Key, s.Pos)
}
