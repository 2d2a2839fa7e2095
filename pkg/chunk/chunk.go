// Package chunk splits book text into overlapping fixed-size windows.
package chunk

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Splitter cuts text into windows of at most Size runes where consecutive
// windows share exactly Overlap runes.
type Splitter struct {
	size    int
	overlap int
}

// New returns a Splitter. It fails when size is not positive or when overlap
// is negative or not smaller than size.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// MustNew is like New but panics on invalid parameters.
func MustNew(size, overlap int) *Splitter {
	s, err := New(size, overlap)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Splitter) Size() int    { return s.size }
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the windows covering text in order. The last window may be
// shorter than the size. Empty input yields an empty slice.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	n := len(runes)
	chunks := make([]string, 0, s.count(n))
	if n == 0 {
		return chunks
	}

	step := s.size - s.overlap
	for start := 0; ; start += step {
		end := min(start+s.size, n)
		chunks = append(chunks, string(runes[start:end]))
		if end == n {
			break
		}
	}
	return chunks
}

func (s *Splitter) count(n int) int {
	if n <= s.size {
		if n == 0 {
			return 0
		}
		return 1
	}
	step := s.size - s.overlap
	return 1 + (n-s.size+step-1)/step
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// EstimateTokens counts o200k_base tokens of text. When the encoding cannot be
// loaded it falls back to one token per four bytes.
func EstimateTokens(text string) int {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("o200k_base")
		if err == nil {
			enc = e
		}
	})
	if enc == nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
