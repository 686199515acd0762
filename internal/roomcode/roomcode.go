// Package roomcode draws short room codes. Uniqueness is the caller's job.
package roomcode

import (
	"crypto/rand"
	"io"
	"math/big"
)

const (
	Length   = 6
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Generator draws codes from a random source
type Generator struct {
	src io.Reader
}

// New returns a generator backed by crypto/rand
func New() *Generator {
	return &Generator{src: rand.Reader}
}

// NewWithSource is used by tests to make draws reproducible
func NewWithSource(src io.Reader) *Generator {
	return &Generator{src: src}
}

// Generate returns Length symbols drawn uniformly from Alphabet
func (g *Generator) Generate() string {
	code := make([]byte, Length)
	limit := big.NewInt(int64(len(Alphabet)))
	for i := range code {
		n, err := rand.Int(g.src, limit)
		if err != nil {
			// exhausted or broken source
			n, _ = rand.Int(rand.Reader, limit)
		}
		code[i] = Alphabet[n.Int64()]
	}
	return string(code)
}

// Valid reports whether s has the shape of a room code
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
