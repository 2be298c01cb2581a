package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// idBytes is the entropy per identifier. 16 bytes keeps collisions
// implausible for a device registry while staying short enough to read
// out of a log line.
const idBytes = 16

// Generator creates opaque IDs suitable for external references.
type Generator interface {
	NewID() (string, error)
}

// RandomGenerator emits hex-encoded random identifiers.
type RandomGenerator struct {
	source io.Reader
}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{source: rand.Reader}
}

func (g *RandomGenerator) NewID() (string, error) {
	buf := make([]byte, idBytes)
	if _, err := io.ReadFull(g.source, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
