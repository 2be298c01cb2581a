package id

import (
	"encoding/hex"
	"errors"
	"testing"
)

func TestNewID_HexOfExpectedLength(t *testing.T) {
	t.Parallel()

	gen := NewRandomGenerator()

	first, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	if len(first) != idBytes*2 {
		t.Fatalf("unexpected id length: %d", len(first))
	}
	if _, err := hex.DecodeString(first); err != nil {
		t.Fatalf("id is not hex: %q", first)
	}

	second, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	if first == second {
		t.Fatalf("consecutive ids collided: %q", first)
	}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestNewID_SourceFailure(t *testing.T) {
	t.Parallel()

	gen := &RandomGenerator{source: brokenReader{}}
	if _, err := gen.NewID(); err == nil {
		t.Fatal("expected error from broken entropy source")
	}
}
