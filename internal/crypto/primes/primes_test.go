package primes

import (
	"bytes"
	"errors"
	"testing"

	"github.com/smallyu/go-cryptoproto/pkg/cp"
	"lukechampine.com/frand"
)

type constReader byte

func (c constReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(c)
	}
	return len(p), nil
}

func TestGenerate(t *testing.T) {
	for _, bits := range []int{9, 64, 255, 512} {
		p, err := Generate(frand.Reader, bits, 100*bits)
		if err != nil {
			t.Fatalf("Generate(%d) failed: %v", bits, err)
		}
		if p.BitLen() != bits {
			t.Errorf("Expected %d bits, got %d", bits, p.BitLen())
		}
		if p.Bit(bits-2) != 1 {
			t.Errorf("Second most significant bit not set for %d-bit prime", bits)
		}
		if !p.ProbablyPrime(MillerRabinRounds) {
			t.Errorf("Generated value is not prime: %s", p)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)
	p1, err := Generate(frand.NewCustom(seed, 1024, 20), 256, 10000)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	p2, err := Generate(frand.NewCustom(seed, 1024, 20), 256, 10000)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if p1.Cmp(p2) != 0 {
		t.Error("Same seed produced different primes")
	}
}

func TestGenerateBounded(t *testing.T) {
	// 0xFF...FF is 2^64-1, which is composite, and the reader never changes.
	_, err := Generate(constReader(0xFF), 64, 5)
	if !errors.Is(err, cp.ErrGeneration) {
		t.Fatalf("Expected ErrGeneration, got %v", err)
	}

	_, err = Generate(frand.Reader, 1, 5)
	if !errors.Is(err, cp.ErrInvalidParameters) {
		t.Fatalf("Expected ErrInvalidParameters, got %v", err)
	}
}
