// Package primes samples random primes for RSA key generation.
package primes

import (
	"fmt"
	"io"
	"math/big"

	"github.com/smallyu/go-cryptoproto/internal/crypto/secret"
	"github.com/smallyu/go-cryptoproto/pkg/cp"
)

// MillerRabinRounds is the number of Miller-Rabin rounds run on each
// candidate in addition to the Baillie-PSW test done by math/big.
const MillerRabinRounds = 20

// Generate returns a random prime of exactly bits bits with its two most
// significant bits set, so that the product of two such primes has exactly
// 2*bits bits. At most attempts odd candidates are drawn from random.
func Generate(random io.Reader, bits, attempts int) (*big.Int, error) {
	if bits < 2 {
		return nil, fmt.Errorf("primes: %w: prime size must be at least 2 bits", cp.ErrInvalidParameters)
	}

	b := uint(bits % 8)
	if b == 0 {
		b = 8
	}

	buf := make([]byte, (bits+7)/8)
	defer secret.Bytes(buf)

	p := new(big.Int)
	for i := 0; i < attempts; i++ {
		if _, err := io.ReadFull(random, buf); err != nil {
			return nil, fmt.Errorf("primes: read randomness: %w", err)
		}

		// Clear bits in the first byte to make sure the candidate has a size <= bits.
		buf[0] &= uint8(int(1<<b) - 1)
		// Set the top two bits.
		if b >= 2 {
			buf[0] |= 3 << (b - 2)
		} else {
			buf[0] |= 1
			if len(buf) > 1 {
				buf[1] |= 0x80
			}
		}
		// Make the value odd since an even number this large cannot be prime.
		buf[len(buf)-1] |= 1

		p.SetBytes(buf)
		if p.ProbablyPrime(MillerRabinRounds) {
			return p, nil
		}
	}

	secret.Int(p)
	return nil, fmt.Errorf("primes: no %d-bit prime in %d candidates: %w", bits, attempts, cp.ErrGeneration)
}
