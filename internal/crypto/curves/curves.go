// Package curves adapts elliptic-curve libraries to the small point and
// scalar surface needed by the signature protocols. Scalars are *big.Int
// values reduced modulo the group order.
package curves

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/smallyu/go-cryptoproto/pkg/cp"
)

// maxScalarAttempts bounds rejection sampling of non-zero scalars.
const maxScalarAttempts = 64

// Point is an element of a prime-order elliptic-curve group.
type Point interface {
	// Bytes returns the compressed encoding of the point.
	Bytes() []byte

	// Add returns the sum of this point and q.
	Add(q Point) Point

	// ScalarMult returns k times this point using the generic
	// variable-base algorithm.
	ScalarMult(k *big.Int) Point

	// Equal reports whether both points are the same group element.
	Equal(q Point) bool

	// IsIdentity reports whether the point is the group identity.
	IsIdentity() bool

	// X returns the affine x-coordinate as an integer, or nil for the
	// identity.
	X() *big.Int
}

// Curve describes a prime-order group with a fixed generator G.
type Curve interface {
	// Name returns the configuration name of the curve.
	Name() string

	// Order returns the order n of the generator.
	Order() *big.Int

	// Generator returns G.
	Generator() Point

	// Identity returns the neutral element.
	Identity() Point

	// ScalarBaseMult computes k*G with the library's precomputed
	// fixed-base tables.
	ScalarBaseMult(k *big.Int) Point

	// NewPointFromBytes decodes a compressed point. The identity and points
	// outside the prime-order group are rejected.
	NewPointFromBytes(b []byte) (Point, error)
}

// ByName returns the curve registered under name.
func ByName(name string) (Curve, error) {
	switch strings.ToLower(name) {
	case "secp256k1", "":
		return NewSecp256k1(), nil
	case "ed25519", "edwards25519":
		return NewEd25519(), nil
	}
	return nil, fmt.Errorf("curves: %w: unknown curve %q", cp.ErrInvalidParameters, name)
}

// RandomScalar returns a uniform scalar in [1, n-1].
func RandomScalar(random io.Reader, c Curve) (*big.Int, error) {
	n := c.Order()
	for i := 0; i < maxScalarAttempts; i++ {
		k, err := rand.Int(random, n)
		if err != nil {
			return nil, fmt.Errorf("curves: read randomness: %w", err)
		}
		if k.Sign() != 0 {
			return k, nil
		}
	}
	return nil, fmt.Errorf("curves: random scalar: %w", cp.ErrGeneration)
}
