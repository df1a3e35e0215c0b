package ecdsa

import (
	"fmt"
	"math/big"

	"github.com/smallyu/go-cryptoproto/internal/crypto/curves"
	"github.com/smallyu/go-cryptoproto/internal/crypto/secret"
	"github.com/smallyu/go-cryptoproto/pkg/cp"
)

// PublicKey is the point Q = d*G on Curve.
type PublicKey struct {
	Curve curves.Curve
	Q     curves.Point
}

func (pub *PublicKey) valid() bool {
	return pub != nil && pub.Curve != nil && pub.Q != nil && !pub.Q.IsIdentity()
}

// Bytes returns the compressed encoding of Q.
func (pub *PublicKey) Bytes() []byte {
	return pub.Q.Bytes()
}

// ParsePublicKey decodes a compressed point on curve.
func ParsePublicKey(curve curves.Curve, b []byte) (*PublicKey, error) {
	q, err := curve.NewPointFromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("ecdsa: %w: %v", cp.ErrInvalidKey, err)
	}
	return &PublicKey{Curve: curve, Q: q}, nil
}

// PrivateKey holds the secret scalar d in [1, n-1] and its public key.
type PrivateKey struct {
	PublicKey
	D *big.Int
}

// NewPrivateKey builds a key from an existing scalar, recomputing Q.
func NewPrivateKey(curve curves.Curve, d *big.Int) (*PrivateKey, error) {
	if curve == nil || d == nil || d.Sign() <= 0 || d.Cmp(curve.Order()) >= 0 {
		return nil, fmt.Errorf("ecdsa: %w: scalar out of range", cp.ErrInvalidKey)
	}
	return &PrivateKey{
		PublicKey: PublicKey{
			Curve: curve,
			Q:     curve.ScalarBaseMult(d),
		},
		D: new(big.Int).Set(d),
	}, nil
}

// Public returns the public half of the key.
func (k *PrivateKey) Public() *PublicKey {
	if k == nil {
		return nil
	}
	return &k.PublicKey
}

// Zero clears d. The key is unusable afterwards.
func (k *PrivateKey) Zero() {
	if k == nil {
		return
	}
	secret.Int(k.D)
}

func (k *PrivateKey) valid() bool {
	return k != nil && k.PublicKey.valid() && k.D != nil && k.D.Sign() > 0 && k.D.Cmp(k.Curve.Order()) < 0
}

// Signature is an ECDSA signature (r, s) with both values in [1, n-1].
type Signature struct {
	R *big.Int
	S *big.Int
}
