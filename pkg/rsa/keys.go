package rsa

import (
	"fmt"
	"math/big"

	"github.com/smallyu/go-cryptoproto/internal/crypto/secret"
	"github.com/smallyu/go-cryptoproto/pkg/cp"
)

// PublicKey represents an RSA public key (n, e).
type PublicKey struct {
	N *big.Int // Modulus n = p * q
	E *big.Int // Public exponent
}

// Size returns the modulus length in bytes. Ciphertexts and signatures for
// this key have exactly this length.
func (pub *PublicKey) Size() int {
	return (pub.N.BitLen() + 7) / 8
}

func (pub *PublicKey) valid() bool {
	return pub != nil && pub.N != nil && pub.E != nil && pub.N.Sign() > 0 && pub.E.Sign() > 0
}

// PrivateKey is an RSA private key. It is implemented by exactly two types:
// *PlainKey, which only supports the basic exponentiation, and *CRTKey, which
// carries the CRT values needed by the quick path.
type PrivateKey interface {
	cp.Zeroizer

	// Public returns the public half of the key.
	Public() *PublicKey

	// private computes c^d mod n for c < n.
	private(c *big.Int) (*big.Int, error)
}

// PlainKey is a private key without CRT values.
type PlainKey struct {
	PublicKey
	D *big.Int // d = e^-1 mod (p-1)(q-1)
	P *big.Int
	Q *big.Int
}

// Public returns the public half of the key.
func (k *PlainKey) Public() *PublicKey {
	if k == nil {
		return nil
	}
	return &k.PublicKey
}

func (k *PlainKey) private(c *big.Int) (*big.Int, error) {
	if k.D == nil {
		return nil, fmt.Errorf("rsa: %w: missing private exponent", cp.ErrInvalidKey)
	}
	return new(big.Int).Exp(c, k.D, k.N), nil
}

// Zero clears d, p and q. The key is unusable afterwards.
func (k *PlainKey) Zero() {
	if k == nil {
		return
	}
	secret.Int(k.D, k.P, k.Q)
}

// Validate performs basic consistency checks on the key.
func (k *PlainKey) Validate() error {
	if k == nil || !k.PublicKey.valid() || k.D == nil || k.P == nil || k.Q == nil {
		return fmt.Errorf("rsa: %w: incomplete key", cp.ErrInvalidKey)
	}
	if new(big.Int).Mul(k.P, k.Q).Cmp(k.N) != 0 {
		return fmt.Errorf("rsa: %w: modulus does not match primes", cp.ErrInvalidKey)
	}

	// e*d must be 1 modulo p-1 and q-1.
	de := new(big.Int).Mul(k.E, k.D)
	defer secret.Int(de)
	for _, prime := range []*big.Int{k.P, k.Q} {
		pm1 := new(big.Int).Sub(prime, one)
		r := new(big.Int).Mod(de, pm1)
		ok := r.Cmp(one) == 0
		secret.Int(pm1, r)
		if !ok {
			return fmt.Errorf("rsa: %w: invalid exponents", cp.ErrInvalidKey)
		}
	}
	return nil
}

// CRTKey is a private key carrying the values for CRT exponentiation.
type CRTKey struct {
	PlainKey
	Dp   *big.Int // d mod (p-1)
	Dq   *big.Int // d mod (q-1)
	Qinv *big.Int // q^-1 mod p
}

// Public returns the public half of the key.
func (k *CRTKey) Public() *PublicKey {
	if k == nil {
		return nil
	}
	return &k.PublicKey
}

// Plain returns the key viewed without its CRT values, which selects the
// basic computation path.
func (k *CRTKey) Plain() *PlainKey {
	if k == nil {
		return nil
	}
	return &k.PlainKey
}

// private computes c^d mod n as
//
//	m1 = c^dp mod p, m2 = c^dq mod q, h = qinv*(m1-m2) mod p, m = m2 + h*q.
func (k *CRTKey) private(c *big.Int) (*big.Int, error) {
	if k.Dp == nil || k.Dq == nil || k.Qinv == nil {
		return nil, fmt.Errorf("rsa: %w: missing CRT values", cp.ErrInvalidKey)
	}

	m1 := new(big.Int).Exp(c, k.Dp, k.P)
	m2 := new(big.Int).Exp(c, k.Dq, k.Q)

	h := m1.Sub(m1, m2)
	h.Mul(h, k.Qinv)
	h.Mod(h, k.P)

	m := h.Mul(h, k.Q)
	m.Add(m, m2)
	secret.Int(m2)
	return m, nil
}

// Zero clears all secret values. The key is unusable afterwards.
func (k *CRTKey) Zero() {
	if k == nil {
		return
	}
	k.PlainKey.Zero()
	secret.Int(k.Dp, k.Dq, k.Qinv)
}

// Validate checks the plain key and the CRT values derived from it.
func (k *CRTKey) Validate() error {
	if k == nil {
		return fmt.Errorf("rsa: %w: incomplete key", cp.ErrInvalidKey)
	}
	if err := k.PlainKey.Validate(); err != nil {
		return err
	}
	if k.Dp == nil || k.Dq == nil || k.Qinv == nil {
		return fmt.Errorf("rsa: %w: missing CRT values", cp.ErrInvalidKey)
	}

	pm1 := new(big.Int).Sub(k.P, one)
	qm1 := new(big.Int).Sub(k.Q, one)
	dp := new(big.Int).Mod(k.D, pm1)
	dq := new(big.Int).Mod(k.D, qm1)
	qq := new(big.Int).Mul(k.Qinv, k.Q)
	qq.Mod(qq, k.P)
	ok := dp.Cmp(k.Dp) == 0 && dq.Cmp(k.Dq) == 0 && qq.Cmp(one) == 0
	secret.Int(pm1, qm1, dp, dq, qq)
	if !ok {
		return fmt.Errorf("rsa: %w: inconsistent CRT values", cp.ErrInvalidKey)
	}
	return nil
}
