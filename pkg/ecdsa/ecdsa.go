// Package ecdsa implements ECDSA key generation, signing and verification
// over the curves in internal/crypto/curves.
//
// Basic and quick variants produce and accept the same signatures. Basic
// computes every scalar multiplication with the generic ladder; quick uses
// the curve's fixed-base tables for k*G, and a Verifier from NewVerifier adds
// a per-key comb table for Q.
package ecdsa

import (
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	"github.com/smallyu/go-cryptoproto/internal/crypto/curves"
	"github.com/smallyu/go-cryptoproto/internal/crypto/secret"
	"github.com/smallyu/go-cryptoproto/pkg/cp"
)

// maxAttempts bounds nonce rejection and r == 0 / s == 0 retries.
const maxAttempts = 64

// GenerateKey samples d uniformly in [1, n-1] and computes Q = d*G.
func GenerateKey(random io.Reader, curve curves.Curve) (*PrivateKey, error) {
	if curve == nil {
		return nil, fmt.Errorf("ecdsa: %w: nil curve", cp.ErrInvalidParameters)
	}
	d, err := curves.RandomScalar(cp.Reader(random), curve)
	if err != nil {
		return nil, fmt.Errorf("ecdsa: generate key: %w", err)
	}
	defer secret.Int(d)
	return NewPrivateKey(curve, d)
}

type baseMult func(k *big.Int) curves.Point

// SignBasic signs SHA-256(msg), computing k*G with the generic ladder.
func SignBasic(random io.Reader, priv *PrivateKey, msg []byte) (*Signature, error) {
	if !priv.valid() {
		return nil, fmt.Errorf("ecdsa: %w", cp.ErrInvalidKey)
	}
	return sign(random, priv, msg, priv.Curve.Generator().ScalarMult)
}

// SignQuick signs SHA-256(msg), computing k*G with the fixed-base tables.
func SignQuick(random io.Reader, priv *PrivateKey, msg []byte) (*Signature, error) {
	if !priv.valid() {
		return nil, fmt.Errorf("ecdsa: %w", cp.ErrInvalidKey)
	}
	return sign(random, priv, msg, priv.Curve.ScalarBaseMult)
}

// Sign dispatches on method.
func Sign(random io.Reader, priv *PrivateKey, msg []byte, method cp.Method) (*Signature, error) {
	switch method {
	case cp.MethodBasic:
		return SignBasic(random, priv, msg)
	case cp.MethodQuick:
		return SignQuick(random, priv, msg)
	default:
		return nil, fmt.Errorf("ecdsa: %w: method %v", cp.ErrInvalidParameters, method)
	}
}

func sign(random io.Reader, priv *PrivateKey, msg []byte, mult baseMult) (*Signature, error) {
	c := priv.Curve
	n := c.Order()
	digest := sha256.Sum256(msg)
	e := hashToInt(digest[:], n)

	nonces, err := newNonceStream(cp.Reader(random), c.Name(), n, priv.D, digest[:])
	if err != nil {
		return nil, err
	}
	defer nonces.zero()

	for i := 0; i < maxAttempts; i++ {
		k, err := nonces.next()
		if err != nil {
			return nil, err
		}

		x := mult(k).X()
		if x == nil {
			secret.Int(k)
			continue
		}
		r := new(big.Int).Mod(x, n)
		if r.Sign() == 0 {
			secret.Int(k)
			continue
		}

		kInv := fermatInverse(k, n)
		s := new(big.Int).Mul(r, priv.D)
		s.Add(s, e)
		s.Mul(s, kInv)
		s.Mod(s, n)
		secret.Int(k, kInv)

		if s.Sign() == 0 {
			continue
		}
		return &Signature{R: r, S: s}, nil
	}
	return nil, fmt.Errorf("ecdsa: sign: %w", cp.ErrGeneration)
}

// fermatInverse computes k^(n-2) mod n. n must be prime.
func fermatInverse(k, n *big.Int) *big.Int {
	exp := new(big.Int).Sub(n, big.NewInt(2))
	return new(big.Int).Exp(k, exp, n)
}

// hashToInt takes the leftmost bits of hash up to the bit length of n and
// reduces the result mod n.
func hashToInt(hash []byte, n *big.Int) *big.Int {
	orderBits := n.BitLen()
	orderBytes := (orderBits + 7) / 8
	if len(hash) > orderBytes {
		hash = hash[:orderBytes]
	}
	e := new(big.Int).SetBytes(hash)
	if excess := len(hash)*8 - orderBits; excess > 0 {
		e.Rsh(e, uint(excess))
	}
	return e.Mod(e, n)
}

// VerifyBasic checks sig over msg using generic multiplication for both terms.
func VerifyBasic(pub *PublicKey, msg []byte, sig *Signature) bool {
	if !pub.valid() {
		return false
	}
	return verify(pub, msg, sig, pub.Curve.Generator().ScalarMult, pub.Q.ScalarMult)
}

// VerifyQuick checks sig over msg using the fixed-base tables for G. Callers
// verifying many signatures under one key should hold a Verifier from
// NewVerifier, which also precomputes a comb table for Q.
func VerifyQuick(pub *PublicKey, msg []byte, sig *Signature) bool {
	if !pub.valid() {
		return false
	}
	return verify(pub, msg, sig, pub.Curve.ScalarBaseMult, pub.Q.ScalarMult)
}

// Verify dispatches on method. Unknown methods never verify.
func Verify(pub *PublicKey, msg []byte, sig *Signature, method cp.Method) bool {
	switch method {
	case cp.MethodBasic:
		return VerifyBasic(pub, msg, sig)
	case cp.MethodQuick:
		return VerifyQuick(pub, msg, sig)
	default:
		return false
	}
}

func verify(pub *PublicKey, msg []byte, sig *Signature, multG, multQ baseMult) bool {
	if sig == nil || sig.R == nil || sig.S == nil {
		return false
	}
	n := pub.Curve.Order()
	if sig.R.Sign() <= 0 || sig.R.Cmp(n) >= 0 || sig.S.Sign() <= 0 || sig.S.Cmp(n) >= 0 {
		return false
	}

	digest := sha256.Sum256(msg)
	e := hashToInt(digest[:], n)

	w := new(big.Int).ModInverse(sig.S, n)
	if w == nil {
		return false
	}
	u1 := new(big.Int).Mul(e, w)
	u1.Mod(u1, n)
	u2 := new(big.Int).Mul(sig.R, w)
	u2.Mod(u2, n)

	x := multG(u1).Add(multQ(u2)).X()
	if x == nil {
		return false
	}
	return x.Mod(x, n).Cmp(sig.R) == 0
}
