// Package sok implements Sakai-Ohgishi-Kasahara identity-based
// non-interactive key agreement over the BLS12-381 pairing.
//
// A trusted authority holds a master scalar s and issues each identity the
// private key s*H(id). Any two identities then agree on
// e(H1(a), H2(b))^s without exchanging messages, where a is the
// lexicographically smaller identity.
package sok

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/cloudflare/circl/ecc/bls12381"
	"golang.org/x/crypto/hkdf"

	"github.com/smallyu/go-cryptoproto/pkg/cp"
)

const (
	dstG1 = "CP-SOK-V01-CS01-with-BLS12381G1_XMD:SHA-256_SSWU_RO_"
	dstG2 = "CP-SOK-V01-CS01-with-BLS12381G2_XMD:SHA-256_SSWU_RO_"

	kdfInfo = "cp-sok-derive-v1"

	maxAttempts = 64
)

// MasterKey is the authority's secret scalar.
type MasterKey struct {
	s bls12381.Scalar
}

// PublicKey is an identity's public key: the identity hashed into both
// source groups.
type PublicKey struct {
	ID string
	G1 *bls12381.G1
	G2 *bls12381.G2
}

// PrivateKey is the master scalar applied to an identity's public key.
type PrivateKey struct {
	ID string
	G1 *bls12381.G1
	G2 *bls12381.G2
}

// GenerateMaster samples a non-zero master scalar.
func GenerateMaster(random io.Reader) (*MasterKey, error) {
	random = cp.Reader(random)
	m := &MasterKey{}
	for i := 0; i < maxAttempts; i++ {
		if err := m.s.Random(random); err != nil {
			return nil, fmt.Errorf("sok: read randomness: %w", err)
		}
		if m.s.IsZero() == 0 {
			return m, nil
		}
	}
	return nil, fmt.Errorf("sok: master key: %w", cp.ErrGeneration)
}

// PublicKeyFor hashes id into G1 and G2. It is deterministic and needs no
// secret.
func PublicKeyFor(id string) *PublicKey {
	pub := &PublicKey{ID: id, G1: new(bls12381.G1), G2: new(bls12381.G2)}
	pub.G1.Hash([]byte(id), []byte(dstG1))
	pub.G2.Hash([]byte(id), []byte(dstG2))
	return pub
}

// Extract issues the private key for id.
func (m *MasterKey) Extract(id string) (*PrivateKey, error) {
	if m == nil || m.s.IsZero() == 1 {
		return nil, fmt.Errorf("sok: %w: empty master key", cp.ErrInvalidKey)
	}
	pub := PublicKeyFor(id)
	priv := &PrivateKey{ID: id, G1: new(bls12381.G1), G2: new(bls12381.G2)}
	priv.G1.ScalarMult(&m.s, pub.G1)
	priv.G2.ScalarMult(&m.s, pub.G2)
	return priv, nil
}

// Zero clears the master scalar.
func (m *MasterKey) Zero() {
	if m == nil {
		return
	}
	m.s.SetUint64(0)
}

// Zero replaces both points with the identity.
func (k *PrivateKey) Zero() {
	if k == nil {
		return
	}
	if k.G1 != nil {
		k.G1.SetIdentity()
	}
	if k.G2 != nil {
		k.G2.SetIdentity()
	}
}

// Matches reports whether pub is the public key derived from id.
func (pub *PublicKey) Matches(id string) bool {
	if pub == nil || pub.G1 == nil || pub.G2 == nil || pub.ID != id {
		return false
	}
	want := PublicKeyFor(id)
	return pub.G1.IsEqual(want.G1) && pub.G2.IsEqual(want.G2)
}

// SharedKey computes the key self shares with other. The smaller identity
// contributes its G1 half and the larger its G2 half, so both sides pair the
// same points. other must be the key PublicKeyFor(other.ID) returns; a key
// whose points do not hash from its ID is rejected, which also guarantees
// both points lie in the prime-order subgroups.
func SharedKey(other *PublicKey, self *PrivateKey) (*bls12381.Gt, error) {
	if other == nil || other.G1 == nil || other.G2 == nil {
		return nil, fmt.Errorf("sok: %w: peer public key", cp.ErrInvalidKey)
	}
	if self == nil || self.G1 == nil || self.G2 == nil || self.G1.IsIdentity() || self.G2.IsIdentity() {
		return nil, fmt.Errorf("sok: %w: private key", cp.ErrInvalidKey)
	}
	if !other.Matches(other.ID) {
		return nil, fmt.Errorf("sok: %w: peer key does not match identity %q", cp.ErrInvalidKey, other.ID)
	}
	if self.ID < other.ID {
		return bls12381.Pair(self.G1, other.G2), nil
	}
	return bls12381.Pair(other.G1, self.G2), nil
}

// DeriveKey expands the shared element into size bytes with HKDF-SHA256.
// The identity pair is bound into the output in a fixed order, so both
// parties obtain the same bytes whichever way round they pass a and b.
func DeriveKey(k *bls12381.Gt, a, b string, size int) ([]byte, error) {
	if k == nil {
		return nil, fmt.Errorf("sok: %w: nil shared key", cp.ErrInvalidParameters)
	}
	if size <= 0 || size > 255*sha256.Size {
		return nil, fmt.Errorf("sok: %w: output size %d", cp.ErrInvalidParameters, size)
	}
	ikm, err := k.MarshalBinary()
	if err != nil {
		return nil, cp.NewSubstrateError("gt marshal", err)
	}
	if b < a {
		a, b = b, a
	}

	info := make([]byte, 0, len(kdfInfo)+len(a)+len(b)+8)
	info = append(info, kdfInfo...)
	info = appendLengthPrefixed(info, a)
	info = appendLengthPrefixed(info, b)

	out := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, nil, info), out); err != nil {
		return nil, cp.NewSubstrateError("hkdf", err)
	}
	return out, nil
}

func appendLengthPrefixed(dst []byte, s string) []byte {
	n := uint32(len(s))
	dst = append(dst, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	return append(dst, s...)
}

// Agree is SharedKey followed by DeriveKey. It refuses to agree with itself.
func Agree(other *PublicKey, self *PrivateKey, size int) ([]byte, error) {
	if other != nil && self != nil && other.ID == self.ID {
		return nil, fmt.Errorf("sok: %w: peer identity equals own identity", cp.ErrInvalidParameters)
	}
	k, err := SharedKey(other, self)
	if err != nil {
		return nil, err
	}
	return DeriveKey(k, self.ID, other.ID, size)
}
