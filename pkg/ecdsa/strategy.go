package ecdsa

import (
	"fmt"
	"io"

	"github.com/smallyu/go-cryptoproto/internal/crypto/curves"
	"github.com/smallyu/go-cryptoproto/pkg/cp"
)

// Signer binds a private key to a signing method.
type Signer struct {
	key    *PrivateKey
	method cp.Method
}

// NewSigner returns a Signer for key using method.
func NewSigner(key *PrivateKey, method cp.Method) (*Signer, error) {
	if !key.valid() {
		return nil, fmt.Errorf("ecdsa: %w", cp.ErrInvalidKey)
	}
	if !method.Valid() {
		return nil, fmt.Errorf("ecdsa: %w: method %v", cp.ErrInvalidParameters, method)
	}
	return &Signer{key: key, method: method}, nil
}

// Sign signs SHA-256(msg) with the bound key and method.
func (s *Signer) Sign(random io.Reader, msg []byte) (*Signature, error) {
	return Sign(random, s.key, msg, s.method)
}

// Public returns the public key matching the bound private key.
func (s *Signer) Public() *PublicKey {
	return s.key.Public()
}

// Method returns the signing method.
func (s *Signer) Method() cp.Method {
	return s.method
}

// Verifier checks signatures under a fixed public key.
type Verifier interface {
	Verify(msg []byte, sig *Signature) bool
	Method() cp.Method
}

// NewVerifier returns a Verifier for pub. The quick verifier precomputes a
// comb table for Q once and reuses it for every call, so each verification
// needs no doublings for the Q term.
func NewVerifier(pub *PublicKey, method cp.Method) (Verifier, error) {
	if !pub.valid() {
		return nil, fmt.Errorf("ecdsa: %w", cp.ErrInvalidKey)
	}
	switch method {
	case cp.MethodBasic:
		return &basicVerifier{pub: pub}, nil
	case cp.MethodQuick:
		return &tableVerifier{pub: pub, table: curves.NewTable(pub.Curve, pub.Q)}, nil
	default:
		return nil, fmt.Errorf("ecdsa: %w: method %v", cp.ErrInvalidParameters, method)
	}
}

type basicVerifier struct {
	pub *PublicKey
}

func (v *basicVerifier) Verify(msg []byte, sig *Signature) bool {
	return VerifyBasic(v.pub, msg, sig)
}

func (v *basicVerifier) Method() cp.Method { return cp.MethodBasic }

type tableVerifier struct {
	pub   *PublicKey
	table *curves.Table
}

func (v *tableVerifier) Verify(msg []byte, sig *Signature) bool {
	return verify(v.pub, msg, sig, v.pub.Curve.ScalarBaseMult, v.table.ScalarMult)
}

func (v *tableVerifier) Method() cp.Method { return cp.MethodQuick }
