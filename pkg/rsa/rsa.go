// Package rsa implements RSA key generation, encryption and signatures over
// math/big, with a basic path (one exponentiation modulo n) and a quick path
// (CRT exponentiations modulo p and q).
//
// Encryption uses OAEP with SHA-256 by default; RSAES-PKCS1-v1_5 can be
// selected through Options. Signatures use the deterministic
// EMSA-PKCS1-v1_5 encoding over SHA-256, so the basic and quick paths produce
// identical signature bytes for the same key and message.
//
// Private key operations are blinded with a fresh random factor, padding is
// checked in constant time and every decryption failure is reported as
// cp.ErrDecryption.
package rsa

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/smallyu/go-cryptoproto/internal/crypto/padding"
	"github.com/smallyu/go-cryptoproto/internal/crypto/primes"
	"github.com/smallyu/go-cryptoproto/internal/crypto/secret"
	"github.com/smallyu/go-cryptoproto/pkg/cp"
)

const (
	// MinBits is the smallest modulus size accepted by key generation.
	MinBits = 1024

	// DefaultExponent is the public exponent used by GenerateBasic and
	// GenerateQuick.
	DefaultExponent = 65537

	// maxAttempts bounds every resampling loop in this package.
	maxAttempts = 32

	// candidatesPerBit bounds prime sampling to candidatesPerBit*bits draws.
	candidatesPerBit = 10
)

var one = big.NewInt(1)

// Padding selects the encryption padding.
type Padding int

const (
	PaddingOAEP Padding = iota
	PaddingPKCS1v15
)

// ParsePadding resolves the configuration names "oaep" and "pkcs1v15".
func ParsePadding(name string) (Padding, error) {
	s, err := padding.ParseScheme(name)
	if err != nil {
		return 0, err
	}
	return Padding(s), nil
}

func (p Padding) String() string {
	return padding.Scheme(p).String()
}

// Options tunes encryption and decryption. A nil *Options selects OAEP with
// an empty label.
type Options struct {
	Padding Padding
	// Label is bound to OAEP ciphertexts and ignored by PKCS #1 v1.5.
	Label []byte
}

func (o *Options) scheme() (padding.Scheme, []byte) {
	if o == nil {
		return padding.OAEP, nil
	}
	return padding.Scheme(o.Padding), o.Label
}

// Generate creates a key of the given size. MethodBasic returns a *PlainKey
// and MethodQuick a *CRTKey.
func Generate(random io.Reader, bits int, method cp.Method) (PrivateKey, error) {
	return GenerateWithExponent(random, bits, DefaultExponent, method)
}

// GenerateBasic creates a key for the basic computation path.
func GenerateBasic(random io.Reader, bits int) (*PlainKey, error) {
	return generate(random, bits, DefaultExponent)
}

// GenerateQuick creates a key carrying CRT values for the quick path.
func GenerateQuick(random io.Reader, bits int) (*CRTKey, error) {
	plain, err := generate(random, bits, DefaultExponent)
	if err != nil {
		return nil, err
	}
	return withCRT(plain)
}

// GenerateWithExponent creates a key with a caller-chosen odd public exponent
// e >= 3.
func GenerateWithExponent(random io.Reader, bits, e int, method cp.Method) (PrivateKey, error) {
	switch method {
	case cp.MethodBasic:
		return generate(random, bits, e)
	case cp.MethodQuick:
		plain, err := generate(random, bits, e)
		if err != nil {
			return nil, err
		}
		return withCRT(plain)
	default:
		return nil, fmt.Errorf("rsa: %w: method %s", cp.ErrInvalidParameters, method)
	}
}

func generate(random io.Reader, bits, e int) (*PlainKey, error) {
	if bits < MinBits || bits%2 != 0 {
		return nil, fmt.Errorf("rsa: %w: bits must be even and at least %d", cp.ErrInvalidParameters, MinBits)
	}
	if e < 3 || e%2 == 0 {
		return nil, fmt.Errorf("rsa: %w: public exponent must be odd and at least 3", cp.ErrInvalidParameters)
	}
	random = cp.Reader(random)

	half := bits / 2
	E := big.NewInt(int64(e))

	var p *big.Int
	for i := 0; i < maxAttempts; i++ {
		// 1. Choose p with gcd(e, p-1) = 1
		if p == nil {
			cand, err := primes.Generate(random, half, candidatesPerBit*half)
			if err != nil {
				return nil, fmt.Errorf("rsa: sample p: %w", err)
			}
			if !coprimeToPrimeMinusOne(E, cand) {
				secret.Int(cand)
				continue
			}
			p = cand
		}

		// 2. Choose q != p; resampled whenever e is not invertible
		q, err := primes.Generate(random, half, candidatesPerBit*half)
		if err != nil {
			secret.Int(p)
			return nil, fmt.Errorf("rsa: sample q: %w", err)
		}
		if p.Cmp(q) == 0 {
			continue
		}

		// 3. n = p*q must have exactly the requested size
		n := new(big.Int).Mul(p, q)
		if n.BitLen() != bits {
			secret.Int(q)
			continue
		}

		// 4. d = e^-1 mod (p-1)(q-1)
		pm1 := new(big.Int).Sub(p, one)
		qm1 := new(big.Int).Sub(q, one)
		phi := new(big.Int).Mul(pm1, qm1)
		d := new(big.Int).ModInverse(E, phi)
		secret.Int(pm1, qm1, phi)
		if d == nil {
			secret.Int(q)
			continue
		}

		return &PlainKey{
			PublicKey: PublicKey{
				N: n,
				E: E,
			},
			D: d,
			P: p,
			Q: q,
		}, nil
	}

	secret.Int(p)
	return nil, fmt.Errorf("rsa: %d-bit key: %w", bits, cp.ErrGeneration)
}

func coprimeToPrimeMinusOne(e, prime *big.Int) bool {
	pm1 := new(big.Int).Sub(prime, one)
	g := new(big.Int).GCD(nil, nil, e, pm1)
	secret.Int(pm1)
	return g.Cmp(one) == 0
}

func withCRT(k *PlainKey) (*CRTKey, error) {
	pm1 := new(big.Int).Sub(k.P, one)
	qm1 := new(big.Int).Sub(k.Q, one)
	defer secret.Int(pm1, qm1)

	qinv := new(big.Int).ModInverse(k.Q, k.P)
	if qinv == nil {
		k.Zero()
		return nil, cp.NewSubstrateError("rsa: q^-1 mod p", errors.New("q is not invertible modulo p"))
	}

	return &CRTKey{
		PlainKey: *k,
		Dp:       new(big.Int).Mod(k.D, pm1),
		Dq:       new(big.Int).Mod(k.D, qm1),
		Qinv:     qinv,
	}, nil
}

// Encrypt pads msg and computes c = m^e mod n. The ciphertext is Size() bytes.
func Encrypt(random io.Reader, pub *PublicKey, msg []byte, opts *Options) ([]byte, error) {
	if !pub.valid() {
		return nil, fmt.Errorf("rsa: %w", cp.ErrInvalidKey)
	}
	scheme, label := opts.scheme()
	k := pub.Size()

	em, err := scheme.Encode(cp.Reader(random), msg, label, k)
	if err != nil {
		return nil, fmt.Errorf("rsa: encrypt: %w", err)
	}
	defer secret.Bytes(em)

	m := new(big.Int).SetBytes(em)
	defer secret.Int(m)
	if m.Cmp(pub.N) >= 0 {
		return nil, fmt.Errorf("rsa: encrypt: %w", cp.ErrMessageTooLong)
	}

	c := new(big.Int).Exp(m, pub.E, pub.N)
	return c.FillBytes(make([]byte, k)), nil
}

// Decrypt recovers the message using whichever path the key supports: CRT
// for a *CRTKey, a single exponentiation for a *PlainKey.
func Decrypt(random io.Reader, priv PrivateKey, ciphertext []byte, opts *Options) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("rsa: %w", cp.ErrInvalidKey)
	}
	pub := priv.Public()
	if !pub.valid() {
		return nil, fmt.Errorf("rsa: %w", cp.ErrInvalidKey)
	}

	k := pub.Size()
	if len(ciphertext) != k {
		return nil, fmt.Errorf("rsa: decrypt: %w: ciphertext length %d, want %d", cp.ErrMalformedInput, len(ciphertext), k)
	}
	c := new(big.Int).SetBytes(ciphertext)
	if c.Cmp(pub.N) >= 0 {
		return nil, fmt.Errorf("rsa: decrypt: %w: ciphertext not below modulus", cp.ErrMalformedInput)
	}

	m, err := privateOp(cp.Reader(random), priv, c)
	if err != nil {
		return nil, err
	}
	em := m.FillBytes(make([]byte, k))
	secret.Int(m)
	defer secret.Bytes(em)

	scheme, label := opts.scheme()
	out, err := scheme.Decode(em, label, k)
	if err != nil {
		return nil, cp.ErrDecryption
	}
	return append([]byte(nil), out...), nil
}

// DecryptBasic decrypts with a single exponentiation modulo n.
func DecryptBasic(random io.Reader, priv *PlainKey, ciphertext []byte, opts *Options) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("rsa: %w", cp.ErrInvalidKey)
	}
	return Decrypt(random, priv, ciphertext, opts)
}

// DecryptQuick decrypts with CRT exponentiations modulo p and q.
func DecryptQuick(random io.Reader, priv *CRTKey, ciphertext []byte, opts *Options) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("rsa: %w", cp.ErrInvalidKey)
	}
	return Decrypt(random, priv, ciphertext, opts)
}

// Sign returns the EMSA-PKCS1-v1_5 SHA-256 signature of msg, computed with
// the path the key supports.
func Sign(random io.Reader, priv PrivateKey, msg []byte) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("rsa: %w", cp.ErrInvalidKey)
	}
	pub := priv.Public()
	if !pub.valid() {
		return nil, fmt.Errorf("rsa: %w", cp.ErrInvalidKey)
	}

	k := pub.Size()
	em, err := padding.EncodeSignature(msg, k)
	if err != nil {
		return nil, fmt.Errorf("rsa: sign: %w", err)
	}

	m := new(big.Int).SetBytes(em)
	s, err := privateOp(cp.Reader(random), priv, m)
	if err != nil {
		return nil, err
	}
	return s.FillBytes(make([]byte, k)), nil
}

// SignBasic signs with a single exponentiation modulo n.
func SignBasic(random io.Reader, priv *PlainKey, msg []byte) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("rsa: %w", cp.ErrInvalidKey)
	}
	return Sign(random, priv, msg)
}

// SignQuick signs with CRT exponentiations modulo p and q.
func SignQuick(random io.Reader, priv *CRTKey, msg []byte) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("rsa: %w", cp.ErrInvalidKey)
	}
	return Sign(random, priv, msg)
}

// Verify reports whether sig is a valid signature of msg under pub. An
// invalid or malformed signature is simply false.
func Verify(pub *PublicKey, msg, sig []byte) bool {
	if !pub.valid() {
		return false
	}
	k := pub.Size()
	if len(sig) != k {
		return false
	}

	s := new(big.Int).SetBytes(sig)
	if s.Cmp(pub.N) >= 0 {
		return false
	}

	expected, err := padding.EncodeSignature(msg, k)
	if err != nil {
		return false
	}

	em := new(big.Int).Exp(s, pub.E, pub.N).FillBytes(make([]byte, k))
	return subtle.ConstantTimeCompare(em, expected) == 1
}

// privateOp computes c^d mod n behind a random blinding factor r:
// (c * r^e)^d * r^-1 = c^d mod n. CRT results are checked against the
// public exponent before unblinding.
func privateOp(random io.Reader, priv PrivateKey, c *big.Int) (*big.Int, error) {
	pub := priv.Public()

	r, rInv, err := blindingPair(random, pub.N)
	if err != nil {
		return nil, err
	}
	defer secret.Int(r, rInv)

	cb := new(big.Int).Exp(r, pub.E, pub.N)
	cb.Mul(cb, c)
	cb.Mod(cb, pub.N)
	defer secret.Int(cb)

	m, err := priv.private(cb)
	if err != nil {
		return nil, err
	}

	if _, ok := priv.(*CRTKey); ok {
		check := new(big.Int).Exp(m, pub.E, pub.N)
		if check.Cmp(cb) != 0 {
			secret.Int(m)
			return nil, fmt.Errorf("rsa: %w", cp.ErrFault)
		}
	}

	m.Mul(m, rInv)
	m.Mod(m, pub.N)
	return m, nil
}

// blindingPair returns a random r in [1, n) together with r^-1 mod n.
func blindingPair(random io.Reader, n *big.Int) (*big.Int, *big.Int, error) {
	for i := 0; i < maxAttempts; i++ {
		r, err := rand.Int(random, n)
		if err != nil {
			return nil, nil, fmt.Errorf("rsa: read randomness: %w", err)
		}
		if r.Sign() == 0 {
			continue
		}
		rInv := new(big.Int).ModInverse(r, n)
		if rInv == nil {
			secret.Int(r)
			continue
		}
		return r, rInv, nil
	}
	return nil, nil, fmt.Errorf("rsa: blinding factor: %w", cp.ErrGeneration)
}
