package ecdsa

import (
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/hkdf"

	"github.com/smallyu/go-cryptoproto/internal/crypto/secret"
	"github.com/smallyu/go-cryptoproto/pkg/cp"
)

const nonceInfo = "cp-ecdsa-nonce-v1"

// nonceStream yields hedged nonces: an HKDF-SHA256 stream keyed by the
// private scalar, salted with fresh randomness and bound to the curve and
// message digest. Nonces stay unique per message even if the random source
// repeats, and differ between two signatures of the same message when it
// does not.
type nonceStream struct {
	n    *big.Int
	r    io.Reader
	buf  []byte
	mask byte
}

func newNonceStream(random io.Reader, curveName string, n, d *big.Int, digest []byte) (*nonceStream, error) {
	size := (n.BitLen() + 7) / 8

	extra := make([]byte, 32)
	if _, err := io.ReadFull(random, extra); err != nil {
		return nil, fmt.Errorf("ecdsa: read randomness: %w", err)
	}

	key := d.FillBytes(make([]byte, size))
	info := make([]byte, 0, len(nonceInfo)+len(curveName)+len(digest))
	info = append(info, nonceInfo...)
	info = append(info, curveName...)
	info = append(info, digest...)

	r := hkdf.New(sha256.New, key, extra, info)
	secret.Bytes(key)
	secret.Bytes(extra)

	mask := byte(0xff)
	if excess := size*8 - n.BitLen(); excess > 0 {
		mask >>= uint(excess)
	}

	return &nonceStream{
		n:    n,
		r:    r,
		buf:  make([]byte, size),
		mask: mask,
	}, nil
}

// next returns the next candidate in [1, n-1]. Out-of-range candidates are
// rejected, never reduced, so the result is uniform.
func (s *nonceStream) next() (*big.Int, error) {
	for i := 0; i < maxAttempts; i++ {
		if _, err := io.ReadFull(s.r, s.buf); err != nil {
			return nil, fmt.Errorf("ecdsa: nonce stream: %w", err)
		}
		s.buf[0] &= s.mask

		k := new(big.Int).SetBytes(s.buf)
		if k.Sign() > 0 && k.Cmp(s.n) < 0 {
			return k, nil
		}
		secret.Int(k)
	}
	return nil, fmt.Errorf("ecdsa: nonce: %w", cp.ErrGeneration)
}

func (s *nonceStream) zero() {
	secret.Bytes(s.buf)
}
