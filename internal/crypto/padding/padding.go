// Package padding implements the PKCS #1 (RFC 8017) encodings used by the RSA
// protocol: OAEP and v1.5 encryption padding, and the deterministic
// EMSA-PKCS1-v1_5 signature encoding over SHA-256.
//
// The decoders run in time independent of where the encoded block is
// malformed and report every failure as the same cp.ErrDecryption.
package padding

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"hash"
	"io"

	"github.com/smallyu/go-cryptoproto/pkg/cp"
)

// sha256DigestInfo is the DER prefix of DigestInfo for SHA-256.
var sha256DigestInfo = []byte{
	0x30, 0x31, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01,
	0x65, 0x03, 0x04, 0x02, 0x01, 0x05, 0x00, 0x04, 0x20,
}

// maxRandomReads bounds the reads used to collect non-zero padding bytes.
const maxRandomReads = 64

// Scheme names an encryption padding.
type Scheme int

const (
	OAEP Scheme = iota
	PKCS1v15
)

func (s Scheme) String() string {
	switch s {
	case OAEP:
		return "oaep"
	case PKCS1v15:
		return "pkcs1v15"
	default:
		return fmt.Sprintf("scheme(%d)", int(s))
	}
}

// ParseScheme resolves the configuration names "oaep" and "pkcs1v15".
func ParseScheme(name string) (Scheme, error) {
	switch name {
	case "", "oaep":
		return OAEP, nil
	case "pkcs1v15":
		return PKCS1v15, nil
	}
	return 0, fmt.Errorf("padding: %w: unknown scheme %q", cp.ErrInvalidParameters, name)
}

// MaxMessageLen returns the longest message that fits in a k-byte block.
func (s Scheme) MaxMessageLen(k int) int {
	var n int
	switch s {
	case OAEP:
		n = k - 2*sha256.Size - 2
	default:
		n = k - 11
	}
	if n < 0 {
		return 0
	}
	return n
}

// Encode pads msg into a k-byte block.
func (s Scheme) Encode(random io.Reader, msg, label []byte, k int) ([]byte, error) {
	if s == PKCS1v15 {
		return EncodePKCS1v15(random, msg, k)
	}
	return EncodeOAEP(random, sha256.New(), msg, label, k)
}

// Decode strips the padding from a k-byte block. em is overwritten.
func (s Scheme) Decode(em, label []byte, k int) ([]byte, error) {
	if s == PKCS1v15 {
		return DecodePKCS1v15(em, k)
	}
	return DecodeOAEP(sha256.New(), em, label, k)
}

// EncodeOAEP returns EME-OAEP(msg) as a k-byte block.
func EncodeOAEP(random io.Reader, h hash.Hash, msg, label []byte, k int) ([]byte, error) {
	hLen := h.Size()
	if len(msg) > k-2*hLen-2 {
		return nil, cp.ErrMessageTooLong
	}

	h.Reset()
	h.Write(label)
	lHash := h.Sum(nil)

	em := make([]byte, k)
	seed := em[1 : 1+hLen]
	db := em[1+hLen:]

	copy(db[:hLen], lHash)
	db[len(db)-len(msg)-1] = 1
	copy(db[len(db)-len(msg):], msg)

	if _, err := io.ReadFull(random, seed); err != nil {
		return nil, fmt.Errorf("padding: read seed: %w", err)
	}

	mgf1XOR(db, h, seed)
	mgf1XOR(seed, h, db)

	return em, nil
}

// DecodeOAEP reverses EncodeOAEP. em must be exactly k bytes and is
// overwritten during decoding.
func DecodeOAEP(h hash.Hash, em, label []byte, k int) ([]byte, error) {
	hLen := h.Size()
	if k < 2*hLen+2 || len(em) != k {
		return nil, cp.ErrDecryption
	}

	h.Reset()
	h.Write(label)
	want := h.Sum(nil)

	maskedSeed, maskedDB := em[1:1+hLen], em[1+hLen:]
	mgf1XOR(maskedSeed, h, maskedDB)
	mgf1XOR(maskedDB, h, maskedSeed)

	ok := subtle.ConstantTimeByteEq(em[0], 0)
	ok &= subtle.ConstantTimeCompare(want, maskedDB[:hLen])

	// DB after the label hash is 0x00* 0x01 M. Every byte is visited.
	start, sawOne, stray := scanSeparator(maskedDB[hLen:], 1)
	ok &= sawOne &^ stray
	if ok != 1 {
		return nil, cp.ErrDecryption
	}
	return maskedDB[hLen+start:], nil
}

// scanSeparator finds the first byte equal to sep in b without branching on
// secret data. start is the offset just past it. sawOne is 1 if sep occurs.
// stray is 1 if a byte other than zero precedes it; callers for which any
// non-zero padding is legal ignore stray.
func scanSeparator(b []byte, sep byte) (start, sawOne, stray int) {
	for i, c := range b {
		isSep := subtle.ConstantTimeByteEq(c, sep)
		isZero := subtle.ConstantTimeByteEq(c, 0)
		before := 1 ^ sawOne

		start = subtle.ConstantTimeSelect(isSep&before, i+1, start)
		stray |= before & (1 ^ isSep) & (1 ^ isZero)
		sawOne |= isSep
	}
	return start, sawOne, stray
}

// EncodePKCS1v15 returns the RSAES-PKCS1-v1_5 encryption block
// 0x00 || 0x02 || PS || 0x00 || msg with a non-zero random PS.
func EncodePKCS1v15(random io.Reader, msg []byte, k int) ([]byte, error) {
	if len(msg) > k-11 {
		return nil, cp.ErrMessageTooLong
	}

	em := make([]byte, k)
	em[1] = 2
	ps, mm := em[2:len(em)-len(msg)-1], em[len(em)-len(msg):]
	if err := nonZeroRandomBytes(ps, random); err != nil {
		return nil, err
	}
	copy(mm, msg)
	return em, nil
}

// DecodePKCS1v15 reverses EncodePKCS1v15 in constant time.
func DecodePKCS1v15(em []byte, k int) ([]byte, error) {
	if k < 11 || len(em) != k {
		return nil, cp.ErrDecryption
	}

	ok := subtle.ConstantTimeByteEq(em[0], 0)
	ok &= subtle.ConstantTimeByteEq(em[1], 2)

	// PS is non-zero, so the first zero after the header ends it.
	start, found, _ := scanSeparator(em[2:], 0)
	ok &= found
	// At least eight bytes of PS precede the separator.
	ok &= subtle.ConstantTimeLessOrEq(9, start)
	if ok != 1 {
		return nil, cp.ErrDecryption
	}
	return em[2+start:], nil
}

// EncodeSignature returns EMSA-PKCS1-v1_5(SHA-256(msg)) as a k-byte block.
// The encoding is deterministic.
func EncodeSignature(msg []byte, k int) ([]byte, error) {
	digest := sha256.Sum256(msg)
	tLen := len(sha256DigestInfo) + len(digest)
	if k < tLen+11 {
		return nil, cp.ErrMessageTooLong
	}

	em := make([]byte, k)
	em[1] = 1
	for i := 2; i < k-tLen-1; i++ {
		em[i] = 0xff
	}
	copy(em[k-tLen:k-len(digest)], sha256DigestInfo)
	copy(em[k-len(digest):], digest[:])
	return em, nil
}

// nonZeroRandomBytes fills s with random bytes, discarding zeros.
func nonZeroRandomBytes(s []byte, random io.Reader) error {
	buf := make([]byte, len(s)+8)
	filled := 0
	for attempt := 0; filled < len(s); attempt++ {
		if attempt == maxRandomReads {
			return fmt.Errorf("padding: non-zero bytes: %w", cp.ErrGeneration)
		}
		if _, err := io.ReadFull(random, buf); err != nil {
			return fmt.Errorf("padding: read randomness: %w", err)
		}
		for _, c := range buf {
			if c != 0 && filled < len(s) {
				s[filled] = c
				filled++
			}
		}
	}
	return nil
}

// mgf1XOR applies the MGF1 mask derived from seed to out in place.
func mgf1XOR(out []byte, h hash.Hash, seed []byte) {
	var ctr [4]byte
	for i, block := uint32(0), 0; block < len(out); i++ {
		binary.BigEndian.PutUint32(ctr[:], i)
		h.Reset()
		h.Write(seed)
		h.Write(ctr[:])
		mask := h.Sum(nil)
		block += subtle.XORBytes(out[block:], out[block:], mask)
	}
}
