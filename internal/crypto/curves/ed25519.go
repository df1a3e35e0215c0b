package curves

import (
	"errors"
	"math/big"

	"filippo.io/edwards25519"
	"filippo.io/edwards25519/field"

	"github.com/smallyu/go-cryptoproto/internal/crypto/secret"
)

// l = 2^252 + 27742317777372353535851937790883648493
var ed25519Order = func() *big.Int {
	c, _ := new(big.Int).SetString("27742317777372353535851937790883648493", 10)
	l := new(big.Int).Lsh(big.NewInt(1), 252)
	return l.Add(l, c)
}()

// Ed25519 is the prime-order subgroup of the twisted Edwards curve
// edwards25519. The x-coordinate used by ECDSA is the affine x of the point.
type Ed25519 struct{}

// NewEd25519 returns a new instance of the edwards25519 group wrapper.
func NewEd25519() Curve {
	return &Ed25519{}
}

func (c *Ed25519) Name() string {
	return "ed25519"
}

func (c *Ed25519) Order() *big.Int {
	return new(big.Int).Set(ed25519Order)
}

func (c *Ed25519) Generator() Point {
	return &edPoint{p: edwards25519.NewGeneratorPoint()}
}

func (c *Ed25519) Identity() Point {
	return &edPoint{p: edwards25519.NewIdentityPoint()}
}

func (c *Ed25519) ScalarBaseMult(k *big.Int) Point {
	s := edScalar(k)
	defer s.Set(edwards25519.NewScalar())
	return &edPoint{p: new(edwards25519.Point).ScalarBaseMult(s)}
}

func (c *Ed25519) NewPointFromBytes(b []byte) (Point, error) {
	p, err := new(edwards25519.Point).SetBytes(b)
	if err != nil {
		return nil, err
	}
	pt := &edPoint{p: p}
	if pt.IsIdentity() {
		return nil, errors.New("curves: identity point")
	}

	// l*P = (l-1)*P + P must be the identity.
	lm1 := new(big.Int).Sub(ed25519Order, big.NewInt(1))
	if !pt.ScalarMult(lm1).Add(pt).IsIdentity() {
		return nil, errors.New("curves: point is not in the prime-order subgroup")
	}
	return pt, nil
}

type edPoint struct {
	p *edwards25519.Point
}

func (a *edPoint) Bytes() []byte {
	return a.p.Bytes()
}

func (a *edPoint) Add(q Point) Point {
	b, ok := q.(*edPoint)
	if !ok {
		panic("curves: point type mismatch")
	}
	return &edPoint{p: edwards25519.NewIdentityPoint().Add(a.p, b.p)}
}

func (a *edPoint) ScalarMult(k *big.Int) Point {
	s := edScalar(k)
	defer s.Set(edwards25519.NewScalar())
	return &edPoint{p: edwards25519.NewIdentityPoint().ScalarMult(s, a.p)}
}

func (a *edPoint) Equal(q Point) bool {
	b, ok := q.(*edPoint)
	if !ok {
		return false
	}
	return a.p.Equal(b.p) == 1
}

func (a *edPoint) IsIdentity() bool {
	return a.p.Equal(edwards25519.NewIdentityPoint()) == 1
}

func (a *edPoint) X() *big.Int {
	if a.IsIdentity() {
		return nil
	}
	X, _, Z, _ := a.p.ExtendedCoordinates()
	zInv := new(field.Element).Invert(Z)
	x := new(field.Element).Multiply(X, zInv)
	return new(big.Int).SetBytes(reverse(x.Bytes()))
}

// edScalar converts k mod l into an edwards25519 scalar. edwards25519 uses
// little-endian encodings, big.Int is big-endian.
func edScalar(k *big.Int) *edwards25519.Scalar {
	kk := new(big.Int).Mod(k, ed25519Order)
	defer secret.Int(kk)

	buf := kk.FillBytes(make([]byte, 32))
	le := reverse(buf)
	defer secret.Bytes(le)
	secret.Bytes(buf)

	s, err := edwards25519.NewScalar().SetCanonicalBytes(le)
	if err != nil {
		// kk < l, so the encoding is always canonical.
		panic("curves: non-canonical scalar: " + err.Error())
	}
	return s
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}
