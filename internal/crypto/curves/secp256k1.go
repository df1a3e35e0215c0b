package curves

import (
	"errors"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/smallyu/go-cryptoproto/internal/crypto/secret"
)

// Secp256k1 is the SEC 2 Koblitz curve, backed by the decred implementation.
type Secp256k1 struct{}

// NewSecp256k1 returns a new instance of the Secp256k1 curve wrapper
func NewSecp256k1() Curve {
	return &Secp256k1{}
}

func (c *Secp256k1) Name() string {
	return "secp256k1"
}

func (c *Secp256k1) Order() *big.Int {
	return new(big.Int).Set(secp256k1.S256().N)
}

func (c *Secp256k1) Generator() Point {
	params := secp256k1.S256().Params()

	var x, y, z secp256k1.FieldVal
	x.SetByteSlice(params.Gx.Bytes())
	y.SetByteSlice(params.Gy.Bytes())
	z.SetInt(1)

	g := secp256k1.MakeJacobianPoint(&x, &y, &z)
	return newSecpPoint(&g)
}

func (c *Secp256k1) Identity() Point {
	return &secpPoint{}
}

func (c *Secp256k1) ScalarBaseMult(k *big.Int) Point {
	s := toModNScalar(k)
	defer s.Zero()

	var r secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(s, &r)
	return newSecpPoint(&r)
}

func (c *Secp256k1) NewPointFromBytes(b []byte) (Point, error) {
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, err
	}
	var r secp256k1.JacobianPoint
	pub.AsJacobian(&r)
	p := newSecpPoint(&r)
	if p.IsIdentity() {
		return nil, errors.New("curves: identity point")
	}
	return p, nil
}

// secpPoint holds a point in affine form (Z = 1). The identity has X = Y = 0.
type secpPoint struct {
	p secp256k1.JacobianPoint
}

func newSecpPoint(p *secp256k1.JacobianPoint) *secpPoint {
	var q secpPoint
	q.p.Set(p)
	q.p.ToAffine()
	return &q
}

func (a *secpPoint) Bytes() []byte {
	if a.IsIdentity() {
		return []byte{0}
	}
	return secp256k1.NewPublicKey(&a.p.X, &a.p.Y).SerializeCompressed()
}

func (a *secpPoint) Add(q Point) Point {
	b, ok := q.(*secpPoint)
	if !ok {
		panic("curves: point type mismatch")
	}
	var r secp256k1.JacobianPoint
	secp256k1.AddNonConst(&a.p, &b.p, &r)
	return newSecpPoint(&r)
}

func (a *secpPoint) ScalarMult(k *big.Int) Point {
	s := toModNScalar(k)
	defer s.Zero()

	var r secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(s, &a.p, &r)
	return newSecpPoint(&r)
}

func (a *secpPoint) Equal(q Point) bool {
	b, ok := q.(*secpPoint)
	if !ok {
		return false
	}
	if a.IsIdentity() || b.IsIdentity() {
		return a.IsIdentity() && b.IsIdentity()
	}
	return a.p.X.Equals(&b.p.X) && a.p.Y.Equals(&b.p.Y)
}

func (a *secpPoint) IsIdentity() bool {
	return (a.p.X.IsZero() && a.p.Y.IsZero()) || a.p.Z.IsZero()
}

func (a *secpPoint) X() *big.Int {
	if a.IsIdentity() {
		return nil
	}
	return new(big.Int).SetBytes(a.p.X.Bytes()[:])
}

// toModNScalar reduces k modulo the group order.
func toModNScalar(k *big.Int) *secp256k1.ModNScalar {
	kk := new(big.Int).Mod(k, secp256k1.S256().N)
	defer secret.Int(kk)

	var buf [32]byte
	kk.FillBytes(buf[:])
	defer secret.Bytes(buf[:])

	s := new(secp256k1.ModNScalar)
	s.SetBytes(&buf)
	return s
}

// comb builds the table in Jacobian coordinates. Entries and the accumulator
// are never normalized to affine form; only the result is.
func (c *Secp256k1) comb(p Point) func(k *big.Int) Point {
	sp, ok := p.(*secpPoint)
	if !ok {
		panic("curves: point type mismatch")
	}

	// entries[i][0] is the zero value, which decred treats as infinity.
	entries := make([][16]secp256k1.JacobianPoint, windows(secp256k1.S256().N))
	var base, next secp256k1.JacobianPoint
	base.Set(&sp.p)
	for i := range entries {
		entries[i][1].Set(&base)
		for w := 2; w < 16; w++ {
			secp256k1.AddNonConst(&entries[i][w-1], &base, &entries[i][w])
		}
		secp256k1.AddNonConst(&entries[i][15], &base, &next)
		base.Set(&next)
	}

	return func(k *big.Int) Point {
		s := toModNScalar(k)
		b := s.Bytes()
		s.Zero()

		var acc, sum secp256k1.JacobianPoint
		for i := range entries {
			// b is big-endian; window i sits in byte 31-i/2.
			w := b[31-i/2]
			if i%2 == 1 {
				w >>= 4
			}
			w &= 0x0f
			if w == 0 {
				continue
			}
			secp256k1.AddNonConst(&acc, &entries[i][w], &sum)
			acc.Set(&sum)
		}
		return newSecpPoint(&acc)
	}
}
