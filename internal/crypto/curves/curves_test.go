package curves

import (
	"math/big"
	"testing"

	"filippo.io/edwards25519"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"

	"github.com/smallyu/go-cryptoproto/pkg/cp"
)

func allCurves() []Curve {
	return []Curve{NewSecp256k1(), NewEd25519()}
}

func TestByName(t *testing.T) {
	c, err := ByName("secp256k1")
	require.NoError(t, err)
	assert.Equal(t, "secp256k1", c.Name())

	c, err = ByName("Ed25519")
	require.NoError(t, err)
	assert.Equal(t, "ed25519", c.Name())

	_, err = ByName("p521")
	assert.ErrorIs(t, err, cp.ErrInvalidParameters)
}

func TestGroupLaw(t *testing.T) {
	for _, c := range allCurves() {
		t.Run(c.Name(), func(t *testing.T) {
			g := c.Generator()

			// Test ScalarMult
			p2 := g.ScalarMult(big.NewInt(2))

			// Test Add
			p3 := g.Add(g)
			assert.True(t, p2.Equal(p3))
			assert.Equal(t, p2.Bytes(), p3.Bytes())

			// Identity
			id := c.Identity()
			assert.True(t, id.IsIdentity())
			assert.Nil(t, id.X())
			assert.True(t, g.Add(id).Equal(g))
			assert.True(t, g.ScalarMult(c.Order()).IsIdentity())
			assert.True(t, g.ScalarMult(big.NewInt(0)).IsIdentity())

			// n-1 times G is -G, so adding G gives the identity.
			nm1 := new(big.Int).Sub(c.Order(), big.NewInt(1))
			assert.True(t, g.ScalarMult(nm1).Add(g).IsIdentity())
		})
	}
}

func TestScalarBaseMult(t *testing.T) {
	for _, c := range allCurves() {
		t.Run(c.Name(), func(t *testing.T) {
			for i := 0; i < 5; i++ {
				k, err := RandomScalar(frand.Reader, c)
				require.NoError(t, err)

				fixed := c.ScalarBaseMult(k)
				generic := c.Generator().ScalarMult(k)
				assert.True(t, fixed.Equal(generic))
				assert.Equal(t, fixed.X(), generic.X())
			}
		})
	}
}

func TestTable(t *testing.T) {
	for _, c := range allCurves() {
		t.Run(c.Name(), func(t *testing.T) {
			k, err := RandomScalar(frand.Reader, c)
			require.NoError(t, err)
			p := c.ScalarBaseMult(k)
			table := NewTable(c, p)
			assert.True(t, table.Point().Equal(p))

			nm1 := new(big.Int).Sub(c.Order(), big.NewInt(1))
			allOnes := new(big.Int).Lsh(big.NewInt(1), uint(c.Order().BitLen()-1))
			allOnes.Sub(allOnes, big.NewInt(1))
			scalars := []*big.Int{
				big.NewInt(0), big.NewInt(1), big.NewInt(15), big.NewInt(16), big.NewInt(255),
				nm1, c.Order(), allOnes, frand.BigIntn(c.Order()), frand.BigIntn(c.Order()),
			}
			for _, s := range scalars {
				assert.True(t, table.ScalarMult(s).Equal(p.ScalarMult(s)), "scalar %s", s)
			}
		})
	}
}

func TestPointEncoding(t *testing.T) {
	for _, c := range allCurves() {
		t.Run(c.Name(), func(t *testing.T) {
			p := c.ScalarBaseMult(big.NewInt(12345))
			q, err := c.NewPointFromBytes(p.Bytes())
			require.NoError(t, err)
			assert.True(t, p.Equal(q))

			_, err = c.NewPointFromBytes([]byte{1, 2, 3})
			assert.Error(t, err)
		})
	}
}

func TestSecp256k1MatchesLibrary(t *testing.T) {
	c := NewSecp256k1()
	assert.Equal(t, 0, c.Order().Cmp(secp256k1.S256().N))
	assert.Equal(t, 0, c.Generator().X().Cmp(secp256k1.S256().Gx))

	priv, err := secp256k1.GeneratePrivateKeyFromRand(frand.Reader)
	require.NoError(t, err)
	d := new(big.Int).SetBytes(priv.Serialize())
	assert.Equal(t, priv.PubKey().SerializeCompressed(), c.ScalarBaseMult(d).Bytes())
}

func TestEd25519Order(t *testing.T) {
	c := NewEd25519()

	// l = 2^252 + 27742317777372353535851937790883648493
	tail, ok := new(big.Int).SetString("27742317777372353535851937790883648493", 10)
	require.True(t, ok)
	l := new(big.Int).Lsh(big.NewInt(1), 252)
	l.Add(l, tail)
	assert.Equal(t, 0, c.Order().Cmp(l))
	assert.Equal(t, 253, c.Order().BitLen())

	// The order annihilates the generator and l-1 is the largest valid scalar.
	assert.True(t, c.ScalarBaseMult(l).IsIdentity())
	lm1 := new(big.Int).Sub(l, big.NewInt(1))
	assert.True(t, c.ScalarBaseMult(lm1).Add(c.Generator()).IsIdentity())
	assert.NotPanics(t, func() { c.Generator().ScalarMult(lm1) })
}

func TestEd25519ParseGenerator(t *testing.T) {
	c := NewEd25519()
	g, err := c.NewPointFromBytes(edwards25519.NewGeneratorPoint().Bytes())
	require.NoError(t, err)
	assert.True(t, g.Equal(c.Generator()))

	for i := 0; i < 20; i++ {
		k, err := RandomScalar(frand.Reader, c)
		require.NoError(t, err)
		require.Equal(t, -1, k.Cmp(c.Order()))
		p := c.ScalarBaseMult(k)
		q, err := c.NewPointFromBytes(p.Bytes())
		require.NoError(t, err)
		assert.True(t, p.Equal(q))
	}
}

func TestEd25519RejectsSmallOrder(t *testing.T) {
	c := NewEd25519()

	// y = 0 encodes a point of order 4.
	_, err := c.NewPointFromBytes(make([]byte, 32))
	assert.Error(t, err)

	// The identity encodes as y = 1.
	id := make([]byte, 32)
	id[0] = 1
	_, err = c.NewPointFromBytes(id)
	assert.Error(t, err)
}

func TestRandomScalar(t *testing.T) {
	c := NewSecp256k1()
	k, err := RandomScalar(frand.Reader, c)
	require.NoError(t, err)
	assert.Equal(t, 1, k.Sign())
	assert.Equal(t, -1, k.Cmp(c.Order()))

	_, err = RandomScalar(zeroReader{}, c)
	assert.ErrorIs(t, err, cp.ErrGeneration)
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
