package curves

import "math/big"

// windowBits is the width of one comb window.
const windowBits = 4

// Table holds, for every 4-bit window i of a scalar, the multiples
// 0..15 of 16^i*P for a fixed point P. A multiplication is then one table
// lookup and at most one addition per window, with no doublings. Building
// the table costs about as much as a few scalar multiplications, so it pays
// off when the same public key verifies many signatures. Multiplication is
// variable-time and must only be used with public scalars.
type Table struct {
	point Point
	mult  func(k *big.Int) Point
}

// combBuilder is implemented by curves with a faster native table than the
// generic one built on Point.Add.
type combBuilder interface {
	comb(p Point) func(k *big.Int) Point
}

// NewTable precomputes the comb table for p.
func NewTable(c Curve, p Point) *Table {
	if b, ok := c.(combBuilder); ok {
		return &Table{point: p, mult: b.comb(p)}
	}
	return &Table{point: p, mult: genericComb(c, p)}
}

// Point returns the point the table was built for.
func (t *Table) Point() Point {
	return t.point
}

// ScalarMult computes k*P.
func (t *Table) ScalarMult(k *big.Int) Point {
	return t.mult(k)
}

func windows(n *big.Int) int {
	return (n.BitLen() + windowBits - 1) / windowBits
}

// nibble returns window i of k, least significant first.
func nibble(k *big.Int, i int) uint {
	var w uint
	for b := 0; b < windowBits; b++ {
		w |= k.Bit(i*windowBits+b) << uint(b)
	}
	return w
}

func genericComb(c Curve, p Point) func(k *big.Int) Point {
	n := c.Order()
	entries := make([][16]Point, windows(n))

	base := p
	for i := range entries {
		entries[i][0] = c.Identity()
		for w := 1; w < 16; w++ {
			entries[i][w] = entries[i][w-1].Add(base)
		}
		base = entries[i][15].Add(base)
	}

	return func(k *big.Int) Point {
		kk := new(big.Int).Mod(k, n)
		acc := c.Identity()
		for i := range entries {
			if w := nibble(kk, i); w != 0 {
				acc = acc.Add(entries[i][w])
			}
		}
		return acc
	}
}
