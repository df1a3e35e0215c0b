// Package secret clears key material held in big integers and byte slices.
package secret

import "math/big"

// Int overwrites the limbs backing each integer and sets it to zero.
// Nil entries are skipped.
func Int(xs ...*big.Int) {
	for _, x := range xs {
		if x == nil {
			continue
		}
		words := x.Bits()
		for i := range words {
			words[i] = 0
		}
		x.SetInt64(0)
	}
}

// Bytes overwrites b with zeros.
func Bytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
