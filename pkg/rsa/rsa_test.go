package rsa

import (
	"bytes"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/smallyu/go-cryptoproto/pkg/cp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"
)

var (
	testKeyOnce sync.Once
	testKey     *CRTKey
	testKeyErr  error
)

// sharedKey returns a 1024-bit CRT key generated once per test binary.
func sharedKey(t *testing.T) *CRTKey {
	t.Helper()
	testKeyOnce.Do(func() {
		testKey, testKeyErr = GenerateQuick(frand.Reader, 1024)
	})
	require.NoError(t, testKeyErr)
	return testKey
}

func TestGenerateBasic(t *testing.T) {
	priv, err := GenerateBasic(frand.Reader, 1024)
	require.NoError(t, err)

	assert.Equal(t, 1024, priv.N.BitLen())
	assert.Equal(t, 512, priv.P.BitLen())
	assert.Equal(t, 512, priv.Q.BitLen())
	assert.Equal(t, int64(DefaultExponent), priv.E.Int64())
	assert.NoError(t, priv.Validate())
}

func TestGenerateQuick(t *testing.T) {
	priv := sharedKey(t)
	assert.Equal(t, 1024, priv.N.BitLen())
	assert.NoError(t, priv.Validate())
	assert.NoError(t, priv.Plain().Validate())
}

func TestGenerateMethod(t *testing.T) {
	k, err := Generate(frand.Reader, 1024, cp.MethodBasic)
	require.NoError(t, err)
	_, ok := k.(*PlainKey)
	assert.True(t, ok, "basic generation must not produce CRT values")

	k, err = GenerateWithExponent(frand.Reader, 1024, 3, cp.MethodQuick)
	require.NoError(t, err)
	crt, ok := k.(*CRTKey)
	require.True(t, ok)
	assert.Equal(t, int64(3), crt.E.Int64())
	assert.NoError(t, crt.Validate())
}

func TestGenerateDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, 32)
	k1, err := GenerateQuick(frand.NewCustom(seed, 1024, 20), 1024)
	require.NoError(t, err)
	k2, err := GenerateQuick(frand.NewCustom(seed, 1024, 20), 1024)
	require.NoError(t, err)
	assert.Equal(t, 0, k1.N.Cmp(k2.N))
	assert.Equal(t, 0, k1.D.Cmp(k2.D))
}

func TestGenerateInvalid(t *testing.T) {
	_, err := GenerateBasic(frand.Reader, 512)
	assert.ErrorIs(t, err, cp.ErrInvalidParameters)

	_, err = GenerateBasic(frand.Reader, 1025)
	assert.ErrorIs(t, err, cp.ErrInvalidParameters)

	_, err = GenerateWithExponent(frand.Reader, 1024, 4, cp.MethodBasic)
	assert.ErrorIs(t, err, cp.ErrInvalidParameters)

	_, err = Generate(frand.Reader, 1024, cp.Method(9))
	assert.ErrorIs(t, err, cp.ErrInvalidParameters)
}

func TestEncryptDecrypt(t *testing.T) {
	priv := sharedKey(t)
	pub := priv.Public()

	for _, opts := range []*Options{
		nil,
		{Padding: PaddingOAEP, Label: []byte("context")},
		{Padding: PaddingPKCS1v15},
	} {
		msg := []byte("the quick brown fox")

		c, err := Encrypt(frand.Reader, pub, msg, opts)
		require.NoError(t, err)
		assert.Len(t, c, pub.Size())

		basic, err := DecryptBasic(frand.Reader, priv.Plain(), c, opts)
		require.NoError(t, err)
		assert.Equal(t, msg, basic)

		quick, err := DecryptQuick(frand.Reader, priv, c, opts)
		require.NoError(t, err)
		assert.Equal(t, msg, quick)
	}
}

func TestEncryptMessageTooLong(t *testing.T) {
	priv := sharedKey(t)
	k := priv.Size()

	_, err := Encrypt(frand.Reader, priv.Public(), make([]byte, k-2*32-1), nil)
	assert.ErrorIs(t, err, cp.ErrMessageTooLong)

	_, err = Encrypt(frand.Reader, priv.Public(), make([]byte, k-2*32-2), nil)
	assert.NoError(t, err)

	_, err = Encrypt(frand.Reader, priv.Public(), make([]byte, k-10), &Options{Padding: PaddingPKCS1v15})
	assert.ErrorIs(t, err, cp.ErrMessageTooLong)
}

func TestDecryptRejectsMalformed(t *testing.T) {
	priv := sharedKey(t)
	k := priv.Size()

	// c >= n
	c := priv.N.FillBytes(make([]byte, k))
	_, err := Decrypt(frand.Reader, priv, c, nil)
	assert.ErrorIs(t, err, cp.ErrMalformedInput)

	// wrong length
	_, err = Decrypt(frand.Reader, priv, make([]byte, k-1), nil)
	assert.ErrorIs(t, err, cp.ErrMalformedInput)

	// valid range, garbage padding
	_, err = Decrypt(frand.Reader, priv, big.NewInt(12345).FillBytes(make([]byte, k)), nil)
	assert.Equal(t, cp.ErrDecryption, err)

	_, err = Decrypt(frand.Reader, nil, c, nil)
	assert.ErrorIs(t, err, cp.ErrInvalidKey)
}

func TestDecryptTampered(t *testing.T) {
	priv := sharedKey(t)
	msg := []byte("do not modify")

	for _, pos := range []int{0, 1, 17, priv.Size() / 2, priv.Size() - 1} {
		c, err := Encrypt(frand.Reader, priv.Public(), msg, nil)
		require.NoError(t, err)
		c[pos] ^= 0x80

		out, err := DecryptBasic(frand.Reader, priv.Plain(), c, nil)
		if err == nil {
			assert.NotEqual(t, msg, out, "tampered byte %d decrypted to the original", pos)
			continue
		}
		assert.True(t, errors.Is(err, cp.ErrDecryption) || errors.Is(err, cp.ErrMalformedInput))
	}
}

func TestCRTEquivalence(t *testing.T) {
	priv := sharedKey(t)
	plain := priv.Plain()

	for i := 0; i < 20; i++ {
		c := frand.BigIntn(priv.N)

		mBasic, err := plain.private(c)
		require.NoError(t, err)
		mQuick, err := priv.private(c)
		require.NoError(t, err)
		assert.Equal(t, 0, mBasic.Cmp(mQuick))

		// Same outcome through the full decryption path, error or not.
		ct := c.FillBytes(make([]byte, priv.Size()))
		outBasic, errBasic := DecryptBasic(frand.Reader, plain, ct, nil)
		outQuick, errQuick := DecryptQuick(frand.Reader, priv, ct, nil)
		assert.Equal(t, errBasic, errQuick)
		assert.Equal(t, outBasic, outQuick)
	}
}

func TestSignVerify(t *testing.T) {
	priv := sharedKey(t)
	pub := priv.Public()
	msg := []byte("signed statement")

	sigBasic, err := SignBasic(frand.Reader, priv.Plain(), msg)
	require.NoError(t, err)
	sigQuick, err := SignQuick(frand.Reader, priv, msg)
	require.NoError(t, err)

	assert.Equal(t, sigBasic, sigQuick, "basic and quick signatures must be identical")
	assert.True(t, Verify(pub, msg, sigQuick))

	// Flip every bit of the signature in turn.
	for i := 0; i < len(sigQuick)*8; i += 37 {
		bad := append([]byte(nil), sigQuick...)
		bad[i/8] ^= 1 << (i % 8)
		assert.False(t, Verify(pub, msg, bad), "bit %d", i)
	}

	// Flip a bit of the message.
	badMsg := append([]byte(nil), msg...)
	badMsg[3] ^= 0x04
	assert.False(t, Verify(pub, badMsg, sigQuick))

	assert.False(t, Verify(pub, msg, sigQuick[1:]))
	assert.False(t, Verify(nil, msg, sigQuick))
	assert.False(t, Verify(pub, msg, priv.N.FillBytes(make([]byte, priv.Size()))))
}

func TestSignFaultDetected(t *testing.T) {
	priv, err := GenerateQuick(frand.Reader, 1024)
	require.NoError(t, err)

	priv.Dp.Add(priv.Dp, one)
	_, err = SignQuick(frand.Reader, priv, []byte("msg"))
	assert.ErrorIs(t, err, cp.ErrFault)

	// The plain path does not use the CRT values.
	sig, err := SignBasic(frand.Reader, priv.Plain(), []byte("msg"))
	require.NoError(t, err)
	assert.True(t, Verify(priv.Public(), []byte("msg"), sig))
}

func TestZero(t *testing.T) {
	priv, err := GenerateQuick(frand.Reader, 1024)
	require.NoError(t, err)

	n := new(big.Int).Set(priv.N)
	priv.Zero()

	for _, x := range []*big.Int{priv.D, priv.P, priv.Q, priv.Dp, priv.Dq, priv.Qinv} {
		assert.Equal(t, 0, x.Sign())
	}
	assert.Equal(t, 0, n.Cmp(priv.N), "public modulus is kept")
	assert.Error(t, priv.Validate())

	var nilKey *CRTKey
	nilKey.Zero()
	assert.Nil(t, nilKey.Public())
}

func TestCRTKeyPlain(t *testing.T) {
	priv := sharedKey(t)
	plain := priv.Plain()
	require.NotNil(t, plain)
	assert.Equal(t, 0, plain.D.Cmp(priv.D))
	assert.Equal(t, 0, plain.N.Cmp(priv.N))

	var nilKey *CRTKey
	assert.NotPanics(t, func() { assert.Nil(t, nilKey.Plain()) })
}

func TestParsePadding(t *testing.T) {
	p, err := ParsePadding("pkcs1v15")
	require.NoError(t, err)
	assert.Equal(t, PaddingPKCS1v15, p)
	assert.Equal(t, "pkcs1v15", p.String())

	_, err = ParsePadding("none")
	assert.ErrorIs(t, err, cp.ErrInvalidParameters)
}

func FuzzDecrypt(f *testing.F) {
	f.Add([]byte("short"))
	f.Add(make([]byte, 128))
	f.Add(bytes.Repeat([]byte{0xff}, 128))

	priv, err := GenerateQuick(frand.Reader, 1024)
	if err != nil {
		f.Fatalf("GenerateQuick failed: %v", err)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		out, err := Decrypt(frand.Reader, priv, data, nil)
		if err == nil && out == nil {
			t.Fatal("nil plaintext without error")
		}
	})
}
