package benchmark

import (
	"fmt"
	"sync"
	"testing"

	"lukechampine.com/frand"

	"github.com/smallyu/go-cryptoproto/internal/crypto/curves"
	"github.com/smallyu/go-cryptoproto/pkg/cp"
	"github.com/smallyu/go-cryptoproto/pkg/ecdsa"
	"github.com/smallyu/go-cryptoproto/pkg/rsa"
	"github.com/smallyu/go-cryptoproto/pkg/sok"
)

var (
	rsaOnce sync.Once
	rsaKey  *rsa.CRTKey
)

// setupRSA generates one 2048-bit key for all RSA benchmarks.
func setupRSA(b *testing.B) *rsa.CRTKey {
	b.Helper()
	rsaOnce.Do(func() {
		var err error
		rsaKey, err = rsa.GenerateQuick(frand.Reader, 2048)
		if err != nil {
			panic(fmt.Sprintf("rsa keygen: %v", err))
		}
	})
	return rsaKey
}

func methodKey(k *rsa.CRTKey, m cp.Method) rsa.PrivateKey {
	if m == cp.MethodBasic {
		return k.Plain()
	}
	return k
}

func BenchmarkRSADecrypt(b *testing.B) {
	key := setupRSA(b)
	ct, err := rsa.Encrypt(frand.Reader, key.Public(), []byte("benchmark"), nil)
	if err != nil {
		b.Fatal(err)
	}

	for _, m := range []cp.Method{cp.MethodBasic, cp.MethodQuick} {
		priv := methodKey(key, m)
		b.Run(m.String(), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := rsa.Decrypt(frand.Reader, priv, ct, nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRSASign(b *testing.B) {
	key := setupRSA(b)
	msg := []byte("benchmark")

	for _, m := range []cp.Method{cp.MethodBasic, cp.MethodQuick} {
		priv := methodKey(key, m)
		b.Run(m.String(), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := rsa.Sign(frand.Reader, priv, msg); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRSAVerify(b *testing.B) {
	key := setupRSA(b)
	msg := []byte("benchmark")
	sig, err := rsa.Sign(frand.Reader, key, msg)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !rsa.Verify(key.Public(), msg, sig) {
			b.Fatal("verify failed")
		}
	}
}

func BenchmarkECDSASign(b *testing.B) {
	msg := []byte("benchmark")
	for _, c := range []curves.Curve{curves.NewSecp256k1(), curves.NewEd25519()} {
		key, err := ecdsa.GenerateKey(frand.Reader, c)
		if err != nil {
			b.Fatal(err)
		}
		for _, m := range []cp.Method{cp.MethodBasic, cp.MethodQuick} {
			b.Run(c.Name()+"/"+m.String(), func(b *testing.B) {
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := ecdsa.Sign(frand.Reader, key, msg, m); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkECDSAVerify(b *testing.B) {
	msg := []byte("benchmark")
	for _, c := range []curves.Curve{curves.NewSecp256k1(), curves.NewEd25519()} {
		key, err := ecdsa.GenerateKey(frand.Reader, c)
		if err != nil {
			b.Fatal(err)
		}
		sig, err := ecdsa.SignQuick(frand.Reader, key, msg)
		if err != nil {
			b.Fatal(err)
		}
		for _, m := range []cp.Method{cp.MethodBasic, cp.MethodQuick} {
			v, err := ecdsa.NewVerifier(key.Public(), m)
			if err != nil {
				b.Fatal(err)
			}
			b.Run(c.Name()+"/"+m.String(), func(b *testing.B) {
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if !v.Verify(msg, sig) {
						b.Fatal("verify failed")
					}
				}
			})
		}
	}
}

// BenchmarkTableScalarMult compares a per-key comb table with plain scalar
// multiplication of the same point.
func BenchmarkTableScalarMult(b *testing.B) {
	for _, c := range []curves.Curve{curves.NewSecp256k1(), curves.NewEd25519()} {
		p := c.ScalarBaseMult(frand.BigIntn(c.Order()))
		k := frand.BigIntn(c.Order())
		table := curves.NewTable(c, p)

		b.Run(c.Name()+"/scalarmult", func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				p.ScalarMult(k)
			}
		})
		b.Run(c.Name()+"/table", func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				table.ScalarMult(k)
			}
		})
		b.Run(c.Name()+"/build", func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				curves.NewTable(c, p)
			}
		})
	}
}

func BenchmarkSOKExtract(b *testing.B) {
	master, err := sok.GenerateMaster(frand.Reader)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := master.Extract(fmt.Sprintf("node-%d", i)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSOKSharedKey(b *testing.B) {
	master, err := sok.GenerateMaster(frand.Reader)
	if err != nil {
		b.Fatal(err)
	}
	alice, err := master.Extract("alice")
	if err != nil {
		b.Fatal(err)
	}
	bob := sok.PublicKeyFor("bob")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := sok.SharedKey(bob, alice); err != nil {
			b.Fatal(err)
		}
	}
}
