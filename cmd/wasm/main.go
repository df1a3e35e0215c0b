//go:build js && wasm

package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"syscall/js"

	"github.com/smallyu/go-cryptoproto/internal/crypto/curves"
	"github.com/smallyu/go-cryptoproto/pkg/cp"
	"github.com/smallyu/go-cryptoproto/pkg/ecdsa"
	"github.com/smallyu/go-cryptoproto/pkg/rsa"
	"github.com/smallyu/go-cryptoproto/pkg/sok"
)

// Secret keys never cross into JavaScript. JS holds an opaque handle and
// calls Free when done, which zeroizes the key.
var (
	mu      sync.Mutex
	nextID  int
	handles = make(map[string]cp.Zeroizer)
)

func main() {
	c := make(chan struct{})

	fmt.Println("Go CryptoProto WASM Initialized")

	js.Global().Set("GoCryptoProto", map[string]interface{}{
		"RSAGenerate":   js.FuncOf(RSAGenerate),
		"RSAEncrypt":    js.FuncOf(RSAEncrypt),
		"RSADecrypt":    js.FuncOf(RSADecrypt),
		"RSASign":       js.FuncOf(RSASign),
		"RSAVerify":     js.FuncOf(RSAVerify),
		"ECDSAGenerate": js.FuncOf(ECDSAGenerate),
		"ECDSASign":     js.FuncOf(ECDSASign),
		"ECDSAVerify":   js.FuncOf(ECDSAVerify),
		"SOKMaster":     js.FuncOf(SOKMaster),
		"SOKExtract":    js.FuncOf(SOKExtract),
		"SOKAgree":      js.FuncOf(SOKAgree),
		"Free":          js.FuncOf(Free),
	})

	<-c
}

// RSAGenerate creates an RSA key.
// Arguments:
// 0: JSON string {"bits": 2048, "method": "quick"}
// Returns:
// JSON {"handle", "n", "e"} with n and e in hex
func RSAGenerate(this js.Value, args []js.Value) interface{} {
	if len(args) != 1 {
		return "error: expected 1 argument (jsonParams)"
	}

	var input struct {
		Bits   int       `json:"bits"`
		Method cp.Method `json:"method"`
	}
	if err := json.Unmarshal([]byte(args[0].String()), &input); err != nil {
		return fmt.Sprintf("error: invalid json: %v", err)
	}
	if input.Bits == 0 {
		input.Bits = cp.DefaultRSABits
	}
	if input.Method == 0 {
		input.Method = cp.MethodQuick
	}

	key, err := rsa.Generate(nil, input.Bits, input.Method)
	if err != nil {
		return fmt.Sprintf("error: generate: %v", err)
	}
	pub := key.Public()
	return marshal(map[string]interface{}{
		"handle": store(key),
		"n":      pub.N.Text(16),
		"e":      pub.E.Text(16),
	})
}

// RSAEncrypt encrypts under a public key given as hex modulus and exponent.
// Arguments:
// 0: modulus (hex), 1: exponent (hex), 2: message (hex), 3: padding ("oaep" | "pkcs1v15")
// Returns:
// ciphertext (hex)
func RSAEncrypt(this js.Value, args []js.Value) interface{} {
	if len(args) != 4 {
		return "error: expected 4 arguments (n, e, msgHex, padding)"
	}
	pub, err := rsaPublic(args[0], args[1])
	if err != nil {
		return err.Error()
	}
	msg, err := hex.DecodeString(args[2].String())
	if err != nil {
		return fmt.Sprintf("error: invalid hex data: %v", err)
	}
	p, err := rsa.ParsePadding(args[3].String())
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	ct, err := rsa.Encrypt(nil, pub, msg, &rsa.Options{Padding: p})
	if err != nil {
		return fmt.Sprintf("error: encrypt: %v", err)
	}
	return hex.EncodeToString(ct)
}

// RSADecrypt decrypts with a stored key.
// Arguments:
// 0: handle, 1: ciphertext (hex), 2: padding
// Returns:
// plaintext (hex)
func RSADecrypt(this js.Value, args []js.Value) interface{} {
	if len(args) != 3 {
		return "error: expected 3 arguments (handle, ctHex, padding)"
	}
	key, ok := lookup(args[0].String()).(rsa.PrivateKey)
	if !ok {
		return "error: rsa key not found"
	}
	ct, err := hex.DecodeString(args[1].String())
	if err != nil {
		return fmt.Sprintf("error: invalid hex data: %v", err)
	}
	p, err := rsa.ParsePadding(args[2].String())
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	msg, err := rsa.Decrypt(nil, key, ct, &rsa.Options{Padding: p})
	if err != nil {
		return fmt.Sprintf("error: decrypt: %v", err)
	}
	return hex.EncodeToString(msg)
}

// RSASign signs a message with a stored key.
// Arguments:
// 0: handle, 1: message (hex)
// Returns:
// signature (hex)
func RSASign(this js.Value, args []js.Value) interface{} {
	if len(args) != 2 {
		return "error: expected 2 arguments (handle, msgHex)"
	}
	key, ok := lookup(args[0].String()).(rsa.PrivateKey)
	if !ok {
		return "error: rsa key not found"
	}
	msg, err := hex.DecodeString(args[1].String())
	if err != nil {
		return fmt.Sprintf("error: invalid hex data: %v", err)
	}
	sig, err := rsa.Sign(nil, key, msg)
	if err != nil {
		return fmt.Sprintf("error: sign: %v", err)
	}
	return hex.EncodeToString(sig)
}

// RSAVerify checks a signature.
// Arguments:
// 0: modulus (hex), 1: exponent (hex), 2: message (hex), 3: signature (hex)
// Returns:
// bool
func RSAVerify(this js.Value, args []js.Value) interface{} {
	if len(args) != 4 {
		return "error: expected 4 arguments (n, e, msgHex, sigHex)"
	}
	pub, err := rsaPublic(args[0], args[1])
	if err != nil {
		return false
	}
	msg, err1 := hex.DecodeString(args[2].String())
	sig, err2 := hex.DecodeString(args[3].String())
	if err1 != nil || err2 != nil {
		return false
	}
	return rsa.Verify(pub, msg, sig)
}

// ECDSAGenerate creates an ECDSA key.
// Arguments:
// 0: curve name ("secp256k1" | "ed25519")
// Returns:
// JSON {"handle", "public"} with the compressed public point in hex
func ECDSAGenerate(this js.Value, args []js.Value) interface{} {
	if len(args) != 1 {
		return "error: expected 1 argument (curve)"
	}
	curve, err := curves.ByName(args[0].String())
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	key, err := ecdsa.GenerateKey(nil, curve)
	if err != nil {
		return fmt.Sprintf("error: generate: %v", err)
	}
	return marshal(map[string]interface{}{
		"handle": store(key),
		"public": hex.EncodeToString(key.Public().Bytes()),
	})
}

// ECDSASign signs with a stored key.
// Arguments:
// 0: handle, 1: message (hex), 2: method ("basic" | "quick")
// Returns:
// JSON {"r", "s"} in hex
func ECDSASign(this js.Value, args []js.Value) interface{} {
	if len(args) != 3 {
		return "error: expected 3 arguments (handle, msgHex, method)"
	}
	key, ok := lookup(args[0].String()).(*ecdsa.PrivateKey)
	if !ok {
		return "error: ecdsa key not found"
	}
	msg, err := hex.DecodeString(args[1].String())
	if err != nil {
		return fmt.Sprintf("error: invalid hex data: %v", err)
	}
	method, err := cp.ParseMethod(args[2].String())
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	sig, err := ecdsa.Sign(nil, key, msg, method)
	if err != nil {
		return fmt.Sprintf("error: sign: %v", err)
	}
	return marshal(map[string]string{
		"r": sig.R.Text(16),
		"s": sig.S.Text(16),
	})
}

// ECDSAVerify checks a signature.
// Arguments:
// 0: curve, 1: public key (hex), 2: message (hex), 3: r (hex), 4: s (hex), 5: method
// Returns:
// bool
func ECDSAVerify(this js.Value, args []js.Value) interface{} {
	if len(args) != 6 {
		return "error: expected 6 arguments (curve, pubHex, msgHex, r, s, method)"
	}
	curve, err := curves.ByName(args[0].String())
	if err != nil {
		return false
	}
	pubBytes, err := hex.DecodeString(args[1].String())
	if err != nil {
		return false
	}
	pub, err := ecdsa.ParsePublicKey(curve, pubBytes)
	if err != nil {
		return false
	}
	msg, err := hex.DecodeString(args[2].String())
	if err != nil {
		return false
	}
	r, ok1 := new(big.Int).SetString(args[3].String(), 16)
	s, ok2 := new(big.Int).SetString(args[4].String(), 16)
	if !ok1 || !ok2 {
		return false
	}
	method, err := cp.ParseMethod(args[5].String())
	if err != nil {
		return false
	}
	return ecdsa.Verify(pub, msg, &ecdsa.Signature{R: r, S: s}, method)
}

// SOKMaster creates an authority master key.
// Returns:
// handle
func SOKMaster(this js.Value, args []js.Value) interface{} {
	m, err := sok.GenerateMaster(nil)
	if err != nil {
		return fmt.Sprintf("error: master: %v", err)
	}
	return store(m)
}

// SOKExtract issues the private key for an identity.
// Arguments:
// 0: master handle, 1: identity
// Returns:
// handle of the identity key
func SOKExtract(this js.Value, args []js.Value) interface{} {
	if len(args) != 2 {
		return "error: expected 2 arguments (masterHandle, id)"
	}
	m, ok := lookup(args[0].String()).(*sok.MasterKey)
	if !ok {
		return "error: master key not found"
	}
	k, err := m.Extract(args[1].String())
	if err != nil {
		return fmt.Sprintf("error: extract: %v", err)
	}
	return store(k)
}

// SOKAgree derives the key shared with a peer identity.
// Arguments:
// 0: identity key handle, 1: peer identity, 2: output size in bytes
// Returns:
// key (hex)
func SOKAgree(this js.Value, args []js.Value) interface{} {
	if len(args) != 3 {
		return "error: expected 3 arguments (handle, peerID, size)"
	}
	k, ok := lookup(args[0].String()).(*sok.PrivateKey)
	if !ok {
		return "error: identity key not found"
	}
	key, err := sok.Agree(sok.PublicKeyFor(args[1].String()), k, args[2].Int())
	if err != nil {
		return fmt.Sprintf("error: agree: %v", err)
	}
	return hex.EncodeToString(key)
}

// Free zeroizes and forgets a stored key.
// Arguments:
// 0: handle
func Free(this js.Value, args []js.Value) interface{} {
	if len(args) != 1 {
		return "error: expected 1 argument (handle)"
	}
	mu.Lock()
	defer mu.Unlock()
	h := args[0].String()
	if k, ok := handles[h]; ok {
		k.Zero()
		delete(handles, h)
		return true
	}
	return false
}

// Helpers

func store(k cp.Zeroizer) string {
	mu.Lock()
	defer mu.Unlock()
	nextID++
	h := fmt.Sprintf("key-%d", nextID)
	handles[h] = k
	return h
}

func lookup(h string) cp.Zeroizer {
	mu.Lock()
	defer mu.Unlock()
	return handles[h]
}

func rsaPublic(n, e js.Value) (*rsa.PublicKey, error) {
	nn, ok1 := new(big.Int).SetString(n.String(), 16)
	ee, ok2 := new(big.Int).SetString(e.String(), 16)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("error: invalid public key")
	}
	return &rsa.PublicKey{N: nn, E: ee}, nil
}

func marshal(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}
