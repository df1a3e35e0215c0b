package cp

import (
	"errors"
	"fmt"
)

// Common errors returned by the protocol packages.
var (
	// ErrGeneration is returned when key or nonce generation could not produce
	// valid parameters within the bounded number of resampling attempts.
	ErrGeneration = errors.New("generation failed after bounded attempts")

	// ErrInvalidParameters is returned for unusable configuration such as an
	// unsupported key size, exponent or curve name.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrInvalidKey is returned when a key value is nil or structurally unusable.
	ErrInvalidKey = errors.New("invalid key")

	// ErrMalformedInput is returned for ciphertexts or values that are out of
	// their numeric range or have the wrong length.
	ErrMalformedInput = errors.New("malformed input")

	// ErrMessageTooLong is returned when a message does not fit in the modulus
	// once padded.
	ErrMessageTooLong = errors.New("message too long")

	// ErrDecryption is returned for every padding failure. It deliberately
	// carries no detail about which check failed.
	ErrDecryption = errors.New("decryption error")

	// ErrFault is returned when a CRT private operation fails its own
	// consistency check.
	ErrFault = errors.New("private key operation fault")
)

// SubstrateError reports an impossible condition raised by an arithmetic
// engine (for example a modular inverse that does not exist). It signals a
// broken caller contract and is never produced by adversarial input alone.
type SubstrateError struct {
	Op  string
	Err error
}

func (e *SubstrateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("substrate failure in %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("substrate failure in %s", e.Op)
}

func (e *SubstrateError) Unwrap() error {
	return e.Err
}

// NewSubstrateError creates a new SubstrateError.
func NewSubstrateError(op string, err error) *SubstrateError {
	return &SubstrateError{
		Op:  op,
		Err: err,
	}
}
