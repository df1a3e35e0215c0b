package cp

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	DefaultRSABits = 2048
	DefaultCurve   = "secp256k1"
	DefaultPadding = "oaep"
)

// Parameters is the explicit configuration for a set of protocol calls.
// Nothing in this module consults a process-wide default: callers pass the
// method they want at each call site, typically taken from Parameters.
type Parameters struct {
	// Rand is the randomness source. Nil means crypto/rand.Reader.
	Rand io.Reader `yaml:"-"`

	RSABits     int    `yaml:"rsa_bits"`
	RSAMethod   Method `yaml:"rsa_method"`
	ECDSAMethod Method `yaml:"ecdsa_method"`
	Curve       string `yaml:"curve"`
	Padding     string `yaml:"padding"`
}

// DefaultParameters returns the configuration used when nothing is specified:
// 2048-bit RSA with CRT, ECDSA over secp256k1 with fixed-base tables, OAEP.
func DefaultParameters() *Parameters {
	return &Parameters{
		RSABits:     DefaultRSABits,
		RSAMethod:   MethodQuick,
		ECDSAMethod: MethodQuick,
		Curve:       DefaultCurve,
		Padding:     DefaultPadding,
	}
}

// Reader returns the configured randomness source.
func (p *Parameters) Reader() io.Reader {
	return Reader(p.Rand)
}

// Validate checks the static parts of the configuration. Curve names are
// resolved by the ECDSA package itself.
func (p *Parameters) Validate() error {
	if p.RSABits < 1024 || p.RSABits%2 != 0 {
		return fmt.Errorf("%w: rsa_bits must be even and at least 1024, got %d", ErrInvalidParameters, p.RSABits)
	}
	if !p.RSAMethod.Valid() {
		return fmt.Errorf("%w: rsa_method %s", ErrInvalidParameters, p.RSAMethod)
	}
	if !p.ECDSAMethod.Valid() {
		return fmt.Errorf("%w: ecdsa_method %s", ErrInvalidParameters, p.ECDSAMethod)
	}
	if p.Curve == "" {
		return fmt.Errorf("%w: curve is empty", ErrInvalidParameters)
	}
	switch p.Padding {
	case "oaep", "pkcs1v15":
	default:
		return fmt.Errorf("%w: padding %q", ErrInvalidParameters, p.Padding)
	}
	return nil
}

// LoadParameters reads a YAML document over the defaults. Fields that are
// absent keep their default value.
func LoadParameters(r io.Reader) (*Parameters, error) {
	p := DefaultParameters()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("cp: decode parameters: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
