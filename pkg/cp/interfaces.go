package cp

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Method selects the computation path of an operation that has a basic and a
// quick implementation. Both paths honour the same contract and produce
// compatible outputs.
type Method int

const (
	// MethodBasic uses the straightforward algorithm.
	MethodBasic Method = iota + 1
	// MethodQuick uses precomputation (CRT values, fixed-base tables).
	MethodQuick
)

func (m Method) String() string {
	switch m {
	case MethodBasic:
		return "basic"
	case MethodQuick:
		return "quick"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// Valid reports whether m names a known method.
func (m Method) Valid() bool {
	return m == MethodBasic || m == MethodQuick
}

// ParseMethod resolves a method name such as "basic" or "quick".
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic":
		return MethodBasic, nil
	case "quick":
		return MethodQuick, nil
	}
	return 0, fmt.Errorf("%w: unknown method %q", ErrInvalidParameters, s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	v, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidParameters, m)
	}
	return []byte(m.String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Method) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return m.UnmarshalText([]byte(s))
}

// Zeroizer is implemented by every value that holds secret material.
// Zero overwrites the secret in place; the value is unusable afterwards.
type Zeroizer interface {
	Zero()
}

// Reader returns random, or crypto/rand.Reader when random is nil.
func Reader(random io.Reader) io.Reader {
	if random == nil {
		return rand.Reader
	}
	return random
}
