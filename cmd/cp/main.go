// Command cp exercises the protocol packages from the command line: a timed
// self-test of every operation, and SOK key derivation for a pair of
// identities.
package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alexflint/go-arg"
	"lukechampine.com/frand"

	"github.com/smallyu/go-cryptoproto/internal/crypto/curves"
	"github.com/smallyu/go-cryptoproto/pkg/cp"
	"github.com/smallyu/go-cryptoproto/pkg/ecdsa"
	"github.com/smallyu/go-cryptoproto/pkg/rsa"
	"github.com/smallyu/go-cryptoproto/pkg/sok"
)

type SelfTestCmd struct {
	Rounds int `default:"1" help:"number of times to run each operation"`
}

type SOKKeyCmd struct {
	Self string `arg:"positional,required" help:"own identity"`
	Peer string `arg:"positional,required" help:"peer identity"`
	Size int    `default:"32" help:"derived key length in bytes"`
}

var args struct {
	Config   string       `help:"YAML parameters file overlaid on the defaults"`
	RSABits  int          `arg:"--rsa-bits" help:"override rsa_bits"`
	Curve    string       `help:"override curve (secp256k1 | ed25519)"`
	FastRand bool         `arg:"--fast-rand" help:"use the frand ChaCha8 generator instead of crypto/rand"`
	Verbose  bool         `arg:"-v" help:"debug logging"`
	SelfTest *SelfTestCmd `arg:"subcommand:selftest" help:"run every operation with both methods"`
	SOKKey   *SOKKeyCmd   `arg:"subcommand:sokkey" help:"derive the SOK key two identities share under a fresh master"`
}

func main() {
	p := arg.MustParse(&args)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand")
	}

	level := slog.LevelInfo
	if args.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	params, err := loadParameters()
	if err != nil {
		logger.Error("invalid parameters", "err", err)
		os.Exit(2)
	}

	switch {
	case args.SelfTest != nil:
		err = selfTest(logger, params, args.SelfTest.Rounds)
	case args.SOKKey != nil:
		err = sokKey(logger, params, args.SOKKey, true)
	}
	if err != nil {
		logger.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func loadParameters() (*cp.Parameters, error) {
	var (
		params *cp.Parameters
		err    error
	)
	if args.Config != "" {
		data, rerr := os.ReadFile(args.Config)
		if rerr != nil {
			return nil, rerr
		}
		params, err = cp.LoadParameters(bytes.NewReader(data))
	} else {
		params, err = cp.LoadParameters(bytes.NewReader(nil))
	}
	if err != nil {
		return nil, err
	}

	if args.RSABits != 0 {
		params.RSABits = args.RSABits
	}
	if args.Curve != "" {
		params.Curve = args.Curve
	}
	if args.FastRand {
		params.Rand = frand.Reader
	}
	return params, params.Validate()
}

// timed runs fn and logs its duration under op.
func timed(logger *slog.Logger, op string, method cp.Method, fn func() error) error {
	start := time.Now()
	err := fn()
	logger.Debug("operation", "op", op, "method", method.String(), "elapsed", time.Since(start), "ok", err == nil)
	if err != nil {
		return fmt.Errorf("%s (%s): %w", op, method, err)
	}
	return nil
}

func selfTest(logger *slog.Logger, params *cp.Parameters, rounds int) error {
	random := params.Reader()
	msg := []byte("cp self-test")

	pad, err := rsa.ParsePadding(params.Padding)
	if err != nil {
		return err
	}
	opts := &rsa.Options{Padding: pad}

	curve, err := curves.ByName(params.Curve)
	if err != nil {
		return err
	}

	for r := 0; r < rounds; r++ {
		for _, m := range []cp.Method{cp.MethodBasic, cp.MethodQuick} {
			var key rsa.PrivateKey
			if err := timed(logger, "rsa.generate", m, func() error {
				key, err = rsa.Generate(random, params.RSABits, m)
				return err
			}); err != nil {
				return err
			}

			var ct, pt, sig []byte
			if err := timed(logger, "rsa.encrypt", m, func() error {
				ct, err = rsa.Encrypt(random, key.Public(), msg, opts)
				return err
			}); err != nil {
				return err
			}
			if err := timed(logger, "rsa.decrypt", m, func() error {
				pt, err = rsa.Decrypt(random, key, ct, opts)
				return err
			}); err != nil {
				return err
			}
			if !bytes.Equal(pt, msg) {
				return fmt.Errorf("rsa (%s): round trip mismatch", m)
			}
			if err := timed(logger, "rsa.sign", m, func() error {
				sig, err = rsa.Sign(random, key, msg)
				return err
			}); err != nil {
				return err
			}
			if !rsa.Verify(key.Public(), msg, sig) {
				return fmt.Errorf("rsa (%s): signature rejected", m)
			}
			key.Zero()

			ek, err := ecdsa.GenerateKey(random, curve)
			if err != nil {
				return err
			}
			var esig *ecdsa.Signature
			if err := timed(logger, "ecdsa.sign", m, func() error {
				esig, err = ecdsa.Sign(random, ek, msg, m)
				return err
			}); err != nil {
				return err
			}
			if !ecdsa.Verify(ek.Public(), msg, esig, m) {
				return fmt.Errorf("ecdsa (%s): signature rejected", m)
			}
			ek.Zero()

			logger.Info("self-test passed", "round", r, "method", m.String(), "rsa_bits", params.RSABits, "curve", curve.Name(), "padding", pad.String())
		}
	}

	return sokKey(logger, params, &SOKKeyCmd{Self: "selftest-a", Peer: "selftest-b", Size: 32}, false)
}

// sokKey derives the key cmd.Self and cmd.Peer share and, if print is set,
// writes it to stdout as hex.
func sokKey(logger *slog.Logger, params *cp.Parameters, cmd *SOKKeyCmd, print bool) error {
	master, err := sok.GenerateMaster(params.Reader())
	if err != nil {
		return err
	}
	defer master.Zero()

	self, err := master.Extract(cmd.Self)
	if err != nil {
		return err
	}
	defer self.Zero()
	peer, err := master.Extract(cmd.Peer)
	if err != nil {
		return err
	}
	defer peer.Zero()

	ks, err := sok.Agree(sok.PublicKeyFor(cmd.Peer), self, cmd.Size)
	if err != nil {
		return err
	}
	kp, err := sok.Agree(sok.PublicKeyFor(cmd.Self), peer, cmd.Size)
	if err != nil {
		return err
	}
	if !bytes.Equal(ks, kp) {
		return fmt.Errorf("sok: %s and %s derived different keys", cmd.Self, cmd.Peer)
	}

	logger.Info("sok agreement", "self", cmd.Self, "peer", cmd.Peer, "size", cmd.Size)
	if print {
		fmt.Println(hex.EncodeToString(ks))
	}
	return nil
}
