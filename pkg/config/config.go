package config

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/smartcontractkit/chainlink-common/pkg/config"
	"github.com/xssnick/tonutils-go/tlb"
)

// Name of the chain family the proxy contracts are deployed on
const ChainFamilyName = "ton"

var DefaultConfigSet = Config{
	Workchain: ptr(int8(0)),
	Fees: Fees{
		MinFeeMargin:       MustParseTON("0.01"),
		DustThreshold:      MustParseTON("0.001"),
		NetworkFeeEstimate: MustParseTON("0.005"),
	},
	Sandbox: Sandbox{
		ComputeFee:      MustParseTON("0.002"),
		ForwardFee:      MustParseTON("0.0005"),
		TreasuryBalance: MustParseTON("1000000"),
	},
}

type Config struct {
	Workchain *int8
	Fees      Fees
	Sandbox   Sandbox
}

// Fees are the economic assumptions of the value reconciler.
type Fees struct {
	// MinFeeMargin bounds how far a third-party attached value may exceed the
	// forwarded value and how much an accepted transfer may leave unaccounted.
	MinFeeMargin *TON
	// DustThreshold is the largest refund that is absorbed as fee instead of
	// being sent back in an excesses message.
	DustThreshold *TON
	// NetworkFeeEstimate is kept back from every refund to pay for the
	// transaction that emits it.
	NetworkFeeEstimate *TON
}

// Sandbox configures the flat fee schedule of the in-memory transport.
type Sandbox struct {
	ComputeFee      *TON
	ForwardFee      *TON
	TreasuryBalance *TON
}

// Defaults returns a copy of DefaultConfigSet that callers may modify.
func Defaults() *Config {
	c := &Config{}
	c.SetFrom(&DefaultConfigSet)
	return c
}

// Load reads a TOML file and overlays it on the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses TOML from r, rejecting unknown keys, and overlays it on the
// defaults. The result is validated.
func Decode(r io.Reader) (*Config, error) {
	var decoded Config
	d := toml.NewDecoder(r).DisallowUnknownFields()
	if err := d.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	c := Defaults()
	c.SetFrom(&decoded)
	if err := c.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func (c *Config) SetFrom(f *Config) {
	if f.Workchain != nil {
		c.Workchain = ptr(*f.Workchain)
	}
	c.Fees.SetFrom(&f.Fees)
	c.Sandbox.SetFrom(&f.Sandbox)
}

func (c *Config) ValidateConfig() (err error) {
	if c.Workchain == nil {
		err = errors.Join(err, config.ErrMissing{Name: "Workchain", Msg: "required"})
	} else if w := *c.Workchain; w != 0 && w != -1 {
		err = errors.Join(err, config.ErrInvalid{Name: "Workchain", Value: w, Msg: "must be 0 (basechain) or -1 (masterchain)"})
	}
	err = errors.Join(err, c.Fees.ValidateConfig(), c.Sandbox.ValidateConfig())
	return err
}

// WorkchainID returns the configured workchain, defaulting to basechain.
func (c *Config) WorkchainID() int8 {
	if c.Workchain == nil {
		return 0
	}
	return *c.Workchain
}

func (f *Fees) SetFrom(o *Fees) {
	if o.MinFeeMargin != nil {
		f.MinFeeMargin = o.MinFeeMargin
	}
	if o.DustThreshold != nil {
		f.DustThreshold = o.DustThreshold
	}
	if o.NetworkFeeEstimate != nil {
		f.NetworkFeeEstimate = o.NetworkFeeEstimate
	}
}

func (f *Fees) ValidateConfig() (err error) {
	err = errors.Join(
		validateAmount("Fees.MinFeeMargin", f.MinFeeMargin),
		validateAmount("Fees.DustThreshold", f.DustThreshold),
		validateAmount("Fees.NetworkFeeEstimate", f.NetworkFeeEstimate),
	)
	if err != nil {
		return err
	}
	// an accepted transfer may leave the fee estimate plus a swallowed dust
	// refund unaccounted; both must fit in the margin
	kept := new(big.Int).Add(f.NetworkFeeEstimate.Nano(), f.DustThreshold.Nano())
	if kept.Cmp(f.MinFeeMargin.Nano()) > 0 {
		err = config.ErrInvalid{
			Name:  "Fees.MinFeeMargin",
			Value: f.MinFeeMargin.String(),
			Msg:   fmt.Sprintf("must cover NetworkFeeEstimate + DustThreshold (%s)", tlb.FromNanoTON(kept).String()),
		}
	}
	return err
}

func (s *Sandbox) SetFrom(o *Sandbox) {
	if o.ComputeFee != nil {
		s.ComputeFee = o.ComputeFee
	}
	if o.ForwardFee != nil {
		s.ForwardFee = o.ForwardFee
	}
	if o.TreasuryBalance != nil {
		s.TreasuryBalance = o.TreasuryBalance
	}
}

func (s *Sandbox) ValidateConfig() error {
	return errors.Join(
		validateAmount("Sandbox.ComputeFee", s.ComputeFee),
		validateAmount("Sandbox.ForwardFee", s.ForwardFee),
		validateAmount("Sandbox.TreasuryBalance", s.TreasuryBalance),
	)
}

func validateAmount(name string, v *TON) error {
	if v == nil {
		return config.ErrMissing{Name: name, Msg: "required"}
	}
	if v.Nano().Sign() < 0 {
		return config.ErrInvalid{Name: name, Value: v.String(), Msg: "must not be negative"}
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
