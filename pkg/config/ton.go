package config

import (
	"fmt"
	"math/big"

	"github.com/xssnick/tonutils-go/tlb"
)

// TON is an amount written in config files as a decimal TON string
// ("0.05"), kept as nanotons.
type TON struct {
	coins tlb.Coins
}

func ParseTON(s string) (*TON, error) {
	c, err := tlb.FromTON(s)
	if err != nil {
		return nil, fmt.Errorf("invalid TON amount %q: %w", s, err)
	}
	return &TON{coins: c}, nil
}

func MustParseTON(s string) *TON {
	t, err := ParseTON(s)
	if err != nil {
		panic(err)
	}
	return t
}

func NewTON(nano *big.Int) *TON {
	return &TON{coins: tlb.FromNanoTON(nano)}
}

// Nano returns a fresh copy of the amount in nanotons.
func (t *TON) Nano() *big.Int {
	if t == nil {
		return big.NewInt(0)
	}
	return t.coins.Nano()
}

func (t *TON) Coins() tlb.Coins {
	if t == nil {
		return tlb.ZeroCoins
	}
	return t.coins
}

func (t *TON) String() string {
	if t == nil {
		return "0"
	}
	return t.coins.String()
}

func (t *TON) UnmarshalText(text []byte) error {
	parsed, err := ParseTON(string(text))
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

func (t TON) MarshalText() ([]byte, error) {
	return []byte(t.coins.String()), nil
}
