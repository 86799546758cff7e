package proxyton

import (
	"fmt"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// WalletData is the persistent data of a proxy wallet. It only binds the
// owner and the minter, which also makes the wallet address unique per owner.
type WalletData struct {
	Owner  *address.Address `tlb:"addr"`
	Minter *address.Address `tlb:"addr"`
}

// MinterData is the persistent data of the minter.
type MinterData struct {
	Content    *cell.Cell `tlb:"^"`
	WalletCode *cell.Cell `tlb:"^"`
}

// walletDataLayout and minterDataLayout carry the tlb tags without the
// ToCell methods, which tlb.ToCell would otherwise call back into.
type (
	walletDataLayout WalletData
	minterDataLayout MinterData
)

func (d WalletData) ToCell() (*cell.Cell, error) {
	c, err := tlb.ToCell(walletDataLayout(d))
	if err != nil {
		return nil, fmt.Errorf("failed to convert wallet data to cell: %w", err)
	}
	return c, nil
}

func LoadWalletData(c *cell.Cell) (*WalletData, error) {
	if c == nil {
		return nil, fmt.Errorf("missing wallet data")
	}
	var d WalletData
	if err := tlb.LoadFromCell(&d, c.BeginParse()); err != nil {
		return nil, fmt.Errorf("failed to load wallet data: %w", err)
	}
	if d.Owner == nil || d.Owner.Type() != address.StdAddress {
		return nil, fmt.Errorf("wallet data: owner must be a standard address")
	}
	if d.Minter == nil || d.Minter.Type() != address.StdAddress {
		return nil, fmt.Errorf("wallet data: minter must be a standard address")
	}
	return &d, nil
}

func (d MinterData) ToCell() (*cell.Cell, error) {
	c, err := tlb.ToCell(minterDataLayout(d))
	if err != nil {
		return nil, fmt.Errorf("failed to convert minter data to cell: %w", err)
	}
	return c, nil
}

func LoadMinterData(c *cell.Cell) (*MinterData, error) {
	if c == nil {
		return nil, fmt.Errorf("missing minter data")
	}
	var d MinterData
	if err := tlb.LoadFromCell(&d, c.BeginParse()); err != nil {
		return nil, fmt.Errorf("failed to load minter data: %w", err)
	}
	return &d, nil
}
