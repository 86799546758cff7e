package minter

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/smartcontractkit/proxy-ton/pkg/bindings/proxyton"
	"github.com/smartcontractkit/proxy-ton/pkg/config"
	"github.com/smartcontractkit/proxy-ton/pkg/proxyton/wallet"
	"github.com/smartcontractkit/proxy-ton/pkg/ton/sandbox"
	"github.com/smartcontractkit/proxy-ton/pkg/ton/tvm"
)

var (
	_ sandbox.Contract         = (*Minter)(nil)
	_ sandbox.GetMethodHandler = (*Minter)(nil)
)

// Get-method names.
const (
	GetWalletAddress  = "get_wallet_address"
	GetTypeAndVersion = "type_and_version"
)

// Register makes chain run proxy minters deployed with Code.
func Register(chain *sandbox.Blockchain, lggr logger.Logger, fees config.Fees) {
	chain.RegisterCode(Code.Cell(), func(self *address.Address, data *cell.Cell) (sandbox.Contract, error) {
		minterData, err := proxyton.LoadMinterData(data)
		if err != nil {
			return nil, err
		}
		return New(lggr, self, *minterData, fees)
	})
}

func (m *Minter) Receive(ctx context.Context, in sandbox.Inbound) ([]*tlb.InternalMessage, error) {
	return m.Process(ctx, wallet.Inbound{
		Sender:  in.Msg.SrcAddr,
		Value:   in.Msg.Amount.Nano(),
		Body:    in.Msg.Body,
		Bounced: in.Msg.Bounced,
	})
}

// GetMethod serves get_wallet_address, whose argument is the owner either as
// an address or as a slice holding one, and type_and_version.
func (m *Minter) GetMethod(_ context.Context, _ sandbox.AccountState, method string, args ...any) ([]any, error) {
	switch method {
	case GetWalletAddress:
		if len(args) != 1 {
			return nil, tvm.Throw(tvm.ExitCodeCellUnderflow, errors.New("get_wallet_address takes the owner address"))
		}
		owner, err := ownerArg(args[0])
		if err != nil {
			return nil, tvm.Throw(tvm.ExitCodeCellUnderflow, err)
		}
		addr, err := m.GetWalletAddress(owner)
		if err != nil {
			return nil, tvm.Throw(tvm.ExitCodeCellUnderflow, err)
		}
		return []any{cell.BeginCell().MustStoreAddr(addr).EndCell().BeginParse()}, nil
	case GetTypeAndVersion:
		return []any{Code.TypeAndVersion()}, nil
	default:
		return nil, tvm.Throw(tvm.ExitCodeUnknownError, fmt.Errorf("method %s not found", method))
	}
}

func ownerArg(arg any) (*address.Address, error) {
	switch v := arg.(type) {
	case *address.Address:
		return v, nil
	case *cell.Slice:
		return v.Copy().LoadAddr()
	case *cell.Cell:
		return v.BeginParse().LoadAddr()
	default:
		return nil, fmt.Errorf("unsupported owner argument %T", arg)
	}
}
