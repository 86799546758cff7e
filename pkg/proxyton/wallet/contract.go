package wallet

import (
	"context"
	"fmt"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/smartcontractkit/proxy-ton/pkg/bindings/proxyton"
	"github.com/smartcontractkit/proxy-ton/pkg/config"
	"github.com/smartcontractkit/proxy-ton/pkg/ton/sandbox"
	"github.com/smartcontractkit/proxy-ton/pkg/ton/tvm"
)

var (
	_ sandbox.Contract         = (*Wallet)(nil)
	_ sandbox.GetMethodHandler = (*Wallet)(nil)
)

// Get-method names.
const (
	GetWalletData     = "get_wallet_data"
	GetTypeAndVersion = "type_and_version"
)

// Register makes chain run proxy wallets deployed with Code.
func Register(chain *sandbox.Blockchain, lggr logger.Logger, fees config.Fees, metrics *Metrics) {
	chain.RegisterCode(Code.Cell(), func(_ *address.Address, data *cell.Cell) (sandbox.Contract, error) {
		walletData, err := proxyton.LoadWalletData(data)
		if err != nil {
			return nil, err
		}
		return New(lggr, *walletData, fees, metrics)
	})
}

func (w *Wallet) Receive(ctx context.Context, in sandbox.Inbound) ([]*tlb.InternalMessage, error) {
	res, err := w.Process(ctx, Inbound{
		Sender:  in.Msg.SrcAddr,
		Value:   in.Msg.Amount.Nano(),
		Body:    in.Msg.Body,
		Bounced: in.Msg.Bounced,
	})
	if err != nil {
		return nil, err
	}
	return res.Messages, nil
}

// GetMethod serves get_wallet_data as (balance, owner, minter, wallet code)
// where balance is the native balance of the account, and type_and_version.
func (w *Wallet) GetMethod(_ context.Context, state sandbox.AccountState, method string, _ ...any) ([]any, error) {
	switch method {
	case GetWalletData:
		return []any{state.Balance, w.owner, w.minter, state.Code}, nil
	case GetTypeAndVersion:
		return []any{Code.TypeAndVersion()}, nil
	default:
		return nil, tvm.Throw(tvm.ExitCodeUnknownError, fmt.Errorf("method %s not found", method))
	}
}
