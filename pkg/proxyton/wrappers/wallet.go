package wrappers

import (
	"context"
	"fmt"
	"math/big"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/smartcontractkit/proxy-ton/pkg/bindings/proxyton"
	"github.com/smartcontractkit/proxy-ton/pkg/proxyton/wallet"
	"github.com/smartcontractkit/proxy-ton/pkg/ton/contract"
	"github.com/smartcontractkit/proxy-ton/pkg/ton/sandbox"
	"github.com/smartcontractkit/proxy-ton/pkg/ton/wrappers"
)

type ProxyTonWallet struct {
	wrappers.Contract
}

func NewProxyTonWallet(client *sandbox.Treasury, addr *address.Address) *ProxyTonWallet {
	return &ProxyTonWallet{wrappers.Contract{Address: addr, Client: client}}
}

// WalletData is the decoded get_wallet_data result.
type WalletData struct {
	Balance    *big.Int
	Owner      *address.Address
	Minter     *address.Address
	WalletCode *cell.Cell
}

func (w *ProxyTonWallet) from(via *sandbox.Treasury) *wrappers.Contract {
	return &wrappers.Contract{Address: w.Address, Client: via}
}

// SendTransfer sends a transfer request from via with value attached.
func (w *ProxyTonWallet) SendTransfer(ctx context.Context, via *sandbox.Treasury, value tlb.Coins, msg *proxyton.TransferMessage) (*sandbox.ReceivedMessage, error) {
	return w.from(via).CallWait(ctx, msg, value)
}

// SendExternalTransfer deposits value into the wallet for its owner.
func (w *ProxyTonWallet) SendExternalTransfer(ctx context.Context, via *sandbox.Treasury, value tlb.Coins, msg *proxyton.ExternalTransferMessage) (*sandbox.ReceivedMessage, error) {
	return w.from(via).CallWait(ctx, msg, value)
}

// SendDeploy sends value with an empty body.
func (w *ProxyTonWallet) SendDeploy(ctx context.Context, via *sandbox.Treasury, value tlb.Coins) (*sandbox.ReceivedMessage, error) {
	return w.from(via).SendMessageWait(ctx, cell.BeginCell().EndCell(), value)
}

// GetJettonBalance returns zero for a wallet that is not deployed, otherwise
// the balance reported by get_wallet_data.
func (w *ProxyTonWallet) GetJettonBalance(ctx context.Context) (*big.Int, error) {
	state, err := w.State()
	if err != nil || !state.Active {
		return big.NewInt(0), nil
	}
	return wrappers.IntFrom(w.Get(ctx, wallet.GetWalletData))
}

func (w *ProxyTonWallet) GetWalletData(ctx context.Context) (*WalletData, error) {
	res, err := w.Get(ctx, wallet.GetWalletData)
	if err != nil {
		return nil, fmt.Errorf("failed to run get method: %w", err)
	}
	balance, err := res.Int(0)
	if err != nil {
		return nil, fmt.Errorf("failed to extract balance: %w", err)
	}
	owner, err := res.Address(1)
	if err != nil {
		return nil, fmt.Errorf("failed to extract owner: %w", err)
	}
	minterAddr, err := res.Address(2)
	if err != nil {
		return nil, fmt.Errorf("failed to extract minter: %w", err)
	}
	code, err := res.Cell(3)
	if err != nil {
		return nil, fmt.Errorf("failed to extract wallet code: %w", err)
	}
	return &WalletData{Balance: balance, Owner: owner, Minter: minterAddr, WalletCode: code}, nil
}

func (w *ProxyTonWallet) TypeAndVersion(ctx context.Context) (contract.Code, error) {
	return typeAndVersion(w.Get(ctx, wallet.GetTypeAndVersion))
}
