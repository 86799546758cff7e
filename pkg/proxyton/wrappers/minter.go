package wrappers

import (
	"context"
	"fmt"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/smartcontractkit/proxy-ton/pkg/bindings/proxyton"
	"github.com/smartcontractkit/proxy-ton/pkg/proxyton/minter"
	"github.com/smartcontractkit/proxy-ton/pkg/ton/contract"
	"github.com/smartcontractkit/proxy-ton/pkg/ton/sandbox"
	"github.com/smartcontractkit/proxy-ton/pkg/ton/wrappers"
)

type ProxyTonMinter struct {
	wrappers.Contract
}

func NewProxyTonMinter(client *sandbox.Treasury, addr *address.Address) *ProxyTonMinter {
	return &ProxyTonMinter{wrappers.Contract{Address: addr, Client: client}}
}

// DeployProxyTonMinter deploys a minter holding data and returns its wrapper.
func DeployProxyTonMinter(ctx context.Context, client *sandbox.Treasury, data proxyton.MinterData, amount tlb.Coins) (*ProxyTonMinter, error) {
	dataCell, err := data.ToCell()
	if err != nil {
		return nil, fmt.Errorf("failed to build minter data: %w", err)
	}
	c, err := wrappers.Deploy(ctx, client, minter.Code.Cell(), dataCell, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy minter: %w", err)
	}
	return &ProxyTonMinter{*c}, nil
}

func (m *ProxyTonMinter) from(via *sandbox.Treasury) *wrappers.Contract {
	return &wrappers.Contract{Address: m.Address, Client: via}
}

// SendDeploy sends value with an empty body.
func (m *ProxyTonMinter) SendDeploy(ctx context.Context, via *sandbox.Treasury, value tlb.Coins) (*sandbox.ReceivedMessage, error) {
	return m.from(via).SendMessageWait(ctx, cell.BeginCell().EndCell(), value)
}

// SendMint asks the minter to deploy the wallet of to.
func (m *ProxyTonMinter) SendMint(ctx context.Context, via *sandbox.Treasury, value tlb.Coins, to *address.Address) (*sandbox.ReceivedMessage, error) {
	return m.from(via).CallWait(ctx, &proxyton.MintMessage{To: to}, value)
}

func (m *ProxyTonMinter) GetWalletAddress(ctx context.Context, owner *address.Address) (*address.Address, error) {
	ownerSlice := cell.BeginCell().MustStoreAddr(owner).EndCell().BeginParse()
	return wrappers.AddressFrom(m.Get(ctx, minter.GetWalletAddress, ownerSlice))
}

func (m *ProxyTonMinter) TypeAndVersion(ctx context.Context) (contract.Code, error) {
	return typeAndVersion(m.Get(ctx, minter.GetTypeAndVersion))
}

func typeAndVersion(res *sandbox.ExecutionResult, err error) (contract.Code, error) {
	if err != nil {
		return contract.Code{}, fmt.Errorf("failed to run get method: %w", err)
	}
	tv, err := res.String(0)
	if err != nil {
		return contract.Code{}, fmt.Errorf("failed to extract value: %w", err)
	}
	return contract.ParseTypeAndVersion(tv)
}
