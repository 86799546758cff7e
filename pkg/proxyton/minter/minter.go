// Package minter implements the proxy TON minter. It deploys the proxy
// wallet of an owner on request and derives wallet addresses.
package minter

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/smartcontractkit/proxy-ton/pkg/bindings/proxyton"
	"github.com/smartcontractkit/proxy-ton/pkg/config"
	"github.com/smartcontractkit/proxy-ton/pkg/proxyton/wallet"
	"github.com/smartcontractkit/proxy-ton/pkg/ton/contract"
)

// Code identifies the proxy minter implementation.
var Code = contract.MustNewCode("ProxyTonMinter", "1.0.0")

// NewData returns the minter data deploying wallets with wallet.Code. A nil
// content is stored as an empty cell.
func NewData(content *cell.Cell) proxyton.MinterData {
	if content == nil {
		content = cell.BeginCell().EndCell()
	}
	return proxyton.MinterData{Content: content, WalletCode: wallet.Code.Cell()}
}

type Minter struct {
	lggr        logger.Logger
	self        *address.Address
	data        proxyton.MinterData
	feeEstimate *big.Int
}

// New returns the minter deployed at self.
func New(lggr logger.Logger, self *address.Address, data proxyton.MinterData, fees config.Fees) (*Minter, error) {
	if self == nil || self.Type() != address.StdAddress {
		return nil, errors.New("minter address must be a standard address")
	}
	if data.WalletCode == nil {
		return nil, errors.New("minter data has no wallet code")
	}
	if err := fees.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("invalid fees: %w", err)
	}
	return &Minter{
		lggr:        logger.Named(lggr, "ProxyTonMinter"),
		self:        self,
		data:        data,
		feeEstimate: fees.NetworkFeeEstimate.Nano(),
	}, nil
}

func (m *Minter) Address() *address.Address {
	return m.self
}

func (m *Minter) Data() proxyton.MinterData {
	return m.data
}

func (m *Minter) workchain() int8 {
	return int8(m.self.Workchain())
}

// WalletStateInit returns the StateInit deploying the wallet of owner.
func (m *Minter) WalletStateInit(owner *address.Address) (*tlb.StateInit, error) {
	if owner == nil || owner.Type() != address.StdAddress {
		return nil, fmt.Errorf("%w: owner must be a standard address", proxyton.ErrMalformedMessage)
	}
	data, err := proxyton.WalletData{Owner: owner, Minter: m.self}.ToCell()
	if err != nil {
		return nil, fmt.Errorf("failed to build wallet data: %w", err)
	}
	return contract.StateInit(m.data.WalletCode, data), nil
}

// GetWalletAddress derives the address of the wallet of owner. It has no
// side effects and always returns the same address for the same owner.
func (m *Minter) GetWalletAddress(owner *address.Address) (*address.Address, error) {
	init, err := m.WalletStateInit(owner)
	if err != nil {
		return nil, err
	}
	return contract.AddressOf(m.workchain(), init)
}

// Process handles one inbound message. An empty body deploys or tops up the
// minter. A mint deploys the wallet of its target with the attached value
// minus the fee estimate; when that wallet already exists it is only topped
// up. A non-nil error is a *tvm.ExitError.
func (m *Minter) Process(_ context.Context, in wallet.Inbound) ([]*tlb.InternalMessage, error) {
	if in.Bounced || in.Body == nil || (in.Body.BitsSize() == 0 && in.Body.RefsNum() == 0) {
		return nil, nil
	}

	msg, err := proxyton.Decode(in.Body)
	if err != nil {
		return nil, proxyton.Fail(err)
	}

	switch msg := msg.(type) {
	case *proxyton.MintMessage:
		out, err := m.mint(in, msg)
		if err != nil {
			return nil, proxyton.Fail(err)
		}
		return []*tlb.InternalMessage{out}, nil
	case *proxyton.ExcessesMessage:
		return nil, nil
	default:
		return nil, proxyton.Fail(fmt.Errorf("%w: opcode 0x%08x at minter", proxyton.ErrUnknownOpcode, msg.OpCode()))
	}
}

func (m *Minter) mint(in wallet.Inbound, msg *proxyton.MintMessage) (*tlb.InternalMessage, error) {
	if int8(msg.To.Workchain()) != m.workchain() {
		return nil, fmt.Errorf("%w: owner is on workchain %d", proxyton.ErrWrongWorkchain, msg.To.Workchain())
	}

	value := new(big.Int).Sub(in.Value, m.feeEstimate)
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s attached, fee estimate is %s",
			proxyton.ErrInsufficientValue, tlb.FromNanoTON(in.Value).String(), tlb.FromNanoTON(m.feeEstimate).String())
	}

	init, err := m.WalletStateInit(msg.To)
	if err != nil {
		return nil, err
	}
	addr, err := contract.AddressOf(m.workchain(), init)
	if err != nil {
		return nil, err
	}

	m.lggr.Infow("Deploying proxy wallet", "owner", msg.To.String(), "wallet", addr.String(), "value", tlb.FromNanoTON(value).String())
	return &tlb.InternalMessage{
		IHRDisabled: true,
		Bounce:      false,
		DstAddr:     addr,
		Amount:      tlb.FromNanoTON(value),
		StateInit:   init,
		Body:        cell.BeginCell().EndCell(),
	}, nil
}
