// Package wallet implements the proxy TON wallet: a contract bound to one
// owner that accepts Jetton transfer requests and moves native coins instead
// of tokens.
package wallet

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
	"github.com/smartcontractkit/proxy-ton/pkg/proxyton/reconcile"
	"github.com/smartcontractkit/proxy-ton/pkg/ton/contract"
)

// Code identifies the proxy wallet implementation.
var Code = contract.MustNewCode("ProxyTonWallet", "1.0.0")

// Inbound is an internal message delivered to the wallet.
type Inbound struct {
	Sender  *address.Address
	Value   *big.Int
	Body    *cell.Cell
	Bounced bool
}

// Result describes how one inbound message was handled.
type Result struct {
	// State is the branch the message ended in: Notify, PlainForward,
	// RefundOnly or Rejected for transfers, Done for everything else.
	State State
	// Path lists every state visited, ending with Done unless rejected.
	Path     []State
	Role     reconcile.SenderRole
	Decision *reconcile.Decision
	Messages []*tlb.InternalMessage
}

func (r *Result) enter(s State) {
	r.State = s
	r.Path = append(r.Path, s)
}

// Wallet is one proxy wallet instance. It holds no mutable state, so a
// single instance can process any number of messages.
type Wallet struct {
	lggr    logger.Logger
	owner   *address.Address
	minter  *address.Address
	params  reconcile.Params
	metrics *Metrics
}

// New returns the wallet for data. metrics may be nil.
func New(lggr logger.Logger, data proxyton.WalletData, fees config.Fees, metrics *Metrics) (*Wallet, error) {
	if data.Owner == nil || data.Owner.Type() != address.StdAddress {
		return nil, errors.New("wallet owner must be a standard address")
	}
	if err := fees.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("invalid fees: %w", err)
	}
	return &Wallet{
		lggr:    logger.Named(lggr, "ProxyTonWallet"),
		owner:   data.Owner,
		minter:  data.Minter,
		params:  reconcile.NewParams(fees),
		metrics: metrics,
	}, nil
}

func (w *Wallet) Owner() *address.Address {
	return w.owner
}

func (w *Wallet) Minter() *address.Address {
	return w.minter
}

func (w *Wallet) Data() proxyton.WalletData {
	return proxyton.WalletData{Owner: w.owner, Minter: w.minter}
}

// transferRequest is the common shape of transfer and external_transfer.
type transferRequest struct {
	queryID          uint64
	jettonAmount     tlb.Coins
	to               *address.Address
	responseAddress  *address.Address
	customPayload    *cell.Cell
	forwardTonAmount tlb.Coins
	forwardPayload   *cell.Cell
	role             reconcile.SenderRole
}

// Process runs one inbound message through the state machine. A non-nil
// error is a *tvm.ExitError: the transaction fails and Result.Messages is
// empty.
func (w *Wallet) Process(_ context.Context, in Inbound) (Result, error) {
	res := Result{}
	res.enter(Received)

	if in.Bounced {
		// outbound messages are never bounceable, so there is nothing to undo
		w.lggr.Debugw("Ignoring bounced message", "sender", in.Sender)
		res.enter(Done)
		return res, nil
	}
	if isEmpty(in.Body) {
		w.lggr.Debugw("Accepted top-up", "sender", in.Sender, "value", in.Value)
		res.enter(Done)
		return res, nil
	}

	msg, err := proxyton.Decode(in.Body)
	if err != nil {
		return w.reject(res, err)
	}

	var req transferRequest
	switch m := msg.(type) {
	case *proxyton.TransferMessage:
		req = transferRequest{
			queryID:          m.QueryID,
			jettonAmount:     m.JettonAmount,
			to:               m.To,
			responseAddress:  m.ResponseAddress,
			customPayload:    m.CustomPayload,
			forwardTonAmount: m.ForwardTonAmount,
			forwardPayload:   m.ForwardPayload,
			role:             reconcile.RoleOf(in.Sender, w.owner),
		}
	case *proxyton.ExternalTransferMessage:
		req = transferRequest{
			queryID:          m.QueryID,
			jettonAmount:     m.Amount,
			to:               w.owner,
			responseAddress:  m.ResponseAddress,
			forwardTonAmount: m.ForwardAmount,
			forwardPayload:   m.ForwardPayload,
			role:             reconcile.ThirdParty,
		}
	case *proxyton.ExcessesMessage:
		w.lggr.Debugw("Accepted excesses", "sender", in.Sender, "queryID", m.QueryID, "value", in.Value)
		res.enter(Done)
		return res, nil
	case *proxyton.TransferNotificationMessage:
		// the wallet is the recipient of another proxy transfer; the value is kept
		w.lggr.Debugw("Accepted transfer notification", "sender", in.Sender, "queryID", m.QueryID, "value", in.Value)
		res.enter(Done)
		return res, nil
	case *proxyton.MintMessage:
		return w.reject(res, fmt.Errorf("%w: mint is served by the minter", proxyton.ErrUnauthorized))
	default:
		return w.reject(res, fmt.Errorf("%w: opcode 0x%08x", proxyton.ErrUnauthorized, msg.OpCode()))
	}

	return w.transfer(res, in, req)
}

func (w *Wallet) transfer(res Result, in Inbound, req transferRequest) (Result, error) {
	res.Role = req.role
	res.enter(Authorized)

	d := reconcile.Reconcile(reconcile.Input{
		Attached:         in.Value,
		JettonAmount:     req.jettonAmount.Nano(),
		ForwardTonAmount: req.forwardTonAmount.Nano(),
		Role:             req.role,
	}, w.params)
	res.Decision = &d
	res.enter(Reconciled)

	responseAddress := req.responseAddress
	if responseAddress == nil || responseAddress.Type() == address.NoneAddress {
		responseAddress = in.Sender
	}

	var messages []*tlb.InternalMessage
	switch {
	case d.Accept && d.Notify:
		res.enter(Notify)
		body, err := proxyton.Encode(proxyton.NewTransferNotification(req.queryID, tlb.FromNanoTON(d.NotifyValue), req.forwardPayload))
		if err != nil {
			return w.reject(res, fmt.Errorf("%w: %w", proxyton.ErrMalformedMessage, err))
		}
		messages = append(messages, outbound(req.to, d.NotifyValue, body))
		if d.PlainValue.Sign() > 0 {
			messages = append(messages, outbound(req.to, d.PlainValue, plainBody(req.customPayload)))
		}
	case d.Accept:
		res.enter(PlainForward)
		if d.PlainValue.Sign() > 0 {
			messages = append(messages, outbound(req.to, d.PlainValue, plainBody(req.customPayload)))
		}
	case d.Refundable():
		res.enter(RefundOnly)
		// a rejected third party gets its value back, whatever it asked for
		responseAddress = in.Sender
	default:
		return w.reject(res, d.Reason)
	}

	if d.RefundValue.Sign() > 0 {
		body, err := proxyton.Encode(&proxyton.ExcessesMessage{QueryID: req.queryID})
		if err != nil {
			return w.reject(res, err)
		}
		messages = append(messages, outbound(responseAddress, d.RefundValue, body))
	}

	res.Messages = messages
	w.lggr.Debugw("Transfer processed",
		"state", res.State,
		"role", req.role,
		"queryID", req.queryID,
		"attached", in.Value,
		"forward", d.ForwardValue,
		"refund", d.RefundValue,
		"reason", d.Reason,
	)
	w.metrics.observe(res)
	// the branch stays the reported state
	res.Path = append(res.Path, Done)
	return res, nil
}

func (w *Wallet) reject(res Result, err error) (Result, error) {
	res.enter(Rejected)
	res.Messages = nil
	w.lggr.Debugw("Message rejected", "err", err)
	w.metrics.observe(res)
	return res, proxyton.Fail(err)
}

func outbound(to *address.Address, value *big.Int, body *cell.Cell) *tlb.InternalMessage {
	return &tlb.InternalMessage{
		IHRDisabled: true,
		Bounce:      false,
		DstAddr:     to,
		Amount:      tlb.FromNanoTON(value),
		Body:        body,
	}
}

// plainBody is the body of the bare value transfer: the custom payload when
// one was given, otherwise empty.
func plainBody(customPayload *cell.Cell) *cell.Cell {
	if customPayload != nil {
		return customPayload
	}
	return cell.BeginCell().EndCell()
}

func isEmpty(body *cell.Cell) bool {
	return body == nil || (body.BitsSize() == 0 && body.RefsNum() == 0)
}
