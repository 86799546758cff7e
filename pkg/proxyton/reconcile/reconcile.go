// Package reconcile decides how the value attached to a proxy wallet
// transfer is split between the recipient, the refund and the fee.
//
// Every amount is a non-negative integer number of nanotons. Reconcile is a
// pure total function: it never fails and never reads state.
package reconcile

import (
	"fmt"
	"math/big"

	"github.com/xssnick/tonutils-go/address"

	"github.com/smartcontractkit/proxy-ton/pkg/bindings/proxyton"
	"github.com/smartcontractkit/proxy-ton/pkg/config"
)

// SenderRole selects the validation discipline of a transfer.
type SenderRole int

const (
	// Owner may over-fund; only under-funding is rejected.
	Owner SenderRole = iota
	// ThirdParty must attach the forwarded value, plus at most the fee margin.
	ThirdParty
)

func (r SenderRole) String() string {
	switch r {
	case Owner:
		return "owner"
	case ThirdParty:
		return "third-party"
	default:
		return fmt.Sprintf("SenderRole(%d)", int(r))
	}
}

// RoleOf classifies sender against the wallet owner.
func RoleOf(sender, owner *address.Address) SenderRole {
	if sender != nil && owner != nil && sender.Equals(owner) {
		return Owner
	}
	return ThirdParty
}

type Params struct {
	MinFeeMargin       *big.Int
	DustThreshold      *big.Int
	NetworkFeeEstimate *big.Int
}

func NewParams(fees config.Fees) Params {
	return Params{
		MinFeeMargin:       fees.MinFeeMargin.Nano(),
		DustThreshold:      fees.DustThreshold.Nano(),
		NetworkFeeEstimate: fees.NetworkFeeEstimate.Nano(),
	}
}

type Input struct {
	Attached         *big.Int
	JettonAmount     *big.Int
	ForwardTonAmount *big.Int
	Role             SenderRole
}

// Decision is the routing outcome of one transfer.
//
// When Accept is true the recipient receives ForwardValue, split into
// NotifyValue (carried by the transfer notification, only when Notify) and
// PlainValue (a bare value transfer). RefundValue goes back as excesses and
// is zero when it would not exceed the dust threshold.
//
// When Accept is false nothing reaches the recipient. Reason tells whether
// the transfer is refunded (ErrValueMismatch, RefundValue to the sender) or
// fails outright (ErrInsufficientValue).
type Decision struct {
	Accept       bool
	Notify       bool
	ForwardValue *big.Int
	NotifyValue  *big.Int
	PlainValue   *big.Int
	RefundValue  *big.Int
	Reason       error
}

// Reconcile computes the routing decision for in.
func Reconcile(in Input, p Params) Decision {
	attached := nonNegative(in.Attached)
	jettonAmount := nonNegative(in.JettonAmount)
	forwardTonAmount := nonNegative(in.ForwardTonAmount)
	fee := nonNegative(p.NetworkFeeEstimate)
	dust := nonNegative(p.DustThreshold)

	forwardValue := new(big.Int).Add(jettonAmount, forwardTonAmount)
	// attached - forwardValue; negative means nothing can be forwarded
	surplus := new(big.Int).Sub(attached, forwardValue)

	switch in.Role {
	case Owner:
		if surplus.Sign() < 0 {
			return reject(proxyton.ErrInsufficientValue, nil)
		}
	default:
		margin := nonNegative(p.MinFeeMargin)
		if surplus.Sign() < 0 || surplus.Cmp(margin) > 0 {
			return reject(proxyton.ErrValueMismatch, aboveDust(new(big.Int).Sub(attached, fee), dust))
		}
	}

	d := Decision{
		Accept:       true,
		ForwardValue: forwardValue,
		NotifyValue:  new(big.Int),
		PlainValue:   new(big.Int).Set(jettonAmount),
		RefundValue:  aboveDust(surplus.Sub(surplus, fee), dust),
	}
	if forwardTonAmount.Sign() > 0 {
		d.Notify = true
		d.NotifyValue = new(big.Int).Set(forwardTonAmount)
	}
	return d
}

// Refundable reports whether a rejected decision is recovered by a refund
// rather than by failing the transaction.
func (d Decision) Refundable() bool {
	return !d.Accept && d.RefundValue != nil && d.RefundValue.Sign() > 0
}

// Retained is the part of attached that the decision neither forwards nor
// refunds, i.e. what is left to pay the network.
func (d Decision) Retained(attached *big.Int) *big.Int {
	out := new(big.Int).Set(nonNegative(attached))
	if d.Accept {
		out.Sub(out, d.ForwardValue)
	}
	return out.Sub(out, nonNegative(d.RefundValue))
}

// Conserves reports whether d emits no more than attached and, for accepted
// transfers, keeps at most the fee margin.
func Conserves(attached *big.Int, d Decision, p Params) bool {
	retained := d.Retained(attached)
	if retained.Sign() < 0 {
		return false
	}
	if d.Accept {
		return retained.Cmp(nonNegative(p.MinFeeMargin)) <= 0
	}
	return true
}

func reject(reason error, refund *big.Int) Decision {
	if refund == nil {
		refund = new(big.Int)
	}
	return Decision{
		ForwardValue: new(big.Int),
		NotifyValue:  new(big.Int),
		PlainValue:   new(big.Int),
		RefundValue:  refund,
		Reason:       reason,
	}
}

func aboveDust(v, dust *big.Int) *big.Int {
	if v.Cmp(dust) <= 0 {
		return new(big.Int)
	}
	return v
}

func nonNegative(v *big.Int) *big.Int {
	if v == nil || v.Sign() < 0 {
		return new(big.Int)
	}
	return v
}
