package sandbox

import (
	"context"
	"fmt"
	"math/big"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton/wallet"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/smartcontractkit/proxy-ton/pkg/ton/contract"
)

// Treasury is a funded wallet on the sandbox. It plays the role a signed
// API client plays against a live network: it signs nothing, but every
// message it sends is processed to completion before the call returns.
type Treasury struct {
	Name    string
	Address *address.Address
	Chain   *Blockchain
}

// SendWaitTransaction sends msg and returns the finalized trace, starting
// at its delivery.
func (t *Treasury) SendWaitTransaction(ctx context.Context, msg *wallet.Message) (*ReceivedMessage, error) {
	rm, err := t.Chain.Send(ctx, t.Address, msg)
	if err != nil {
		return nil, fmt.Errorf("transaction from %s failed: %w", t.Name, err)
	}
	return rm, nil
}

// Transfer sends amount with body to dst, bounceable.
func (t *Treasury) Transfer(ctx context.Context, dst *address.Address, amount tlb.Coins, body *cell.Cell) (*ReceivedMessage, error) {
	return t.SendWaitTransaction(ctx, &wallet.Message{
		Mode: wallet.PayGasSeparately,
		InternalMessage: &tlb.InternalMessage{
			Bounce:  true,
			DstAddr: dst,
			Amount:  amount,
			Body:    body,
		},
	})
}

// DeployContract sends a StateInit with amount and body to the address it
// derives, returning that address and the trace.
func (t *Treasury) DeployContract(ctx context.Context, amount tlb.Coins, body, code, data *cell.Cell) (*address.Address, *ReceivedMessage, error) {
	init := contract.StateInit(code, data)
	addr, err := contract.AddressOf(t.Chain.Workchain(), init)
	if err != nil {
		return nil, nil, err
	}
	rm, err := t.SendWaitTransaction(ctx, &wallet.Message{
		Mode: wallet.PayGasSeparately,
		InternalMessage: &tlb.InternalMessage{
			Bounce:    false,
			DstAddr:   addr,
			Amount:    amount,
			Body:      body,
			StateInit: init,
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return addr, rm, nil
}

func (t *Treasury) Balance() *big.Int {
	return t.Chain.Balance(t.Address)
}
