package sandbox

import (
	"context"
	"math/big"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Inbound is what a contract sees when a message is delivered to it.
type Inbound struct {
	Self *address.Address
	Msg  *tlb.InternalMessage
	// Balance of the account after crediting the message value and charging
	// the compute fee.
	Balance *big.Int
	LT      uint64
	Now     uint32
}

// Contract is a host implementation of on-chain code. Receive returns the
// outbound messages of the transaction; an error aborts the transaction and
// its exit code is taken with tvm.CodeOf.
type Contract interface {
	Receive(ctx context.Context, in Inbound) ([]*tlb.InternalMessage, error)
}

// Stateful is implemented by contracts that change their data. The sandbox
// stores Data after every successful transaction and rebuilds the contract
// from the previous data when a transaction aborts.
type Stateful interface {
	Contract
	Data() *cell.Cell
}

// GetMethodHandler is implemented by contracts exposing get-methods.
type GetMethodHandler interface {
	GetMethod(ctx context.Context, state AccountState, method string, args ...any) ([]any, error)
}

// Factory instantiates the contract deployed at self from its data cell.
type Factory func(self *address.Address, data *cell.Cell) (Contract, error)

// AccountState is a snapshot of an account.
type AccountState struct {
	Address *address.Address
	Balance *big.Int
	Code    *cell.Cell
	Data    *cell.Cell
	Active  bool
	LastLT  uint64
}
