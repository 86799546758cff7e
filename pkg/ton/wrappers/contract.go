package wrappers

import (
	"context"
	"fmt"
	"math/big"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton/wallet"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/smartcontractkit/proxy-ton/pkg/ton/sandbox"
)

type Contract struct {
	Address *address.Address
	Client  *sandbox.Treasury
}

type Message interface {
	OpCode() uint64
	StoreArgs(*cell.Builder) error
}

// Body serializes message as its opcode followed by its arguments.
func Body(message Message) (*cell.Cell, error) {
	b := cell.BeginCell()
	if err := b.StoreUInt(message.OpCode(), 32); err != nil {
		return nil, fmt.Errorf("failed to store opcode: %w", err)
	}
	if err := message.StoreArgs(b); err != nil {
		return nil, fmt.Errorf("failed to store message arguments: %w", err)
	}
	return b.EndCell(), nil
}

// CallWait sends a message to the contract and returns the trace it caused.
// The sandbox processes the whole cascade, so the trace is always finalized.
func (c *Contract) CallWait(ctx context.Context, message Message, amount tlb.Coins) (*sandbox.ReceivedMessage, error) {
	body, err := Body(message)
	if err != nil {
		return nil, err
	}
	return c.SendMessageWait(ctx, body, amount)
}

// SendMessageWait sends a raw body to the contract, bounceable.
func (c *Contract) SendMessageWait(ctx context.Context, body *cell.Cell, amount tlb.Coins) (*sandbox.ReceivedMessage, error) {
	return c.Client.SendWaitTransaction(ctx, &wallet.Message{
		Mode: wallet.PayGasSeparately,
		InternalMessage: &tlb.InternalMessage{
			IHRDisabled: true,
			Bounce:      true,
			DstAddr:     c.Address,
			Amount:      amount,
			Body:        body,
		},
	})
}

// Get calls a get-method on the contract.
func (c *Contract) Get(ctx context.Context, key string, params ...any) (*sandbox.ExecutionResult, error) {
	return c.Client.Chain.RunGetMethod(ctx, c.Address, key, params...)
}

// State returns the current account state of the contract.
func (c *Contract) State() (sandbox.AccountState, error) {
	return c.Client.Chain.Account(c.Address)
}

func Uint64From(res *sandbox.ExecutionResult, err error) (uint64, error) {
	val, err := IntFrom(res, err)
	if err != nil {
		return 0, err
	}
	return val.Uint64(), nil
}

func Uint32From(res *sandbox.ExecutionResult, err error) (uint32, error) {
	val, err := IntFrom(res, err)
	if err != nil {
		return 0, err
	}
	return uint32(val.Uint64()), nil
}

func IntFrom(res *sandbox.ExecutionResult, err error) (*big.Int, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to run get method: %w", err)
	}

	val, err := res.Int(0)
	if err != nil {
		return nil, fmt.Errorf("failed to extract value: %w", err)
	}
	return val, nil
}

func AddressFrom(res *sandbox.ExecutionResult, err error) (*address.Address, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to run get method: %w", err)
	}

	val, err := res.Address(0)
	if err != nil {
		return nil, fmt.Errorf("failed to extract value: %w", err)
	}
	return val, nil
}

// Deploy deploys a contract to the sandbox. It takes the code cell of a
// contract, the initial data for the contract, and the amount of TON to be
// sent to the contract upon deployment.
// It returns the contract wrapper if the deployment is successful.
func Deploy(ctx context.Context, client *sandbox.Treasury, codeCell *cell.Cell, initData *cell.Cell, amount tlb.Coins) (*Contract, error) {
	addr, receivedMessage, err := client.DeployContract(ctx, amount, cell.BeginCell().EndCell(), codeCell, initData)
	if err != nil {
		return nil, fmt.Errorf("deployment failed: %w", err)
	}
	if !receivedMessage.Deployed {
		state, err := client.Chain.Account(addr)
		if err != nil || !state.Active {
			return nil, fmt.Errorf("contract deployment failed: %s was not initialized", addr.String())
		}
	}
	if !receivedMessage.ExitCode.IsSuccessfulDeployment() {
		return nil, fmt.Errorf("contract deployment failed: exit code %d: %s", receivedMessage.ExitCode, receivedMessage.ExitCode.Describe())
	}

	return &Contract{Address: addr, Client: client}, nil
}
