package testutils

import (
	"context"
	"errors"
	"fmt"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/smartcontractkit/proxy-ton/pkg/ton/contract"
	"github.com/smartcontractkit/proxy-ton/pkg/ton/sandbox"
	"github.com/smartcontractkit/proxy-ton/pkg/ton/tvm"
)

const (
	OpcodeIncrement     = 4
	OpcodeIncrementMult = 5
)

var CounterCode = contract.MustNewCode("Counter", "1.0.0")

// Counter is a minimal stateful contract used to exercise the sandbox and
// the generic wrappers.
type Counter struct {
	ID    uint32
	Count uint32
}

// RegisterCounter makes chain able to deploy Counter contracts.
func RegisterCounter(chain *sandbox.Blockchain) {
	chain.RegisterCode(CounterCode.Cell(), func(_ *address.Address, data *cell.Cell) (sandbox.Contract, error) {
		if data == nil {
			return nil, errors.New("missing counter data")
		}
		s := data.BeginParse()
		id, err := s.LoadUInt(32)
		if err != nil {
			return nil, fmt.Errorf("failed to load id: %w", err)
		}
		count, err := s.LoadUInt(32)
		if err != nil {
			return nil, fmt.Errorf("failed to load count: %w", err)
		}
		return &Counter{ID: uint32(id), Count: uint32(count)}, nil
	})
}

func CounterData(id, count uint32) *cell.Cell {
	return (&Counter{ID: id, Count: count}).Data()
}

func (c *Counter) Data() *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(uint64(c.ID), 32).
		MustStoreUInt(uint64(c.Count), 32).
		EndCell()
}

func (c *Counter) Receive(_ context.Context, in sandbox.Inbound) ([]*tlb.InternalMessage, error) {
	if in.Msg.Body == nil || in.Msg.Body.BitsSize() == 0 || in.Msg.Bounced {
		return nil, nil
	}
	s := in.Msg.Body.BeginParse()
	op, err := s.LoadUInt(32)
	if err != nil {
		return nil, tvm.Throw(tvm.ExitCodeCellUnderflow, err)
	}
	if _, err = s.LoadUInt(64); err != nil {
		return nil, tvm.Throw(tvm.ExitCodeCellUnderflow, err)
	}

	switch op {
	case OpcodeIncrement:
		c.Count++
	case OpcodeIncrementMult:
		a, err := s.LoadUInt(32)
		if err != nil {
			return nil, tvm.Throw(tvm.ExitCodeCellUnderflow, err)
		}
		b, err := s.LoadUInt(32)
		if err != nil {
			return nil, tvm.Throw(tvm.ExitCodeCellUnderflow, err)
		}
		c.Count += uint32(a * b)
	default:
		return nil, tvm.Throw(tvm.ExitCodeTolkUnmatchedOpcode, fmt.Errorf("opcode %d", op))
	}
	return nil, nil
}

func (c *Counter) GetMethod(_ context.Context, _ sandbox.AccountState, method string, _ ...any) ([]any, error) {
	switch method {
	case "count":
		return []any{uint64(c.Count)}, nil
	case "id":
		return []any{uint64(c.ID)}, nil
	default:
		return nil, tvm.Throw(tvm.ExitCodeUnknownError, fmt.Errorf("method %s not found", method))
	}
}

type IncrementMessage struct {
	QueryID uint64
}

func (m IncrementMessage) OpCode() uint64 {
	return OpcodeIncrement
}

func (m IncrementMessage) StoreArgs(b *cell.Builder) error {
	return b.StoreUInt(m.QueryID, 64)
}

type IncrementMultMessage struct {
	QueryID uint64
	A, B    uint32
}

func (m IncrementMultMessage) OpCode() uint64 {
	return OpcodeIncrementMult
}

func (m IncrementMultMessage) StoreArgs(b *cell.Builder) error {
	if err := b.StoreUInt(m.QueryID, 64); err != nil {
		return err
	}
	if err := b.StoreUInt(uint64(m.A), 32); err != nil {
		return err
	}
	return b.StoreUInt(uint64(m.B), 32)
}

func ReadCounter(ctx context.Context, chain *sandbox.Blockchain, addr *address.Address) (uint64, error) {
	res, err := chain.RunGetMethod(ctx, addr, "count")
	if err != nil {
		return 0, fmt.Errorf("get count failed: %w", err)
	}

	val, err := res.Int(0)
	if err != nil {
		return 0, fmt.Errorf("invalid stack response: %w", err)
	}

	return val.Uint64(), nil
}
