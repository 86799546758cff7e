package sandbox

import (
	"fmt"
	"math/big"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// ExecutionResult is the stack returned by a get-method.
type ExecutionResult struct {
	stack []any
}

func NewExecutionResult(stack ...any) *ExecutionResult {
	return &ExecutionResult{stack: stack}
}

func (r *ExecutionResult) AsTuple() []any {
	return r.stack
}

func (r *ExecutionResult) at(index int) (any, error) {
	if index < 0 || index >= len(r.stack) {
		return nil, fmt.Errorf("stack index %d out of range, stack size %d", index, len(r.stack))
	}
	return r.stack[index], nil
}

func (r *ExecutionResult) Int(index int) (*big.Int, error) {
	v, err := r.at(index)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case *big.Int:
		return new(big.Int).Set(x), nil
	case int64:
		return big.NewInt(x), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	case int:
		return big.NewInt(int64(x)), nil
	default:
		return nil, fmt.Errorf("stack entry %d is %T, not an integer", index, v)
	}
}

func (r *ExecutionResult) Cell(index int) (*cell.Cell, error) {
	v, err := r.at(index)
	if err != nil {
		return nil, err
	}
	c, ok := v.(*cell.Cell)
	if !ok {
		return nil, fmt.Errorf("stack entry %d is %T, not a cell", index, v)
	}
	return c, nil
}

// Address reads an address stored either as is or as a slice holding a
// MsgAddress.
func (r *ExecutionResult) Address(index int) (*address.Address, error) {
	v, err := r.at(index)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case *address.Address:
		return x, nil
	case *cell.Slice:
		addr, err := x.Copy().LoadAddr()
		if err != nil {
			return nil, fmt.Errorf("failed to load address from stack entry %d: %w", index, err)
		}
		return addr, nil
	default:
		return nil, fmt.Errorf("stack entry %d is %T, not an address", index, v)
	}
}

// String reads a string stored either as is or as a snake cell.
func (r *ExecutionResult) String(index int) (string, error) {
	v, err := r.at(index)
	if err != nil {
		return "", err
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case *cell.Cell:
		s, err := x.BeginParse().LoadStringSnake()
		if err != nil {
			return "", fmt.Errorf("failed to load string from stack entry %d: %w", index, err)
		}
		return s, nil
	default:
		return "", fmt.Errorf("stack entry %d is %T, not a string", index, v)
	}
}
