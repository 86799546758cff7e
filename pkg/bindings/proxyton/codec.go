package proxyton

import (
	"fmt"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Encode serializes a message body: 32-bit opcode followed by its fields.
func Encode(m Message) (*cell.Cell, error) {
	b := cell.BeginCell()
	err := b.StoreUInt(m.OpCode(), 32)
	if err != nil {
		return nil, fmt.Errorf("failed to store opcode: %w", err)
	}
	err = m.StoreArgs(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode 0x%08x: %w", m.OpCode(), err)
	}
	return b.EndCell(), nil
}

// PeekOpcode returns the opcode of body without consuming it. ok is false
// when the body is too short to carry one.
func PeekOpcode(body *cell.Cell) (op uint32, ok bool) {
	if body == nil {
		return 0, false
	}
	s := body.BeginParse()
	if s.BitsLeft() < 32 {
		return 0, false
	}
	v, err := s.LoadUInt(32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// Decode parses a full message body. Every byte and reference of the body
// must be consumed; any deviation is reported as ErrMalformedMessage.
func Decode(body *cell.Cell) (Message, error) {
	if body == nil {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedMessage)
	}
	s := body.BeginParse()
	op, err := s.LoadUInt(32)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load opcode: %v", ErrMalformedMessage, err)
	}

	var msg decodable
	switch op {
	case OpcodeMint:
		msg = &MintMessage{}
	case OpcodeTransfer:
		msg = &TransferMessage{}
	case OpcodeTransferNotification:
		msg = &TransferNotificationMessage{}
	case OpcodeExcesses:
		msg = &ExcessesMessage{}
	case OpcodeExternalTransfer:
		msg = &ExternalTransferMessage{}
	default:
		return nil, fmt.Errorf("%w 0x%08x", ErrUnknownOpcode, op)
	}

	if err = msg.loadArgs(s); err != nil {
		return nil, fmt.Errorf("%w: op 0x%08x: %v", ErrMalformedMessage, op, err)
	}
	if s.BitsLeft() != 0 || s.RefsNum() != 0 {
		return nil, fmt.Errorf("%w: op 0x%08x: %d trailing bits and %d trailing refs", ErrMalformedMessage, op, s.BitsLeft(), s.RefsNum())
	}
	return msg, nil
}

// DecodeAs decodes body and asserts its concrete type.
func DecodeAs[T Message](body *cell.Cell) (T, error) {
	var zero T
	msg, err := Decode(body)
	if err != nil {
		return zero, err
	}
	typed, ok := msg.(T)
	if !ok {
		return zero, fmt.Errorf("%w: unexpected op 0x%08x", ErrMalformedMessage, msg.OpCode())
	}
	return typed, nil
}

// storeFields appends the tlb layout of m to b. amounts are checked first
// because tlb.Coins panics on values wider than VarUInteger 16.
func storeFields(b *cell.Builder, m Message, amounts ...tlb.Coins) error {
	for _, a := range amounts {
		if a.Nano().Sign() < 0 || a.Nano().Cmp(MaxCoins) > 0 {
			return fmt.Errorf("amount %s does not fit in VarUInteger 16", a.Nano().String())
		}
	}
	c, err := tlb.ToCell(m)
	if err != nil {
		return fmt.Errorf("failed to convert 0x%08x to cell: %w", m.OpCode(), err)
	}
	return b.StoreBuilder(c.ToBuilder())
}

func requireStdAddr(addr *address.Address, name string) error {
	if addr == nil || addr.Type() != address.StdAddress {
		return fmt.Errorf("%s must be a standard address", name)
	}
	return nil
}

// optionalAddr maps addr_none to nil.
func optionalAddr(addr *address.Address, name string) (*address.Address, error) {
	if addr == nil {
		return nil, nil
	}
	switch addr.Type() {
	case address.NoneAddress:
		return nil, nil
	case address.StdAddress:
		return addr, nil
	default:
		return nil, fmt.Errorf("%s must be a standard address or addr_none", name)
	}
}
