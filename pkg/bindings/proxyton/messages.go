package proxyton

import (
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Message is an operation body without its 32-bit opcode prefix.
type Message interface {
	OpCode() uint64
	StoreArgs(*cell.Builder) error
}

type decodable interface {
	Message
	loadArgs(*cell.Slice) error
}

// MintMessage asks the minter to deploy the proxy wallet of To.
type MintMessage struct {
	QueryID uint64           `tlb:"## 64"`
	To      *address.Address `tlb:"addr"`
}

// TransferMessage is the Jetton-compatible transfer request sent to a proxy
// wallet. Nil payloads are absent.
type TransferMessage struct {
	QueryID          uint64           `tlb:"## 64"`
	JettonAmount     tlb.Coins        `tlb:"."`
	To               *address.Address `tlb:"addr"`
	ResponseAddress  *address.Address `tlb:"addr"`
	CustomPayload    *cell.Cell       `tlb:"maybe ^"`
	ForwardTonAmount tlb.Coins        `tlb:"."`
	ForwardPayload   *cell.Cell       `tlb:"maybe ^"`
}

// TransferNotificationMessage tells the recipient that a notified transfer
// arrived.
type TransferNotificationMessage struct {
	QueryID          uint64     `tlb:"## 64"`
	ForwardTonAmount tlb.Coins  `tlb:"."`
	ForwardPayload   *cell.Cell `tlb:"maybe ^"`
}

// ExcessesMessage returns unused attached value.
type ExcessesMessage struct {
	QueryID uint64 `tlb:"## 64"`
}

// ExternalTransferMessage deposits value into the owner's proxy wallet on
// behalf of a third party. A nil ResponseAddress means the sender.
type ExternalTransferMessage struct {
	QueryID         uint64           `tlb:"## 64"`
	Amount          tlb.Coins        `tlb:"."`
	ResponseAddress *address.Address `tlb:"addr"`
	ForwardAmount   tlb.Coins        `tlb:"."`
	ForwardPayload  *cell.Cell       `tlb:"maybe ^"`
}

// NewTransferNotification builds a notification; the payload is only
// carried when the forward amount is not zero.
func NewTransferNotification(queryID uint64, forwardTonAmount tlb.Coins, forwardPayload *cell.Cell) *TransferNotificationMessage {
	if forwardTonAmount.Nano().Sign() == 0 {
		forwardPayload = nil
	}
	return &TransferNotificationMessage{
		QueryID:          queryID,
		ForwardTonAmount: forwardTonAmount,
		ForwardPayload:   forwardPayload,
	}
}

func (m *MintMessage) OpCode() uint64 {
	return OpcodeMint
}

func (m *MintMessage) StoreArgs(b *cell.Builder) error {
	return storeFields(b, m)
}

func (m *MintMessage) loadArgs(s *cell.Slice) (err error) {
	if err = tlb.LoadFromCell(m, s); err != nil {
		return err
	}
	return requireStdAddr(m.To, "to")
}

func (m *TransferMessage) OpCode() uint64 {
	return OpcodeTransfer
}

func (m *TransferMessage) StoreArgs(b *cell.Builder) error {
	return storeFields(b, m, m.JettonAmount, m.ForwardTonAmount)
}

func (m *TransferMessage) loadArgs(s *cell.Slice) (err error) {
	if err = tlb.LoadFromCell(m, s); err != nil {
		return err
	}
	if err = requireStdAddr(m.To, "to"); err != nil {
		return err
	}
	m.ResponseAddress, err = optionalAddr(m.ResponseAddress, "responseAddress")
	return err
}

func (m *TransferNotificationMessage) OpCode() uint64 {
	return OpcodeTransferNotification
}

func (m *TransferNotificationMessage) StoreArgs(b *cell.Builder) error {
	return storeFields(b, m, m.ForwardTonAmount)
}

func (m *TransferNotificationMessage) loadArgs(s *cell.Slice) error {
	return tlb.LoadFromCell(m, s)
}

func (m *ExcessesMessage) OpCode() uint64 {
	return OpcodeExcesses
}

func (m *ExcessesMessage) StoreArgs(b *cell.Builder) error {
	return storeFields(b, m)
}

func (m *ExcessesMessage) loadArgs(s *cell.Slice) error {
	return tlb.LoadFromCell(m, s)
}

func (m *ExternalTransferMessage) OpCode() uint64 {
	return OpcodeExternalTransfer
}

func (m *ExternalTransferMessage) StoreArgs(b *cell.Builder) error {
	return storeFields(b, m, m.Amount, m.ForwardAmount)
}

func (m *ExternalTransferMessage) loadArgs(s *cell.Slice) (err error) {
	if err = tlb.LoadFromCell(m, s); err != nil {
		return err
	}
	m.ResponseAddress, err = optionalAddr(m.ResponseAddress, "responseAddress")
	return err
}
