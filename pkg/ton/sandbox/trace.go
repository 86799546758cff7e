package sandbox

import (
	"math/big"

	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/smartcontractkit/proxy-ton/pkg/ton/tvm"
)

// MsgStatus represents how far the cascade started by a message has been
// processed.
//   - Received: The message has been processed and has outgoing messages
//     that have not been delivered yet.
//   - Cascading: Some outgoing messages have been delivered.
//   - Finalized: All outgoing messages have been delivered.
type MsgStatus int

const (
	NotFound MsgStatus = -1
	Received MsgStatus = iota
	Cascading
	Finalized
)

// SentMessage is an internal message emitted by a contract, before delivery.
type SentMessage struct {
	InternalMsg *tlb.InternalMessage
	Amount      *big.Int
	LamportTime uint64   // Lamport time of sender when emitting the message
	FwdFee      *big.Int // Charged to the sender on top of Amount
}

func NewSentMessage(internalMessage *tlb.InternalMessage) SentMessage {
	return SentMessage{
		InternalMsg: internalMessage,
		Amount:      internalMessage.Amount.Nano(),
		LamportTime: internalMessage.CreatedLT,
		FwdFee:      internalMessage.FwdFee.Nano(),
	}
}

// ReceivedMessage is a message after its destination processed it: the
// inbound message, the fees charged, the execution result and the messages
// it emitted, recursively.
type ReceivedMessage struct {
	// Sent step

	InternalMsg *tlb.InternalMessage
	Amount      *big.Int
	LamportTime uint64
	FwdFee      *big.Int // Paid by the sender of this message

	// Received step

	GasFee                           *big.Int // Compute fee charged to the receiver
	TotalActionFees                  *big.Int // Forward fees of the outgoing messages, charged to the receiver
	Deployed                         bool     // The message initialized the destination account
	EmittedBouncedMessage            bool     // The message failed and its value was bounced
	Success                          bool
	ExitCode                         tvm.ExitCode
	Err                              error // Contract error behind a failed ExitCode
	OutgoingInternalSentMessages     []*SentMessage
	OutgoingInternalReceivedMessages []*ReceivedMessage
}

func newReceivedMessage(msg *tlb.InternalMessage) *ReceivedMessage {
	return &ReceivedMessage{
		InternalMsg:                      msg,
		Amount:                           msg.Amount.Nano(),
		LamportTime:                      msg.CreatedLT,
		FwdFee:                           msg.FwdFee.Nano(),
		GasFee:                           big.NewInt(0),
		TotalActionFees:                  big.NewInt(0),
		OutgoingInternalSentMessages:     make([]*SentMessage, 0),
		OutgoingInternalReceivedMessages: make([]*ReceivedMessage, 0),
	}
}

// AppendSentMessage records an outgoing internal message and its forward fee.
func (m *ReceivedMessage) AppendSentMessage(outgoingInternalMessage *tlb.InternalMessage) {
	messageSent := NewSentMessage(outgoingInternalMessage)
	m.OutgoingInternalSentMessages = append(m.OutgoingInternalSentMessages, &messageSent)
	m.TotalActionFees.Add(m.TotalActionFees, messageSent.FwdFee)
}

// Sum calculates the total of multiple big.Int values.
func Sum(values ...*big.Int) *big.Int {
	total := big.NewInt(0)
	for _, v := range values {
		total.Add(total, v)
	}
	return total
}

// TotalTransactionExecutionFee is everything the receiver paid to process
// the message: compute fee plus the forward fees of what it emitted.
func (m *ReceivedMessage) TotalTransactionExecutionFee() *big.Int {
	return Sum(m.GasFee, m.TotalActionFees)
}

// Status returns the delivery status of the outgoing messages.
func (m *ReceivedMessage) Status() MsgStatus {
	if len(m.OutgoingInternalSentMessages) == len(m.OutgoingInternalReceivedMessages) {
		return Finalized
	}
	if len(m.OutgoingInternalReceivedMessages) != 0 {
		return Cascading
	}
	return Received
}

// OutgoingAmount is the value carried by every message this one emitted.
func (m *ReceivedMessage) OutgoingAmount() *big.Int {
	base := big.NewInt(0)
	for _, sentMessage := range m.OutgoingInternalSentMessages {
		base.Add(base, sentMessage.Amount)
	}
	return base
}

// NetCreditResult is the inbound amount minus what was sent on.
func (m *ReceivedMessage) NetCreditResult() *big.Int {
	return big.NewInt(0).Sub(m.Amount, m.OutgoingAmount())
}

// Opcode returns the 32-bit prefix of the inbound body; ok is false for
// bodies shorter than an opcode.
func (m *ReceivedMessage) Opcode() (op uint32, ok bool) {
	return peekOpcode(m.InternalMsg.Body)
}

// OutcomeExitCode returns the first non-success exit code found in this message
// or any of its outgoing internal messages. If all messages succeeded, it returns
// the success exit code.
func (m *ReceivedMessage) OutcomeExitCode() tvm.ExitCode {
	if m == nil {
		return tvm.ExitCodeSuccess
	}

	stack := []*ReceivedMessage{m}

	for len(stack) > 0 {
		n := len(stack) - 1
		curr := stack[n]
		stack = stack[:n]

		if !curr.Success {
			return curr.ExitCode
		}

		for i := len(curr.OutgoingInternalReceivedMessages) - 1; i >= 0; i-- {
			stack = append(stack, curr.OutgoingInternalReceivedMessages[i])
		}
	}

	return tvm.ExitCodeSuccess
}

// TraceSucceeded recursively checks if this message
// and all its OutgoingInternalReceivedMessages succeeded.
func (m *ReceivedMessage) TraceSucceeded() bool {
	if !m.Success {
		return false
	}
	for _, msg := range m.OutgoingInternalReceivedMessages {
		if !msg.TraceSucceeded() {
			return false
		}
	}
	return true
}

// Flatten lists the trace breadth first, starting with m.
func (m *ReceivedMessage) Flatten() []*ReceivedMessage {
	out := []*ReceivedMessage{m}
	for i := 0; i < len(out); i++ {
		out = append(out, out[i].OutgoingInternalReceivedMessages...)
	}
	return out
}

// Filter selects the trace messages matching every predicate.
func (m *ReceivedMessage) Filter(predicates ...Predicate) []*ReceivedMessage {
	var out []*ReceivedMessage
	for _, rm := range m.Flatten() {
		matches := true
		for _, p := range predicates {
			if !p(rm) {
				matches = false
				break
			}
		}
		if matches {
			out = append(out, rm)
		}
	}
	return out
}

// Find returns the first trace message matching every predicate.
func (m *ReceivedMessage) Find(predicates ...Predicate) (*ReceivedMessage, bool) {
	found := m.Filter(predicates...)
	if len(found) == 0 {
		return nil, false
	}
	return found[0], true
}

func peekOpcode(body *cell.Cell) (uint32, bool) {
	if body == nil {
		return 0, false
	}
	s := body.BeginParse()
	if s.BitsLeft() < 32 {
		return 0, false
	}
	op, err := s.LoadUInt(32)
	if err != nil {
		return 0, false
	}
	return uint32(op), true
}
