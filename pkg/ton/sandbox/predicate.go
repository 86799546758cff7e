package sandbox

import (
	"github.com/xssnick/tonutils-go/address"
)

// Predicate matches a processed message in a trace.
type Predicate func(*ReceivedMessage) bool

func From(addr *address.Address) Predicate {
	return func(m *ReceivedMessage) bool {
		return m.InternalMsg.SrcAddr != nil && m.InternalMsg.SrcAddr.Equals(addr)
	}
}

func To(addr *address.Address) Predicate {
	return func(m *ReceivedMessage) bool {
		return m.InternalMsg.DstAddr != nil && m.InternalMsg.DstAddr.Equals(addr)
	}
}

func Op(op uint32) Predicate {
	return func(m *ReceivedMessage) bool {
		got, ok := m.Opcode()
		return ok && got == op
	}
}

// NoOp matches messages whose body carries no opcode (plain value transfers
// and deployments).
func NoOp() Predicate {
	return func(m *ReceivedMessage) bool {
		_, ok := m.Opcode()
		return !ok
	}
}

func Success(success bool) Predicate {
	return func(m *ReceivedMessage) bool {
		return m.Success == success
	}
}

func Deployed() Predicate {
	return func(m *ReceivedMessage) bool {
		return m.Deployed
	}
}

func Bounced() Predicate {
	return func(m *ReceivedMessage) bool {
		return m.InternalMsg.Bounced
	}
}
