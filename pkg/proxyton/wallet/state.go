package wallet

import "fmt"

// State is a step of the transfer state machine.
//
//	Received -> Authorized -> Reconciled -> {Notify, PlainForward, RefundOnly, Rejected} -> Done
//
// Decode failures go from Received straight to Rejected. Messages that are
// not transfers (top-ups, excesses, bounces) go from Received to Done.
type State int

const (
	Received State = iota
	Authorized
	Reconciled
	Notify
	PlainForward
	RefundOnly
	Rejected
	Done
)

func (s State) String() string {
	switch s {
	case Received:
		return "Received"
	case Authorized:
		return "Authorized"
	case Reconciled:
		return "Reconciled"
	case Notify:
		return "Notify"
	case PlainForward:
		return "PlainForward"
	case RefundOnly:
		return "RefundOnly"
	case Rejected:
		return "Rejected"
	case Done:
		return "Done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether s ends the processing of a transfer.
func (s State) Terminal() bool {
	switch s {
	case Notify, PlainForward, RefundOnly, Rejected, Done:
		return true
	default:
		return false
	}
}
