package proxyton

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/smartcontractkit/proxy-ton/pkg/ton/tvm"
)

// Proxy TON opcodes. transfer, transfer_notification and excesses keep the
// Jetton (TEP-74) values so existing tooling recognizes them.
const (
	OpcodeMint                 = 0x642b7d07
	OpcodeTransfer             = 0x0f8a7ea5
	OpcodeTransferNotification = 0x7362d09c
	OpcodeExcesses             = 0xd53276db
	OpcodeExternalTransfer     = 0x3e5e8d4e

	// Prefix of the body of a bounced message.
	OpcodeBounced = 0xffffffff
)

const (
	ErrorInvalidOp      = tvm.ExitCodeJettonInvalidOp
	ErrorWrongOp        = tvm.ExitCodeJettonWrongOp
	ErrorNotOwner       = tvm.ExitCodeJettonNotOwner
	ErrorNotEnoughTon   = tvm.ExitCodeJettonNotEnoughTon
	ErrorWrongWorkchain = tvm.ExitCodeJettonWrongWorkchain
)

var (
	// ErrMalformedMessage is returned when a body does not match the layout
	// of its opcode. The inbound transaction fails.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrUnknownOpcode is a malformed message whose opcode has no receiver.
	ErrUnknownOpcode = fmt.Errorf("%w: unknown opcode", ErrMalformedMessage)
	// ErrUnauthorized is returned when an operation reaches a contract that
	// does not serve it for this sender. The inbound transaction fails.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValueMismatch marks a third-party transfer whose attached value
	// diverges from the requested amounts. It is recovered with a refund.
	ErrValueMismatch = errors.New("value mismatch")
	// ErrInsufficientValue is returned when the attached value cannot cover
	// what the owner asked to forward. The inbound transaction fails.
	ErrInsufficientValue = errors.New("insufficient value")
	// ErrWrongWorkchain is returned when an address lives on a workchain
	// the contract does not serve.
	ErrWrongWorkchain = errors.New("wrong workchain")
)

// MaxCoins is the largest amount representable as VarUInteger 16.
var MaxCoins = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 120), big.NewInt(1))

// ExitCodeFor maps an error kind to the exit code a contract fails with.
func ExitCodeFor(err error) tvm.ExitCode {
	switch {
	case err == nil:
		return tvm.ExitCodeSuccess
	case errors.Is(err, ErrUnknownOpcode):
		return ErrorWrongOp
	case errors.Is(err, ErrMalformedMessage):
		return ErrorInvalidOp
	case errors.Is(err, ErrUnauthorized):
		return ErrorNotOwner
	case errors.Is(err, ErrInsufficientValue), errors.Is(err, ErrValueMismatch):
		return ErrorNotEnoughTon
	case errors.Is(err, ErrWrongWorkchain):
		return ErrorWrongWorkchain
	default:
		return tvm.CodeOf(err)
	}
}

// Fail wraps err into the exit error a contract aborts with.
func Fail(err error) *tvm.ExitError {
	return tvm.Throw(ExitCodeFor(err), err)
}
