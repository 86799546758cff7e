package tvm

import (
	"fmt"
)

// ExitCode is returned by a contract to report the reason a transaction
// failed or terminated abnormally. Reference lists:
// - TON documentation: https://docs.ton.org/v3/documentation/tvm/tvm-exit-codes
// - Jetton reference contracts (errors.fc) for the 7xx range
type ExitCode int32

// IsSuccessfulDeployment reports whether a deployment message (empty body)
// left the contract initialized. Contracts without an empty-body receiver
// still end up deployed even though they answer with an unmatched opcode.
func (c ExitCode) IsSuccessfulDeployment() bool {
	return c == ExitCodeSuccess || c == ExitCodeTolkUnmatchedOpcode
}

// IsSuccess reports whether the compute and action phases both succeeded.
func (c ExitCode) IsSuccess() bool {
	return c == ExitCodeSuccess || c == ExitCodeSuccessVariant
}

const (
	/// TVM exit codes

	ExitCodeSuccess                   ExitCode = 0  // Standard successful execution exit code.
	ExitCodeSuccessVariant            ExitCode = 1  // Alternative successful execution exit code. Reserved, but does not occur.
	ExitCodeIntegerOverflow           ExitCode = 4  // Integer overflow.
	ExitCodeIntegerOutOfExpectedRange ExitCode = 5  // Range check error: an integer is out of its expected range.
	ExitCodeCellOverflow              ExitCode = 8  // Cell overflow.
	ExitCodeCellUnderflow             ExitCode = 9  // Cell underflow.
	ExitCodeUnknownError              ExitCode = 11 // Described in TVM docs as “Unknown error, may be thrown by user programs.”
	ExitCodeOutOfGasError             ExitCode = 13 // Out of gas error.
	ExitCodeActionListIsInvalid       ExitCode = 32 // Action list is invalid.
	ExitCodeNotEnoughToncoin          ExitCode = 37 // Not enough Toncoin.
	ExitCodeCannotProcessAMessage     ExitCode = 40 // Cannot process a message: not enough funds, the message is too large, or its Merkle depth is too big.

	/// Tolk exit codes

	ExitCodeTolkUnmatchedOpcode ExitCode = 63 // Tolk compiler: Unmatched opcode. Thrown by Tolk when it receives an opcode that it does not recognize.

	/// Jetton exit codes

	ExitCodeJettonInvalidOp      ExitCode = 72     // Message body could not be parsed for its opcode.
	ExitCodeJettonNotOwner       ExitCode = 73     // Sender is not allowed to call this operation.
	ExitCodeJettonNotEnoughTon   ExitCode = 709    // Attached value does not cover the requested amounts.
	ExitCodeJettonWrongOp        ExitCode = 0xffff // Opcode is not handled by the receiver.
	ExitCodeJettonWrongWorkchain ExitCode = 333    // Address belongs to a different workchain.
)

// Describe provides human-readable descriptions for the exit codes above.
func (c ExitCode) Describe() string {
	switch c {
	case ExitCodeSuccess:
		return "Success"
	case ExitCodeSuccessVariant:
		return "Success (variant)"
	case ExitCodeIntegerOverflow:
		return "Integer overflow"
	case ExitCodeIntegerOutOfExpectedRange:
		return "Integer out of expected range"
	case ExitCodeCellOverflow:
		return "Cell overflow"
	case ExitCodeCellUnderflow:
		return "Cell underflow"
	case ExitCodeUnknownError:
		return "'Unknown' error"
	case ExitCodeOutOfGasError:
		return "Out of gas error"
	case ExitCodeActionListIsInvalid:
		return "Action list is invalid"
	case ExitCodeNotEnoughToncoin:
		return "Not enough Toncoin"
	case ExitCodeCannotProcessAMessage:
		return "Cannot process a message"
	case ExitCodeTolkUnmatchedOpcode:
		return "Unmatched opcode"
	case ExitCodeJettonInvalidOp:
		return "Invalid op"
	case ExitCodeJettonNotOwner:
		return "Not owner"
	case ExitCodeJettonNotEnoughTon:
		return "Not enough TON attached"
	case ExitCodeJettonWrongOp:
		return "Wrong op"
	case ExitCodeJettonWrongWorkchain:
		return "Wrong workchain"
	default:
		return fmt.Sprintf("Non-standard exit code: %d", c)
	}
}
