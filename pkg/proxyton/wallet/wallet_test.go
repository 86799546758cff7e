package wallet

import (
	"context"
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smartcontractkit/chainlink-common/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/smartcontractkit/proxy-ton/pkg/bindings/proxyton"
	"github.com/smartcontractkit/proxy-ton/pkg/config"
	"github.com/smartcontractkit/proxy-ton/pkg/ton/tvm"
)

func testAddr(b byte) *address.Address {
	data := make([]byte, 32)
	data[31] = b
	return address.NewAddress(0, 0, data)
}

var (
	owner     = testAddr(1)
	minter    = testAddr(2)
	recipient = testAddr(3)
	response  = testAddr(4)
	stranger  = testAddr(5)
)

func ton(s string) *big.Int {
	return tlb.MustFromTON(s).Nano()
}

func coins(s string) tlb.Coins {
	return tlb.MustFromTON(s)
}

func newWallet(t *testing.T, metrics *Metrics) *Wallet {
	t.Helper()
	w, err := New(logger.Test(t), proxyton.WalletData{Owner: owner, Minter: minter}, config.Defaults().Fees, metrics)
	require.NoError(t, err)
	return w
}

func encode(t *testing.T, m proxyton.Message) *cell.Cell {
	t.Helper()
	body, err := proxyton.Encode(m)
	require.NoError(t, err)
	return body
}

func mustEncode(m proxyton.Message) *cell.Cell {
	body, err := proxyton.Encode(m)
	if err != nil {
		panic(err)
	}
	return body
}

func payload(text string) *cell.Cell {
	return cell.BeginCell().MustStoreStringSnake(text).EndCell()
}

type expectedMessage struct {
	to     *address.Address
	value  *big.Int
	opcode uint32 // 0 for a bare value transfer
}

func TestProcessTransfer(t *testing.T) {
	testCases := []struct {
		name     string
		sender   *address.Address
		value    *big.Int
		msg      *proxyton.TransferMessage
		state    State
		role     string
		expected []expectedMessage
	}{
		{
			name:   "owner notified move",
			sender: owner,
			value:  ton("10"),
			msg: &proxyton.TransferMessage{
				QueryID: 1, JettonAmount: coins("5"), To: recipient, ResponseAddress: response,
				ForwardTonAmount: coins("1"), ForwardPayload: payload("hello"),
			},
			state: Notify,
			role:  "owner",
			expected: []expectedMessage{
				{to: recipient, value: ton("1"), opcode: proxyton.OpcodeTransferNotification},
				{to: recipient, value: ton("5")},
				{to: response, value: ton("3.995"), opcode: proxyton.OpcodeExcesses},
			},
		},
		{
			name:   "owner plain forward refunds the remainder",
			sender: owner,
			value:  ton("0.5"),
			msg: &proxyton.TransferMessage{
				QueryID: 2, JettonAmount: coins("0.2"), To: recipient, ResponseAddress: response,
			},
			state: PlainForward,
			role:  "owner",
			expected: []expectedMessage{
				{to: recipient, value: ton("0.2")},
				{to: response, value: ton("0.295"), opcode: proxyton.OpcodeExcesses},
			},
		},
		{
			name:   "owner exact funding emits no refund",
			sender: owner,
			value:  ton("0.2"),
			msg: &proxyton.TransferMessage{
				QueryID: 3, JettonAmount: coins("0.2"), To: recipient, ResponseAddress: response,
			},
			state: PlainForward,
			role:  "owner",
			expected: []expectedMessage{
				{to: recipient, value: ton("0.2")},
			},
		},
		{
			name:   "third party exact match is notified",
			sender: stranger,
			value:  ton("4"),
			msg: &proxyton.TransferMessage{
				QueryID: 4, JettonAmount: coins("1"), To: recipient, ResponseAddress: response,
				ForwardTonAmount: coins("3"),
			},
			state: Notify,
			role:  "third-party",
			expected: []expectedMessage{
				{to: recipient, value: ton("3"), opcode: proxyton.OpcodeTransferNotification},
				{to: recipient, value: ton("1")},
			},
		},
		{
			name:   "third party overfunding is refunded to the sender",
			sender: stranger,
			value:  ton("5"),
			msg: &proxyton.TransferMessage{
				QueryID: 5, JettonAmount: coins("1"), To: recipient, ResponseAddress: response,
				ForwardTonAmount: coins("3"),
			},
			state: RefundOnly,
			role:  "third-party",
			expected: []expectedMessage{
				{to: stranger, value: ton("4.995"), opcode: proxyton.OpcodeExcesses},
			},
		},
		{
			name:   "missing response address refunds the sender",
			sender: owner,
			value:  ton("2"),
			msg: &proxyton.TransferMessage{
				QueryID: 6, JettonAmount: coins("1"), To: recipient,
			},
			state: PlainForward,
			role:  "owner",
			expected: []expectedMessage{
				{to: recipient, value: ton("1")},
				{to: owner, value: ton("0.995"), opcode: proxyton.OpcodeExcesses},
			},
		},
		{
			name:   "zero amounts only refund",
			sender: owner,
			value:  ton("1"),
			msg: &proxyton.TransferMessage{
				QueryID: 7, To: recipient, ResponseAddress: response,
			},
			state: PlainForward,
			role:  "owner",
			expected: []expectedMessage{
				{to: response, value: ton("0.995"), opcode: proxyton.OpcodeExcesses},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := newWallet(t, nil)
			res, err := w.Process(t.Context(), Inbound{Sender: tc.sender, Value: tc.value, Body: encode(t, tc.msg)})
			require.NoError(t, err)
			require.Equal(t, tc.state, res.State)
			require.Equal(t, []State{Received, Authorized, Reconciled, tc.state, Done}, res.Path)
			require.Equal(t, tc.role, res.Role.String())
			require.NotNil(t, res.Decision)

			require.Len(t, res.Messages, len(tc.expected))
			emitted := big.NewInt(0)
			for i, exp := range tc.expected {
				m := res.Messages[i]
				assert.True(t, exp.to.Equals(m.DstAddr), "message %d goes to %s", i, m.DstAddr)
				assert.Equal(t, 0, exp.value.Cmp(m.Amount.Nano()), "message %d carries %s", i, m.Amount.String())
				assert.False(t, m.Bounce)
				op, ok := proxyton.PeekOpcode(m.Body)
				if exp.opcode == 0 {
					assert.False(t, ok)
				} else {
					assert.True(t, ok)
					assert.Equal(t, exp.opcode, op)
				}
				emitted.Add(emitted, m.Amount.Nano())
			}
			require.LessOrEqual(t, emitted.Cmp(tc.value), 0)
		})
	}
}

func TestNotificationBody(t *testing.T) {
	w := newWallet(t, nil)
	custom := payload("custom")
	res, err := w.Process(t.Context(), Inbound{
		Sender: owner,
		Value:  ton("10"),
		Body: encode(t, &proxyton.TransferMessage{
			QueryID: 77, JettonAmount: coins("5"), To: recipient, ResponseAddress: response,
			CustomPayload: custom, ForwardTonAmount: coins("1"), ForwardPayload: payload("forward"),
		}),
	})
	require.NoError(t, err)
	require.Len(t, res.Messages, 3)

	notification, err := proxyton.DecodeAs[*proxyton.TransferNotificationMessage](res.Messages[0].Body)
	require.NoError(t, err)
	require.Equal(t, uint64(77), notification.QueryID)
	require.Equal(t, ton("1"), notification.ForwardTonAmount.Nano())
	require.Equal(t, payload("forward").Hash(), notification.ForwardPayload.Hash())

	require.Equal(t, custom.Hash(), res.Messages[1].Body.Hash())

	excesses, err := proxyton.DecodeAs[*proxyton.ExcessesMessage](res.Messages[2].Body)
	require.NoError(t, err)
	require.Equal(t, uint64(77), excesses.QueryID)
}

func TestProcessRejects(t *testing.T) {
	testCases := []struct {
		name   string
		sender *address.Address
		value  *big.Int
		body   *cell.Cell
		code   tvm.ExitCode
		kind   error
	}{
		{
			name:   "owner underfunding",
			sender: owner,
			value:  ton("0.5"),
			body: mustEncode(&proxyton.TransferMessage{
				JettonAmount: coins("5"), To: recipient, ResponseAddress: response, ForwardTonAmount: coins("1"),
			}),
			code: proxyton.ErrorNotEnoughTon,
			kind: proxyton.ErrInsufficientValue,
		},
		{
			name:   "third party mismatch too small to refund",
			sender: stranger,
			value:  ton("0.004"),
			body: mustEncode(&proxyton.TransferMessage{
				JettonAmount: coins("1"), To: recipient, ResponseAddress: response,
			}),
			code: proxyton.ErrorNotEnoughTon,
			kind: proxyton.ErrValueMismatch,
		},
		{
			name:   "mint sent to a wallet",
			sender: owner,
			value:  ton("1"),
			body:   mustEncode(&proxyton.MintMessage{To: owner}),
			code:   proxyton.ErrorNotOwner,
			kind:   proxyton.ErrUnauthorized,
		},
		{
			name:   "unknown opcode",
			sender: owner,
			value:  ton("1"),
			body:   cell.BeginCell().MustStoreUInt(0xdeadbeef, 32).MustStoreUInt(0, 64).EndCell(),
			code:   proxyton.ErrorWrongOp,
			kind:   proxyton.ErrUnknownOpcode,
		},
		{
			name:   "truncated transfer",
			sender: owner,
			value:  ton("1"),
			body:   cell.BeginCell().MustStoreUInt(proxyton.OpcodeTransfer, 32).MustStoreUInt(0, 64).EndCell(),
			code:   proxyton.ErrorInvalidOp,
			kind:   proxyton.ErrMalformedMessage,
		},
		{
			name:   "short body",
			sender: owner,
			value:  ton("1"),
			body:   cell.BeginCell().MustStoreUInt(1, 8).EndCell(),
			code:   proxyton.ErrorInvalidOp,
			kind:   proxyton.ErrMalformedMessage,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := newWallet(t, nil)
			res, err := w.Process(t.Context(), Inbound{Sender: tc.sender, Value: tc.value, Body: tc.body})
			require.Error(t, err)
			require.ErrorIs(t, err, tc.kind)
			require.Equal(t, tc.code, tvm.CodeOf(err))
			require.Equal(t, Rejected, res.State)
			require.Equal(t, Rejected, res.Path[len(res.Path)-1])
			require.Empty(t, res.Messages)
		})
	}
}

func TestProcessNonTransfers(t *testing.T) {
	testCases := []struct {
		name    string
		body    *cell.Cell
		bounced bool
	}{
		{name: "nil body"},
		{name: "empty body", body: cell.BeginCell().EndCell()},
		{name: "excesses", body: mustEncode(&proxyton.ExcessesMessage{QueryID: 9})},
		{
			name: "notification from another proxy wallet",
			body: mustEncode(proxyton.NewTransferNotification(9, tlb.ZeroCoins, nil)),
		},
		{name: "bounced message", body: cell.BeginCell().MustStoreUInt(proxyton.OpcodeBounced, 32).EndCell(), bounced: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := newWallet(t, nil)
			res, err := w.Process(t.Context(), Inbound{Sender: stranger, Value: ton("1"), Body: tc.body, Bounced: tc.bounced})
			require.NoError(t, err)
			require.Equal(t, Done, res.State)
			require.Equal(t, []State{Received, Done}, res.Path)
			require.Nil(t, res.Decision)
			require.Empty(t, res.Messages)
		})
	}
}

func TestProcessExternalTransfer(t *testing.T) {
	w := newWallet(t, nil)

	t.Run("deposit is routed to the owner", func(t *testing.T) {
		res, err := w.Process(t.Context(), Inbound{
			Sender: stranger,
			Value:  ton("1.003"),
			Body:   encode(t, &proxyton.ExternalTransferMessage{QueryID: 1, Amount: coins("1")}),
		})
		require.NoError(t, err)
		require.Equal(t, PlainForward, res.State)
		require.Len(t, res.Messages, 1)
		require.True(t, owner.Equals(res.Messages[0].DstAddr))
		require.Equal(t, ton("1"), res.Messages[0].Amount.Nano())
	})

	t.Run("owner deposits are held to third-party rules", func(t *testing.T) {
		res, err := w.Process(t.Context(), Inbound{
			Sender: owner,
			Value:  ton("3"),
			Body: encode(t, &proxyton.ExternalTransferMessage{
				QueryID: 2, Amount: coins("1"), ResponseAddress: response, ForwardAmount: coins("1"),
			}),
		})
		require.NoError(t, err)
		require.Equal(t, RefundOnly, res.State)
		require.Equal(t, "third-party", res.Role.String())
		require.Len(t, res.Messages, 1)
		require.True(t, owner.Equals(res.Messages[0].DstAddr))
		require.Equal(t, ton("2.995"), res.Messages[0].Amount.Nano())
	})

	t.Run("notified deposit", func(t *testing.T) {
		res, err := w.Process(t.Context(), Inbound{
			Sender: stranger,
			Value:  ton("2"),
			Body: encode(t, &proxyton.ExternalTransferMessage{
				QueryID: 3, Amount: coins("1.5"), ResponseAddress: response, ForwardAmount: coins("0.5"), ForwardPayload: payload("memo"),
			}),
		})
		require.NoError(t, err)
		require.Equal(t, Notify, res.State)
		require.Len(t, res.Messages, 2)
		notification, err := proxyton.DecodeAs[*proxyton.TransferNotificationMessage](res.Messages[0].Body)
		require.NoError(t, err)
		require.Equal(t, ton("0.5"), notification.ForwardTonAmount.Nano())
		require.Equal(t, ton("0.5"), res.Messages[0].Amount.Nano())
		require.Equal(t, ton("1.5"), res.Messages[1].Amount.Nano())
	})
}

func TestProcessIsStateless(t *testing.T) {
	w := newWallet(t, nil)
	in := Inbound{
		Sender: stranger,
		Value:  ton("4"),
		Body: encode(t, &proxyton.TransferMessage{
			JettonAmount: coins("1"), To: recipient, ResponseAddress: response, ForwardTonAmount: coins("3"),
		}),
	}
	first, err := w.Process(t.Context(), in)
	require.NoError(t, err)
	second, err := w.Process(t.Context(), in)
	require.NoError(t, err)
	require.Equal(t, first.State, second.State)
	require.Len(t, second.Messages, len(first.Messages))
	for i := range first.Messages {
		require.Equal(t, first.Messages[i].Amount.Nano(), second.Messages[i].Amount.Nano())
		require.Equal(t, first.Messages[i].Body.Hash(), second.Messages[i].Body.Hash())
	}
	require.True(t, owner.Equals(w.Owner()))
	require.True(t, minter.Equals(w.Minter()))
}

func TestNew(t *testing.T) {
	_, err := New(logger.Test(t), proxyton.WalletData{Minter: minter}, config.Defaults().Fees, nil)
	require.Error(t, err)

	fees := config.Defaults().Fees
	fees.MinFeeMargin = config.MustParseTON("0.001")
	_, err = New(logger.Test(t), proxyton.WalletData{Owner: owner, Minter: minter}, fees, nil)
	require.ErrorContains(t, err, "invalid fees")
}

func TestMetrics(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	w := newWallet(t, metrics)
	ctx := context.Background()

	transfer := func(sender *address.Address, value string, jetton, fwd string) {
		_, _ = w.Process(ctx, Inbound{
			Sender: sender,
			Value:  ton(value),
			Body: encode(t, &proxyton.TransferMessage{
				JettonAmount: coins(jetton), To: recipient, ResponseAddress: response, ForwardTonAmount: coins(fwd),
			}),
		})
	}
	transfer(owner, "10", "5", "1")    // notify with refund
	transfer(owner, "0.2", "0.2", "0") // plain, no refund
	transfer(stranger, "3", "1", "1")  // refund only
	transfer(owner, "0.5", "5", "1")   // rejected

	// rejected before reconciliation, so not counted as transfers
	for _, body := range []*cell.Cell{
		encode(t, &proxyton.MintMessage{To: owner}),
		cell.BeginCell().MustStoreUInt(0xdeadbeef, 32).MustStoreUInt(0, 64).EndCell(),
		cell.BeginCell().MustStoreUInt(proxyton.OpcodeTransfer, 32).EndCell(),
	} {
		_, err := w.Process(ctx, Inbound{Sender: owner, Value: ton("1"), Body: body})
		require.Error(t, err)
	}

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.transfers.WithLabelValues("notify")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.transfers.WithLabelValues("plain_forward")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.transfers.WithLabelValues("refund_only")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.transfers.WithLabelValues("rejected")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.refunds), 0)
	assert.Equal(t, 4, testutil.CollectAndCount(metrics.transfers))
}

func TestStateString(t *testing.T) {
	require.Equal(t, "RefundOnly", RefundOnly.String())
	require.Equal(t, "State(42)", State(42).String())
	require.True(t, Rejected.Terminal())
	require.False(t, Reconciled.Terminal())
}
