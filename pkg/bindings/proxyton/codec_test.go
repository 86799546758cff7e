package proxyton

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/smartcontractkit/proxy-ton/pkg/ton/tvm"
)

func testAddr(b byte) *address.Address {
	data := make([]byte, 32)
	data[31] = b
	return address.NewAddress(0, 0, data)
}

func payload(text string) *cell.Cell {
	return cell.BeginCell().MustStoreStringSnake(text).EndCell()
}

func TestTransferRoundTrip(t *testing.T) {
	in := &TransferMessage{
		QueryID:          42,
		JettonAmount:     tlb.MustFromTON("5"),
		To:               testAddr(1),
		ResponseAddress:  testAddr(2),
		CustomPayload:    payload("custom"),
		ForwardTonAmount: tlb.MustFromTON("0.1"),
		ForwardPayload:   payload("forward"),
	}
	body, err := Encode(in)
	require.NoError(t, err)

	op, ok := PeekOpcode(body)
	require.True(t, ok)
	require.Equal(t, uint32(OpcodeTransfer), op)

	out, err := DecodeAs[*TransferMessage](body)
	require.NoError(t, err)
	assert.Equal(t, in.QueryID, out.QueryID)
	assert.Equal(t, in.JettonAmount.Nano(), out.JettonAmount.Nano())
	assert.True(t, in.To.Equals(out.To))
	assert.True(t, in.ResponseAddress.Equals(out.ResponseAddress))
	assert.Equal(t, in.CustomPayload.Hash(), out.CustomPayload.Hash())
	assert.Equal(t, in.ForwardTonAmount.Nano(), out.ForwardTonAmount.Nano())
	assert.Equal(t, in.ForwardPayload.Hash(), out.ForwardPayload.Hash())
}

func TestTransferWithoutOptionalFields(t *testing.T) {
	body, err := Encode(&TransferMessage{
		JettonAmount: tlb.MustFromTON("1"),
		To:           testAddr(1),
	})
	require.NoError(t, err)

	out, err := DecodeAs[*TransferMessage](body)
	require.NoError(t, err)
	assert.Nil(t, out.ResponseAddress)
	assert.Nil(t, out.CustomPayload)
	assert.Nil(t, out.ForwardPayload)
	assert.Equal(t, int64(0), out.ForwardTonAmount.Nano().Int64())
}

func TestTransferLayout(t *testing.T) {
	body, err := Encode(&TransferMessage{
		QueryID:          5,
		JettonAmount:     tlb.MustFromTON("1"),
		To:               testAddr(1),
		ForwardTonAmount: tlb.MustFromTON("0.1"),
		ForwardPayload:   payload("forward"),
	})
	require.NoError(t, err)

	expected := cell.BeginCell().
		MustStoreUInt(OpcodeTransfer, 32).
		MustStoreUInt(5, 64).
		MustStoreBigCoins(tlb.MustFromTON("1").Nano()).
		MustStoreAddr(testAddr(1)).
		MustStoreAddr(nil).
		MustStoreMaybeRef(nil).
		MustStoreBigCoins(tlb.MustFromTON("0.1").Nano()).
		MustStoreMaybeRef(payload("forward")).
		EndCell()
	require.Equal(t, expected.Hash(), body.Hash())

	// a response address spelled as addr_none decodes to nil
	out, err := DecodeAs[*TransferMessage](expected)
	require.NoError(t, err)
	require.Nil(t, out.ResponseAddress)
}

func TestExternalTransferRoundTrip(t *testing.T) {
	body, err := Encode(&ExternalTransferMessage{
		QueryID:       7,
		Amount:        tlb.MustFromTON("2"),
		ForwardAmount: tlb.MustFromTON("0.5"),
	})
	require.NoError(t, err)

	out, err := DecodeAs[*ExternalTransferMessage](body)
	require.NoError(t, err)
	require.Equal(t, uint64(7), out.QueryID)
	require.Nil(t, out.ResponseAddress)
	require.Nil(t, out.ForwardPayload)
	require.Equal(t, tlb.MustFromTON("0.5").Nano(), out.ForwardAmount.Nano())
}

func TestNewTransferNotificationDropsPayloadWithoutForwardAmount(t *testing.T) {
	n := NewTransferNotification(1, tlb.ZeroCoins, payload("ignored"))
	require.Nil(t, n.ForwardPayload)

	n = NewTransferNotification(1, tlb.MustFromTON("1"), payload("kept"))
	require.NotNil(t, n.ForwardPayload)

	body, err := Encode(n)
	require.NoError(t, err)
	out, err := DecodeAs[*TransferNotificationMessage](body)
	require.NoError(t, err)
	require.Equal(t, n.ForwardPayload.Hash(), out.ForwardPayload.Hash())
}

func TestDecodeMalformed(t *testing.T) {
	valid, err := Encode(&MintMessage{QueryID: 1, To: testAddr(9)})
	require.NoError(t, err)

	testCases := []struct {
		name     string
		body     *cell.Cell
		wrongOp  bool
		contains string
	}{
		{
			name:     "empty body",
			body:     cell.BeginCell().EndCell(),
			contains: "failed to load opcode",
		},
		{
			name:    "unknown opcode",
			body:    cell.BeginCell().MustStoreUInt(0xdeadbeef, 32).MustStoreUInt(0, 64).EndCell(),
			wrongOp: true,
		},
		{
			name:     "missing query id",
			body:     cell.BeginCell().MustStoreUInt(OpcodeExcesses, 32).MustStoreUInt(0, 16).EndCell(),
			contains: "failed to load QueryID",
		},
		{
			name:     "trailing bits",
			body:     cell.BeginCell().MustStoreBuilder(valid.ToBuilder()).MustStoreUInt(1, 1).EndCell(),
			contains: "trailing",
		},
		{
			name:     "trailing ref",
			body:     cell.BeginCell().MustStoreUInt(OpcodeExcesses, 32).MustStoreUInt(0, 64).MustStoreRef(payload("x")).EndCell(),
			contains: "trailing",
		},
		{
			name: "mint to addr_none",
			body: cell.BeginCell().
				MustStoreUInt(OpcodeMint, 32).
				MustStoreUInt(0, 64).
				MustStoreAddr(nil).
				EndCell(),
			contains: "to must be a standard address",
		},
		{
			name: "forward payload flag without ref",
			body: cell.BeginCell().
				MustStoreUInt(OpcodeTransferNotification, 32).
				MustStoreUInt(0, 64).
				MustStoreBigCoins(big.NewInt(1)).
				MustStoreBoolBit(true).
				EndCell(),
			contains: "failed to load ref for ForwardPayload",
		},
		{
			name: "ref without forward payload flag",
			body: cell.BeginCell().
				MustStoreUInt(OpcodeTransferNotification, 32).
				MustStoreUInt(0, 64).
				MustStoreBigCoins(big.NewInt(1)).
				MustStoreBoolBit(false).
				MustStoreRef(payload("stray")).
				EndCell(),
			contains: "trailing",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.body)
			require.ErrorIs(t, err, ErrMalformedMessage)
			if tc.wrongOp {
				require.ErrorIs(t, err, ErrUnknownOpcode)
				require.Equal(t, ErrorWrongOp, ExitCodeFor(err))
				return
			}
			require.Equal(t, ErrorInvalidOp, ExitCodeFor(err))
			require.ErrorContains(t, err, tc.contains)
		})
	}
}

func TestDecodeAsRejectsOtherOperation(t *testing.T) {
	body, err := Encode(&ExcessesMessage{QueryID: 3})
	require.NoError(t, err)

	_, err = DecodeAs[*TransferMessage](body)
	require.ErrorIs(t, err, ErrMalformedMessage)
}

func TestEncodeRejectsOversizedCoins(t *testing.T) {
	tooWide := new(big.Int).Add(MaxCoins, big.NewInt(1))
	_, err := Encode(&TransferMessage{
		JettonAmount: tlb.FromNanoTON(tooWide),
		To:           testAddr(1),
	})
	require.Error(t, err)

	_, err = Encode(&TransferMessage{
		JettonAmount: tlb.FromNanoTON(MaxCoins),
		To:           testAddr(1),
	})
	require.NoError(t, err)
}

func TestPeekOpcodeShortBody(t *testing.T) {
	_, ok := PeekOpcode(cell.BeginCell().EndCell())
	require.False(t, ok)
	_, ok = PeekOpcode(nil)
	require.False(t, ok)
}

func TestExitCodeFor(t *testing.T) {
	require.Equal(t, tvm.ExitCodeSuccess, ExitCodeFor(nil))
	require.Equal(t, ErrorNotOwner, ExitCodeFor(ErrUnauthorized))
	require.Equal(t, ErrorNotEnoughTon, ExitCodeFor(ErrInsufficientValue))
	require.Equal(t, ErrorNotEnoughTon, ExitCodeFor(ErrValueMismatch))
	require.Equal(t, ErrorWrongWorkchain, ExitCodeFor(fmt.Errorf("mint: %w", ErrWrongWorkchain)))
	require.Equal(t, ErrorNotEnoughTon, Fail(ErrInsufficientValue).Code)
}

func TestWalletDataRoundTrip(t *testing.T) {
	c, err := WalletData{Owner: testAddr(1), Minter: testAddr(2)}.ToCell()
	require.NoError(t, err)

	d, err := LoadWalletData(c)
	require.NoError(t, err)
	require.True(t, d.Owner.Equals(testAddr(1)))
	require.True(t, d.Minter.Equals(testAddr(2)))

	_, err = LoadWalletData(cell.BeginCell().EndCell())
	require.Error(t, err)
}

func TestMinterDataRoundTrip(t *testing.T) {
	content := payload("content")
	code := payload("code")
	c, err := MinterData{Content: content, WalletCode: code}.ToCell()
	require.NoError(t, err)

	d, err := LoadMinterData(c)
	require.NoError(t, err)
	require.Equal(t, content.Hash(), d.Content.Hash())
	require.Equal(t, code.Hash(), d.WalletCode.Hash())
}
