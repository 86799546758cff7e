// Package sandbox is an in-memory blockchain that runs host implemented
// contracts. It delivers internal messages one at a time, charges flat fees,
// deploys contracts from StateInit and bounces failed messages, producing the
// same trace model a live network client would.
package sandbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton/wallet"
	"github.com/xssnick/tonutils-go/tvm/cell"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/smartcontractkit/proxy-ton/pkg/config"
	"github.com/smartcontractkit/proxy-ton/pkg/ton/contract"
	"github.com/smartcontractkit/proxy-ton/pkg/ton/tvm"
)

const bouncedPrefix = 0xffffffff

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountNotActive = errors.New("account is not active")
)

type account struct {
	addr     *address.Address
	balance  *big.Int
	code     *cell.Cell
	data     *cell.Cell
	active   bool
	lastLT   uint64
	contract Contract
	factory  Factory
}

func (a *account) state() AccountState {
	return AccountState{
		Address: a.addr,
		Balance: new(big.Int).Set(a.balance),
		Code:    a.code,
		Data:    a.data,
		Active:  a.active,
		LastLT:  a.lastLT,
	}
}

type delivery struct {
	msg    *tlb.InternalMessage
	parent *ReceivedMessage
}

type Blockchain struct {
	lggr      logger.Logger
	workchain int8
	cfg       config.Sandbox

	mu        sync.Mutex
	accounts  map[string]*account
	factories map[string]Factory
	lt        uint64
	now       func() time.Time
}

func New(lggr logger.Logger, cfg *config.Config) *Blockchain {
	return &Blockchain{
		lggr:      logger.Named(lggr, "Sandbox"),
		workchain: cfg.WorkchainID(),
		cfg:       cfg.Sandbox,
		accounts:  make(map[string]*account),
		factories: make(map[string]Factory),
		now:       time.Now,
	}
}

func (b *Blockchain) Workchain() int8 {
	return b.workchain
}

// RegisterCode binds a code cell to the contract implementing it. Accounts
// deployed with that code are instantiated through f.
func (b *Blockchain) RegisterCode(code *cell.Cell, f Factory) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.factories[hex.EncodeToString(code.Hash())] = f
}

// Treasury returns the funded wallet registered under name, creating it on
// first use.
func (b *Blockchain) Treasury(name string) *Treasury {
	b.mu.Lock()
	defer b.mu.Unlock()

	seed := sha256.Sum256([]byte("treasury:" + name))
	addr := address.NewAddress(0, byte(b.workchain), seed[:])
	if _, ok := b.accounts[addr.StringRaw()]; !ok {
		b.accounts[addr.StringRaw()] = &account{
			addr:     addr,
			balance:  b.cfg.TreasuryBalance.Nano(),
			active:   true,
			contract: treasuryContract{},
		}
		b.lggr.Debugw("Created treasury", "name", name, "address", addr.String())
	}
	return &Treasury{Name: name, Address: addr, Chain: b}
}

// Account returns a snapshot of the account at addr.
func (b *Blockchain) Account(addr *address.Address) (AccountState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[addr.StringRaw()]
	if !ok {
		return AccountState{}, fmt.Errorf("%w: %s", ErrAccountNotFound, addr.String())
	}
	return acc.state(), nil
}

// Balance returns the balance of addr, zero for unknown accounts.
func (b *Blockchain) Balance(addr *address.Address) *big.Int {
	state, err := b.Account(addr)
	if err != nil {
		return big.NewInt(0)
	}
	return state.Balance
}

// Accounts lists every known account ordered by address.
func (b *Blockchain) Accounts() []AccountState {
	b.mu.Lock()
	defer b.mu.Unlock()

	accounts := maps.Values(b.accounts)
	slices.SortFunc(accounts, func(a, b *account) int {
		return strings.Compare(a.addr.StringRaw(), b.addr.StringRaw())
	})

	out := make([]AccountState, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, acc.state())
	}
	return out
}

// RunGetMethod calls a get-method of an active contract.
func (b *Blockchain) RunGetMethod(ctx context.Context, addr *address.Address, method string, args ...any) (*ExecutionResult, error) {
	b.mu.Lock()
	acc, ok := b.accounts[addr.StringRaw()]
	var state AccountState
	var handler GetMethodHandler
	if ok {
		state = acc.state()
		handler, _ = acc.contract.(GetMethodHandler)
	}
	b.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr.String())
	}
	if !state.Active {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotActive, addr.String())
	}
	if handler == nil {
		return nil, tvm.Throw(tvm.ExitCodeUnknownError, fmt.Errorf("method %s not found", method))
	}
	stack, err := handler.GetMethod(ctx, state, method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run get method %s: %w", method, err)
	}
	return NewExecutionResult(stack...), nil
}

// Send makes the account at from emit msg and processes the whole resulting
// cascade. Messages are delivered in the order they were emitted, so each
// account sees its inbound messages in emission order. The returned trace
// starts at the delivery of msg.
func (b *Blockchain) Send(ctx context.Context, from *address.Address, msg *wallet.Message) (*ReceivedMessage, error) {
	if msg == nil || msg.InternalMessage == nil {
		return nil, errors.New("nil message")
	}
	if msg.InternalMessage.DstAddr == nil {
		return nil, errors.New("message has no destination")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sender, ok := b.accounts[from.StringRaw()]
	if !ok || !sender.active {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotActive, from.String())
	}

	out := *msg.InternalMessage
	out.SrcAddr = from
	if err := b.debit(sender, &out); err != nil {
		return nil, err
	}

	queue := []delivery{{msg: &out}}
	var root *ReceivedMessage
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return root, err
		}
		next := queue[0]
		queue = queue[1:]

		rm := b.deliver(ctx, next.msg)
		if next.parent == nil {
			root = rm
		} else {
			next.parent.OutgoingInternalReceivedMessages = append(next.parent.OutgoingInternalReceivedMessages, rm)
		}
		for _, sent := range rm.OutgoingInternalSentMessages {
			queue = append(queue, delivery{msg: sent.InternalMsg, parent: rm})
		}
	}
	return root, nil
}

// debit stamps an outbound message and charges its value and forward fee to
// the sending account.
func (b *Blockchain) debit(acc *account, msg *tlb.InternalMessage) error {
	fwdFee := b.cfg.ForwardFee.Nano()
	total := new(big.Int).Add(msg.Amount.Nano(), fwdFee)
	if acc.balance.Cmp(total) < 0 {
		return tvm.Throw(tvm.ExitCodeNotEnoughToncoin,
			fmt.Errorf("balance %s of %s cannot cover %s", tlb.FromNanoTON(acc.balance).String(), acc.addr.String(), tlb.FromNanoTON(total).String()))
	}
	acc.balance.Sub(acc.balance, total)

	b.lt++
	msg.IHRDisabled = true
	msg.FwdFee = tlb.FromNanoTON(fwdFee)
	msg.CreatedLT = b.lt
	msg.CreatedAt = uint32(b.now().Unix())
	return nil
}

func (b *Blockchain) getOrCreate(addr *address.Address) *account {
	acc, ok := b.accounts[addr.StringRaw()]
	if !ok {
		acc = &account{addr: addr, balance: big.NewInt(0)}
		b.accounts[addr.StringRaw()] = acc
	}
	return acc
}

func (b *Blockchain) deliver(ctx context.Context, msg *tlb.InternalMessage) *ReceivedMessage {
	rm := newReceivedMessage(msg)
	acc := b.getOrCreate(msg.DstAddr)
	b.lt++
	acc.lastLT = b.lt
	acc.balance.Add(acc.balance, msg.Amount.Nano())

	if !acc.active && msg.StateInit != nil {
		if err := b.deploy(acc, msg.StateInit); err != nil {
			b.lggr.Debugw("StateInit rejected", "address", acc.addr.String(), "err", err)
		} else {
			rm.Deployed = true
		}
	}

	if !acc.active {
		// no code to run: the value stays unless the sender asked for a bounce
		if msg.Bounce {
			b.fail(rm, acc, tvm.Throw(tvm.ExitCodeCannotProcessAMessage, ErrAccountNotActive))
		} else {
			rm.Success = true
		}
		return rm
	}

	computeFee := b.cfg.ComputeFee.Nano()
	if acc.balance.Cmp(computeFee) < 0 {
		rm.GasFee = new(big.Int).Set(acc.balance)
		acc.balance.SetInt64(0)
		b.fail(rm, acc, tvm.Throw(tvm.ExitCodeOutOfGasError, errors.New("balance cannot cover the compute fee")))
		return rm
	}
	acc.balance.Sub(acc.balance, computeFee)
	rm.GasFee = computeFee

	outbound, err := acc.contract.Receive(ctx, Inbound{
		Self:    acc.addr,
		Msg:     msg,
		Balance: new(big.Int).Set(acc.balance),
		LT:      b.lt,
		Now:     uint32(b.now().Unix()),
	})
	if err != nil {
		b.rollback(acc)
		b.fail(rm, acc, err)
		return rm
	}

	required := big.NewInt(0)
	for _, out := range outbound {
		required.Add(required, out.Amount.Nano())
		required.Add(required, b.cfg.ForwardFee.Nano())
	}
	if acc.balance.Cmp(required) < 0 {
		b.rollback(acc)
		b.fail(rm, acc, tvm.Throw(tvm.ExitCodeNotEnoughToncoin,
			fmt.Errorf("action phase needs %s, balance is %s", tlb.FromNanoTON(required).String(), tlb.FromNanoTON(acc.balance).String())))
		return rm
	}
	for _, out := range outbound {
		out.SrcAddr = acc.addr
		// cannot fail, the total was checked above
		_ = b.debit(acc, out)
		rm.AppendSentMessage(out)
	}
	if stateful, ok := acc.contract.(Stateful); ok {
		acc.data = stateful.Data()
	}
	rm.Success = true
	rm.ExitCode = tvm.ExitCodeSuccess
	return rm
}

func (b *Blockchain) deploy(acc *account, init *tlb.StateInit) error {
	derived, err := contract.AddressOf(int8(acc.addr.Workchain()), init)
	if err != nil {
		return err
	}
	if !derived.Equals(acc.addr) {
		return fmt.Errorf("StateInit hashes to %s", derived.String())
	}
	if init.Code == nil {
		return errors.New("StateInit has no code")
	}
	factory, ok := b.factories[hex.EncodeToString(init.Code.Hash())]
	if !ok {
		return fmt.Errorf("no contract registered for code hash %x", init.Code.Hash())
	}
	c, err := factory(acc.addr, init.Data)
	if err != nil {
		return fmt.Errorf("failed to instantiate contract: %w", err)
	}
	acc.code = init.Code
	acc.data = init.Data
	acc.contract = c
	acc.factory = factory
	acc.active = true
	b.lggr.Debugw("Deployed contract", "address", acc.addr.String())
	return nil
}

// rollback discards the in-memory changes of a stateful contract.
func (b *Blockchain) rollback(acc *account) {
	if _, ok := acc.contract.(Stateful); !ok || acc.factory == nil {
		return
	}
	c, err := acc.factory(acc.addr, acc.data)
	if err != nil {
		b.lggr.Errorw("Failed to restore contract", "address", acc.addr.String(), "err", err)
		return
	}
	acc.contract = c
}

// fail records an aborted transaction and, for bounceable messages, returns
// what is left of the inbound value to its source.
func (b *Blockchain) fail(rm *ReceivedMessage, acc *account, err error) {
	msg := rm.InternalMsg
	rm.Success = false
	rm.ExitCode = tvm.CodeOf(err)
	rm.Err = err
	b.lggr.Debugw("Transaction aborted", "address", acc.addr.String(), "exitCode", rm.ExitCode, "err", err)

	if !msg.Bounce || msg.Bounced || msg.SrcAddr == nil {
		return
	}
	fwdFee := b.cfg.ForwardFee.Nano()
	value := new(big.Int).Sub(msg.Amount.Nano(), rm.GasFee)
	value.Sub(value, fwdFee)
	if value.Sign() <= 0 {
		return
	}

	bounce := &tlb.InternalMessage{
		Bounce:  false,
		Bounced: true,
		SrcAddr: acc.addr,
		DstAddr: msg.SrcAddr,
		Amount:  tlb.FromNanoTON(value),
		Body:    bouncedBody(msg.Body),
	}
	// the inbound value was credited, so the account can always return it
	_ = b.debit(acc, bounce)
	rm.AppendSentMessage(bounce)
	rm.EmittedBouncedMessage = true
}

// bouncedBody is the bounce prefix followed by the first 256 bits of the
// original body.
func bouncedBody(body *cell.Cell) *cell.Cell {
	bb := cell.BeginCell().MustStoreUInt(bouncedPrefix, 32)
	if body == nil {
		return bb.EndCell()
	}
	s := body.BeginParse()
	n := s.BitsLeft()
	if n > 256 {
		n = 256
	}
	if n > 0 {
		bb.MustStoreSlice(s.MustLoadSlice(n), n)
	}
	return bb.EndCell()
}

// treasuryContract accepts every inbound message.
type treasuryContract struct{}

func (treasuryContract) Receive(context.Context, Inbound) ([]*tlb.InternalMessage, error) {
	return nil, nil
}
