package token

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"kavochain/core/events"
	"kavochain/core/types"
	"kavochain/native/limiter"
	"kavochain/native/multisig"
)

// Multisig action kinds consumed by the controller.
const (
	ActionKindSetTaxRates = "token.set_tax_rates"
	ActionKindSetPause    = "token.set_pause"
)

var errStateNotConfigured = errors.New("token: state not configured")

type controllerState interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	TokenPolicyGet() (*Policy, error)
	TokenPolicyPut(*Policy) error
	ActivityGet(addr [20]byte) (*ActivityRecord, bool, error)
	ActivityPut(addr [20]byte, record *ActivityRecord) error
}

// TaxSink receives the tax portion of every taxed transfer. The treasury
// allocator implements it.
type TaxSink interface {
	ReceiveTax(amount *big.Int) error
}

type actionConsumer interface {
	Consume(id uint64, expectKind string) (*multisig.Action, error)
}

// Engine routes transfers, computes tax, and enforces the per-sender cooldown
// and rolling daily volume caps.
type Engine struct {
	state       controllerState
	sink        TaxSink
	coordinator actionConsumer
	emitter     events.Emitter
	nowFn       func() time.Time
}

// NewEngine constructs a transfer controller with default no-op dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// SetState wires the engine to the state backend providing persistence.
func (e *Engine) SetState(state controllerState) { e.state = state }

// SetTaxSink wires the treasury allocator receiving collected tax.
func (e *Engine) SetTaxSink(sink TaxSink) { e.sink = sink }

// SetCoordinator wires the multisig coordinator gating parameter changes.
func (e *Engine) SetCoordinator(coordinator actionConsumer) { e.coordinator = coordinator }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Nil restores the default UTC clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() time.Time {
	if e == nil || e.nowFn == nil {
		return time.Now().UTC()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

// Transfer moves amount from sender to recipient, collecting tax and
// enforcing the per-sender cooldown and daily caps. Tax-exempt senders (mint
// authority, treasury, staking module, configured exemptions), transfers into
// the treasury, zero amounts, and no-tax phases skip tax and rate limiting
// entirely, but every path honours the global pause flag.
func (e *Engine) Transfer(sender, recipient [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	policy, err := e.state.TokenPolicyGet()
	if err != nil {
		return err
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}

	exempt := policy.TaxExempt(sender) || recipient == policy.TreasuryAddress ||
		amount.Sign() == 0 || !policy.TaxEnabled
	if exempt {
		// Pause applies to exempt transfers too (fail-safe).
		if policy.Paused {
			return ErrPaused
		}
		if amount.Sign() > 0 {
			if err := e.move(sender, recipient, amount, amount); err != nil {
				return err
			}
		}
		e.emit(events.Transfer{
			Sender:    sender,
			Recipient: recipient,
			Amount:    new(big.Int).Set(amount),
			Net:       new(big.Int).Set(amount),
			Tax:       big.NewInt(0),
			Taxed:     false,
			Timestamp: e.now().Unix(),
		})
		return nil
	}

	if policy.Paused {
		return ErrPaused
	}
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	senderAccount, err := e.state.GetAccount(sender[:])
	if err != nil {
		return err
	}
	balance := big.NewInt(0)
	if senderAccount != nil && senderAccount.Balance != nil {
		balance = senderAccount.Balance
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	direction := DirectionTransfer
	switch {
	case policy.IsExchange(recipient):
		direction = DirectionSell
	case policy.IsExchange(sender):
		direction = DirectionBuy
	}

	now := e.now()
	record, _, err := e.state.ActivityGet(sender)
	if err != nil {
		return err
	}
	if record == nil {
		record = &ActivityRecord{}
	}
	if policy.CooldownSeconds > 0 && !record.LastTxAt.IsZero() {
		if now.Before(record.LastTxAt.Add(time.Duration(policy.CooldownSeconds) * time.Second)) {
			return ErrCooldownActive
		}
	}

	// Buys are taxed but bypass the per-user daily cap.
	updated := record.Clone()
	switch direction {
	case DirectionSell:
		history, err := limiter.RecordAndCheck(record.SellHistory, now, RateWindow, policy.SellDailyCap, amount)
		if err != nil {
			if errors.Is(err, limiter.ErrLimitExceeded) {
				return ErrDailyLimitExceeded
			}
			return err
		}
		updated.SellHistory = history
	case DirectionTransfer:
		history, err := limiter.RecordAndCheck(record.TransferHistory, now, RateWindow, policy.TransferDailyCap, amount)
		if err != nil {
			if errors.Is(err, limiter.ErrLimitExceeded) {
				return ErrDailyLimitExceeded
			}
			return err
		}
		updated.TransferHistory = history
	}
	updated.LastTxAt = now

	rate := policy.Rates.Rate(direction)
	tax := new(big.Int).Mul(amount, big.NewInt(int64(rate)))
	tax.Div(tax, big.NewInt(10_000))
	net := new(big.Int).Sub(amount, tax)
	if tax.Sign() > 0 && e.sink == nil {
		return fmt.Errorf("token: tax sink not configured")
	}

	// All preconditions held; mutations start here.
	if err := e.move(sender, recipient, amount, net); err != nil {
		return err
	}
	if tax.Sign() > 0 {
		if err := e.sink.ReceiveTax(new(big.Int).Set(tax)); err != nil {
			return err
		}
		e.emit(events.TaxCollected{Payer: sender, Amount: new(big.Int).Set(tax), RateBps: rate, Direction: direction})
	}
	if err := e.state.ActivityPut(sender, updated); err != nil {
		return err
	}

	e.emit(events.Transfer{
		Sender:    sender,
		Recipient: recipient,
		Amount:    new(big.Int).Set(amount),
		Net:       net,
		Tax:       tax,
		Taxed:     true,
		Direction: direction,
		Timestamp: now.Unix(),
	})
	return nil
}

// move debits `debit` from the sender and credits `credit` to the recipient.
func (e *Engine) move(sender, recipient [20]byte, debit, credit *big.Int) error {
	senderAccount, err := e.state.GetAccount(sender[:])
	if err != nil {
		return err
	}
	if senderAccount == nil {
		senderAccount = &types.Account{Balance: big.NewInt(0)}
	}
	if senderAccount.Balance == nil {
		senderAccount.Balance = big.NewInt(0)
	}
	if senderAccount.Balance.Cmp(debit) < 0 {
		return ErrInsufficientBalance
	}
	senderAccount.Balance = new(big.Int).Sub(senderAccount.Balance, debit)
	if err := e.state.PutAccount(sender[:], senderAccount); err != nil {
		return err
	}

	recipientAccount, err := e.state.GetAccount(recipient[:])
	if err != nil {
		return err
	}
	if recipientAccount == nil {
		recipientAccount = &types.Account{Balance: big.NewInt(0)}
	}
	if recipientAccount.Balance == nil {
		recipientAccount.Balance = big.NewInt(0)
	}
	recipientAccount.Balance = new(big.Int).Add(recipientAccount.Balance, credit)
	return e.state.PutAccount(recipient[:], recipientAccount)
}

// PrivilegedTransfer moves funds for an authority without tax or rate
// limiting. The global pause flag still applies.
func (e *Engine) PrivilegedTransfer(caller, recipient [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	policy, err := e.state.TokenPolicyGet()
	if err != nil {
		return err
	}
	if !policy.IsAuthority(caller) && caller != policy.MintAuthority {
		return ErrUnauthorized
	}
	if policy.Paused {
		return ErrPaused
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := e.move(caller, recipient, amount, amount); err != nil {
		return err
	}
	e.emit(events.Transfer{
		Sender:    caller,
		Recipient: recipient,
		Amount:    new(big.Int).Set(amount),
		Net:       new(big.Int).Set(amount),
		Tax:       big.NewInt(0),
		Taxed:     false,
		Timestamp: e.now().Unix(),
	})
	return nil
}

// Mint credits newly created tokens to the recipient and grows the total
// minted counter. Only the mint authority may call it.
func (e *Engine) Mint(caller, recipient [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	policy, err := e.state.TokenPolicyGet()
	if err != nil {
		return err
	}
	if caller != policy.MintAuthority {
		return ErrUnauthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	account, err := e.state.GetAccount(recipient[:])
	if err != nil {
		return err
	}
	if account == nil {
		account = &types.Account{Balance: big.NewInt(0)}
	}
	if account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	if err := e.state.PutAccount(recipient[:], account); err != nil {
		return err
	}
	if policy.TotalMinted == nil {
		policy.TotalMinted = big.NewInt(0)
	}
	policy.TotalMinted = new(big.Int).Add(policy.TotalMinted, amount)
	if err := e.state.TokenPolicyPut(policy); err != nil {
		return err
	}
	e.emit(events.Mint{Recipient: recipient, Amount: new(big.Int).Set(amount)})
	return nil
}

// SetTaxRates applies a multisig-approved tax rate change. The action id must
// reference a ready action of the tax-change kind; consumption is one-shot.
func (e *Engine) SetTaxRates(rates TaxRates, actionID uint64) error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	if e.coordinator == nil {
		return fmt.Errorf("token: coordinator not configured")
	}
	if !rates.Valid() {
		return ErrInvalidTaxRate
	}
	policy, err := e.state.TokenPolicyGet()
	if err != nil {
		return err
	}
	if _, err := e.coordinator.Consume(actionID, ActionKindSetTaxRates); err != nil {
		return err
	}
	policy.Rates = rates
	return e.state.TokenPolicyPut(policy)
}

// SetPaused toggles the global pause flag through a multisig action.
func (e *Engine) SetPaused(paused bool, actionID uint64) error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	if e.coordinator == nil {
		return fmt.Errorf("token: coordinator not configured")
	}
	policy, err := e.state.TokenPolicyGet()
	if err != nil {
		return err
	}
	if _, err := e.coordinator.Consume(actionID, ActionKindSetPause); err != nil {
		return err
	}
	if policy.Paused == paused {
		return e.state.TokenPolicyPut(policy)
	}
	policy.Paused = paused
	if err := e.state.TokenPolicyPut(policy); err != nil {
		return err
	}
	e.emit(events.PauseChanged{Paused: paused})
	return nil
}

// ViewPolicy returns a copy of the current token policy.
func (e *Engine) ViewPolicy() (*Policy, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	policy, err := e.state.TokenPolicyGet()
	if err != nil {
		return nil, err
	}
	return policy.Clone(), nil
}
