package treasury

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

// Multisig action kinds consumed by the treasury.
const (
	ActionKindWithdraw      = "treasury.withdraw"
	ActionKindSetAllocation = "treasury.set_allocation"
)

var errStateNotConfigured = errors.New("treasury: state not configured")

type treasuryState interface {
	TreasuryGet() (*Ledger, error)
	TreasuryPut(*Ledger) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

type actionConsumer interface {
	Consume(id uint64, expectKind string) (*multisig.Action, error)
}

// Policy holds the withdrawal guardrails applied across all buckets.
type Policy struct {
	WithdrawCap    *big.Int
	WithdrawWindow time.Duration
}

// Engine splits received tax into the configured buckets and enforces
// multisig-gated, rate-limited withdrawals.
type Engine struct {
	state          treasuryState
	coordinator    actionConsumer
	emitter        events.Emitter
	nowFn          func() time.Time
	withdrawCap    *big.Int
	withdrawWindow time.Duration
}

// NewEngine constructs a treasury engine with default no-op dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter:        events.NoopEmitter{},
		nowFn:          func() time.Time { return time.Now().UTC() },
		withdrawCap:    big.NewInt(0),
		withdrawWindow: 24 * time.Hour,
	}
}

// SetState wires the engine to the state backend providing persistence.
func (e *Engine) SetState(state treasuryState) { e.state = state }

// SetCoordinator wires the multisig coordinator whose actions gate withdrawals
// and allocation changes.
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

// SetPolicy installs the rolling withdrawal cap and window.
func (e *Engine) SetPolicy(policy Policy) {
	if e == nil {
		return
	}
	if policy.WithdrawCap != nil {
		e.withdrawCap = new(big.Int).Set(policy.WithdrawCap)
	} else {
		e.withdrawCap = big.NewInt(0)
	}
	if policy.WithdrawWindow > 0 {
		e.withdrawWindow = policy.WithdrawWindow
	}
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

// ReceiveTax splits the supplied amount across the buckets according to the
// current allocation table. Floor division assigns each bucket its share and
// the last bucket absorbs the remainder so no dust is lost. The burn share is
// destroyed immediately and added to the cumulative burned counter.
func (e *Engine) ReceiveTax(amount *big.Int) error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	ledger, err := e.state.TreasuryGet()
	if err != nil {
		return err
	}
	if err := ValidateAllocation(ledger.AllocationBps); err != nil {
		return err
	}

	shares := make(map[string]*big.Int, len(splitOrder))
	assigned := big.NewInt(0)
	for i, bucket := range splitOrder {
		if i == len(splitOrder)-1 {
			shares[bucket] = new(big.Int).Sub(amount, assigned)
			break
		}
		share := new(big.Int).Mul(amount, big.NewInt(int64(ledger.AllocationBps[bucket])))
		share.Div(share, big.NewInt(AllocationDenom))
		shares[bucket] = share
		assigned.Add(assigned, share)
	}

	for _, bucket := range splitOrder {
		if bucket == BucketBurn {
			ledger.TotalBurned = new(big.Int).Add(ledger.TotalBurned, shares[bucket])
			continue
		}
		balance := ledger.Balance(bucket)
		ledger.Balances[bucket] = balance.Add(balance, shares[bucket])
	}
	if err := e.state.TreasuryPut(ledger); err != nil {
		return err
	}

	e.emit(events.TreasuryAllocated{
		Amount:    new(big.Int).Set(amount),
		Burn:      new(big.Int).Set(shares[BucketBurn]),
		Liquidity: new(big.Int).Set(shares[BucketLiquidity]),
		Gov:       new(big.Int).Set(shares[BucketGovernance]),
		LPStaking: new(big.Int).Set(shares[BucketLPStaking]),
	})
	if shares[BucketBurn].Sign() > 0 {
		e.emit(events.TreasuryBurn{
			Amount:      new(big.Int).Set(shares[BucketBurn]),
			TotalBurned: new(big.Int).Set(ledger.TotalBurned),
		})
	}
	return nil
}

// Withdraw debits the bucket and credits the recipient once the referenced
// multisig action is ready. The action is consumed one-shot, and the 24-hour
// rolling aggregate across all buckets must stay within the configured cap.
// All preconditions are checked before any state is touched.
func (e *Engine) Withdraw(bucket string, amount *big.Int, recipient [20]byte, actionID uint64) error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	if e.coordinator == nil {
		return fmt.Errorf("treasury: coordinator not configured")
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if bucket == BucketBurn {
		return ErrBurnNotWithdrawable
	}
	ledger, err := e.state.TreasuryGet()
	if err != nil {
		return err
	}
	if _, ok := ledger.Balances[bucket]; !ok {
		return ErrUnknownBucket
	}
	if ledger.Balance(bucket).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	now := e.now()
	history, err := limiter.RecordAndCheck(ledger.Withdrawals, now, e.withdrawWindow, e.withdrawCap, amount)
	if err != nil {
		if errors.Is(err, limiter.ErrLimitExceeded) {
			return ErrWithdrawLimit
		}
		return err
	}

	// Consuming the action is the first mutation; everything before this
	// point is a pure precondition check.
	if _, err := e.coordinator.Consume(actionID, ActionKindWithdraw); err != nil {
		return err
	}

	balance := ledger.Balance(bucket)
	ledger.Balances[bucket] = balance.Sub(balance, amount)
	ledger.Withdrawals = history
	if err := e.state.TreasuryPut(ledger); err != nil {
		return err
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

	e.emit(events.TreasuryWithdrawal{
		Bucket:    bucket,
		Amount:    new(big.Int).Set(amount),
		Recipient: recipient,
		ActionID:  actionID,
	})
	return nil
}

// SetAllocation replaces the allocation table after validating the 10000 bps
// invariant. The change is gated on a ready multisig action.
func (e *Engine) SetAllocation(allocation map[string]uint32, actionID uint64) error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	if e.coordinator == nil {
		return fmt.Errorf("treasury: coordinator not configured")
	}
	if err := ValidateAllocation(allocation); err != nil {
		return err
	}
	ledger, err := e.state.TreasuryGet()
	if err != nil {
		return err
	}
	if _, err := e.coordinator.Consume(actionID, ActionKindSetAllocation); err != nil {
		return err
	}
	ledger.AllocationBps = make(map[string]uint32, len(allocation))
	for bucket, bps := range allocation {
		ledger.AllocationBps[bucket] = bps
	}
	return e.state.TreasuryPut(ledger)
}

// Balances returns a copy of the withdrawable balances plus the cumulative
// burned counter for read-only views.
func (e *Engine) Balances() (map[string]*big.Int, *big.Int, error) {
	if e == nil || e.state == nil {
		return nil, nil, errStateNotConfigured
	}
	ledger, err := e.state.TreasuryGet()
	if err != nil {
		return nil, nil, err
	}
	balances := make(map[string]*big.Int, len(ledger.Balances))
	for bucket := range ledger.Balances {
		balances[bucket] = ledger.Balance(bucket)
	}
	burned := big.NewInt(0)
	if ledger.TotalBurned != nil {
		burned = new(big.Int).Set(ledger.TotalBurned)
	}
	return balances, burned, nil
}
