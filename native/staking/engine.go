package staking

import (
	"errors"
	"math/big"
	"time"

	"kavochain/core/events"
	"kavochain/core/types"
)

var errStateNotConfigured = errors.New("staking: state not configured")

type poolState interface {
	StakePoolGet() (*Pool, error)
	StakePoolPut(*Pool) error
	StakePositionGet(owner [20]byte) (*Position, bool, error)
	StakePositionPut(*Position) error
	StakePositionDelete(owner [20]byte) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Engine drives the tiered lock/cooldown/reward state machine. TotalStaked
// tracks principal; RewardReserve holds only seeded reward funds plus
// retained penalties, so principal withdrawals never depend on it.
type Engine struct {
	state   poolState
	emitter events.Emitter
	nowFn   func() time.Time
	params  Params
}

// NewEngine constructs a staking engine with default no-op dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// SetState wires the engine to the state backend providing persistence.
func (e *Engine) SetState(state poolState) { e.state = state }

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

// SetParams installs the engine configuration. The base tier table is kept in
// params; the pool's current table starts from it and is re-derived by
// tapering.
func (e *Engine) SetParams(params Params) {
	if e == nil {
		return
	}
	e.params = params
	e.params.Tiers = nil
	for _, tier := range params.Tiers {
		e.params.Tiers = append(e.params.Tiers, tier.Clone())
	}
	e.params.TaperBands = nil
	for _, band := range params.TaperBands {
		clone := band
		if band.Threshold != nil {
			clone.Threshold = new(big.Int).Set(band.Threshold)
		}
		e.params.TaperBands = append(e.params.TaperBands, clone)
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

// Stake opens a position for the caller, locks the principal for the tier's
// lock period, and triggers a rate-limited APR tapering check.
func (e *Engine) Stake(owner [20]byte, amount *big.Int, tierID uint8) error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	pool, err := e.state.StakePoolGet()
	if err != nil {
		return err
	}
	if pool.Paused {
		return ErrPaused
	}
	tier, ok := pool.Tier(tierID)
	if !ok {
		return ErrInvalidTier
	}
	if _, exists, err := e.state.StakePositionGet(owner); err != nil {
		return err
	} else if exists {
		return ErrStakeExists
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInsufficientStake
	}
	if tier.MinStake != nil && amount.Cmp(tier.MinStake) < 0 {
		return ErrInsufficientStake
	}
	account, err := e.state.GetAccount(owner[:])
	if err != nil {
		return err
	}
	balance := big.NewInt(0)
	if account != nil && account.Balance != nil {
		balance = account.Balance
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	// Preconditions held; mutations start here.
	account.Balance = new(big.Int).Sub(balance, amount)
	if err := e.state.PutAccount(owner[:], account); err != nil {
		return err
	}

	now := e.now()
	pool.TotalStaked = new(big.Int).Add(pool.TotalStaked, amount)
	e.maybeTaper(pool, now)
	if err := e.state.StakePoolPut(pool); err != nil {
		return err
	}

	position := &Position{
		Owner:          owner,
		Amount:         new(big.Int).Set(amount),
		Tier:           tierID,
		StakedAt:       now,
		LockEnd:        now.Add(tier.LockPeriod),
		LastClaim:      now,
		RewardsClaimed: big.NewInt(0),
	}
	if err := e.state.StakePositionPut(position); err != nil {
		return err
	}

	e.emit(events.StakeCreated{Owner: owner, Amount: new(big.Int).Set(amount), Tier: tierID, LockEnd: position.LockEnd.Unix()})
	return nil
}

// maybeTaper re-derives the pool tier table from the configured bands. The
// check runs at most once per adjustment interval.
func (e *Engine) maybeTaper(pool *Pool, now time.Time) {
	if len(e.params.TaperBands) == 0 || e.params.AprAdjustInterval <= 0 {
		return
	}
	if !pool.LastAprAdjust.IsZero() && now.Before(pool.LastAprAdjust.Add(e.params.AprAdjustInterval)) {
		return
	}
	pool.LastAprAdjust = now

	band := -1
	factor := uint32(10_000)
	for i, candidate := range e.params.TaperBands {
		if candidate.Threshold == nil || pool.TotalStaked.Cmp(candidate.Threshold) >= 0 {
			band = i
			factor = candidate.FactorBps
		}
	}
	if band == pool.TaperBand {
		return
	}
	pool.TaperBand = band

	tiers := make([]Tier, 0, len(e.params.Tiers))
	for _, base := range e.params.Tiers {
		tier := base.Clone()
		if band >= 0 {
			if tier.WeeklyReward != nil {
				scaled := new(big.Int).Mul(tier.WeeklyReward, big.NewInt(int64(factor)))
				tier.WeeklyReward = scaled.Div(scaled, big.NewInt(10_000))
			}
			tier.AprBps = uint32(uint64(tier.AprBps) * uint64(factor) / 10_000)
		}
		tiers = append(tiers, tier)
	}
	pool.Tiers = tiers

	e.emit(events.StakeAprAdjusted{TotalStaked: new(big.Int).Set(pool.TotalStaked), Band: band, Timestamp: now.Unix()})
}

// activateVotingPower grants the tier voting power once the lock has expired.
// Activation is lazy: it happens on the first post-lock touch of the position.
func (e *Engine) activateVotingPower(pool *Pool, position *Position, now time.Time) {
	if position.VotingPower != 0 || now.Before(position.LockEnd) {
		return
	}
	tier, ok := pool.Tier(position.Tier)
	if !ok {
		return
	}
	position.VotingPower = tier.VotingPower
	pool.TotalVotingPower += tier.VotingPower
}

// accrue computes the payable reward, the whole weeks processed, and the
// weeks forfeited beyond the accrual cap.
func (e *Engine) accrue(pool *Pool, position *Position, now time.Time) (reward *big.Int, weeksPaid, weeksForfeited uint64) {
	reward = big.NewInt(0)
	elapsed := now.Sub(position.LastClaim)
	if elapsed <= 0 {
		return reward, 0, 0
	}
	weeks := uint64(elapsed / RewardWeek)
	if weeks == 0 {
		return reward, 0, 0
	}
	weeksPaid = weeks
	if e.params.MaxAccrualWeeks > 0 && weeksPaid > e.params.MaxAccrualWeeks {
		weeksPaid = e.params.MaxAccrualWeeks
		weeksForfeited = weeks - weeksPaid
	}
	tier, ok := pool.Tier(position.Tier)
	if !ok || tier.WeeklyReward == nil {
		return reward, weeksPaid, weeksForfeited
	}
	reward = new(big.Int).Mul(tier.WeeklyReward, new(big.Int).SetUint64(weeksPaid))
	return reward, weeksPaid, weeksForfeited
}

// payReward settles an accrual against the reserve and the owner's account.
// LastClaim advances by every whole week processed (paid and forfeited) so
// forfeited weeks cannot re-accrue, while the fractional remainder carries
// over to the next claim.
func (e *Engine) payReward(pool *Pool, position *Position, now time.Time) (*big.Int, error) {
	reward, weeksPaid, weeksForfeited := e.accrue(pool, position, now)
	if weeksPaid == 0 && weeksForfeited == 0 {
		return big.NewInt(0), nil
	}
	if reward.Sign() > 0 && pool.RewardReserve.Cmp(reward) < 0 {
		return nil, ErrInsufficientBalance
	}

	position.LastClaim = position.LastClaim.Add(time.Duration(weeksPaid+weeksForfeited) * RewardWeek)
	if reward.Sign() > 0 {
		pool.RewardReserve = new(big.Int).Sub(pool.RewardReserve, reward)
		position.RewardsClaimed = new(big.Int).Add(position.RewardsClaimed, reward)
		account, err := e.state.GetAccount(position.Owner[:])
		if err != nil {
			return nil, err
		}
		if account == nil {
			account = &types.Account{Balance: big.NewInt(0)}
		}
		if account.Balance == nil {
			account.Balance = big.NewInt(0)
		}
		account.Balance = new(big.Int).Add(account.Balance, reward)
		if err := e.state.PutAccount(position.Owner[:], account); err != nil {
			return nil, err
		}
	}
	if weeksForfeited > 0 {
		forfeited := big.NewInt(0)
		if tier, ok := pool.Tier(position.Tier); ok && tier.WeeklyReward != nil {
			forfeited = new(big.Int).Mul(tier.WeeklyReward, new(big.Int).SetUint64(weeksForfeited))
		}
		// Forfeited weeks stay in the reserve rather than being destroyed.
		e.emit(events.StakeRewardsForfeited{Owner: position.Owner, WeeksForfeited: weeksForfeited, Amount: forfeited})
	}
	return reward, nil
}

// Claim pays out accrued whole-week rewards for the caller's position.
func (e *Engine) Claim(owner [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	pool, err := e.state.StakePoolGet()
	if err != nil {
		return nil, err
	}
	position, ok, err := e.state.StakePositionGet(owner)
	if err != nil {
		return nil, err
	}
	if !ok || position == nil {
		return nil, ErrPositionNotFound
	}

	now := e.now()
	e.activateVotingPower(pool, position, now)

	if e.params.MinHoldingPeriod > 0 && now.Before(position.StakedAt.Add(e.params.MinHoldingPeriod)) {
		// Persist the lazy voting-power activation even when the claim is
		// rejected for timing.
		if position.VotingPower != 0 {
			if err := e.state.StakePoolPut(pool); err != nil {
				return nil, err
			}
			if err := e.state.StakePositionPut(position); err != nil {
				return nil, err
			}
		}
		return nil, ErrClaimTooSoon
	}
	if e.params.MinClaimInterval > 0 && now.Before(position.LastClaim.Add(e.params.MinClaimInterval)) {
		return nil, ErrClaimTooSoon
	}

	reward, err := e.payReward(pool, position, now)
	if err != nil {
		return nil, err
	}
	if err := e.state.StakePoolPut(pool); err != nil {
		return nil, err
	}
	if err := e.state.StakePositionPut(position); err != nil {
		return nil, err
	}

	weeksPaid := uint64(0)
	if tier, ok := pool.Tier(position.Tier); ok && tier.WeeklyReward != nil && tier.WeeklyReward.Sign() > 0 {
		weeksPaid = new(big.Int).Div(reward, tier.WeeklyReward).Uint64()
	}
	e.emit(events.StakeRewardsClaimed{
		Owner:     owner,
		Amount:    new(big.Int).Set(reward),
		WeeksPaid: weeksPaid,
		Tier:      position.Tier,
		TotalPaid: new(big.Int).Set(position.RewardsClaimed),
	})
	return reward, nil
}

// Unstake implements the deliberate two-call cooldown protocol. The first
// successful call after lock expiry arms the cooldown and moves no funds; a
// second call before the cooldown end fails; a second call at or after it
// claims pending rewards, returns the principal, releases voting power, and
// deletes the position. The returned flag reports whether the unstake
// completed (true) or merely armed the cooldown (false).
func (e *Engine) Unstake(owner [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errStateNotConfigured
	}
	pool, err := e.state.StakePoolGet()
	if err != nil {
		return false, err
	}
	position, ok, err := e.state.StakePositionGet(owner)
	if err != nil {
		return false, err
	}
	if !ok || position == nil {
		return false, ErrPositionNotFound
	}

	now := e.now()
	if now.Before(position.LockEnd) {
		return false, ErrLockActive
	}
	e.activateVotingPower(pool, position, now)

	if !position.CooldownArmed() {
		position.CooldownEnd = now.Add(e.params.CooldownPeriod)
		if err := e.state.StakePoolPut(pool); err != nil {
			return false, err
		}
		if err := e.state.StakePositionPut(position); err != nil {
			return false, err
		}
		e.emit(events.StakeCooldownArmed{Owner: owner, CooldownEnd: position.CooldownEnd.Unix()})
		return false, nil
	}
	if now.Before(position.CooldownEnd) {
		return false, ErrCooldownActive
	}

	reward, err := e.payReward(pool, position, now)
	if err != nil {
		return false, err
	}

	principal := new(big.Int).Set(position.Amount)
	pool.TotalStaked = new(big.Int).Sub(pool.TotalStaked, principal)
	if position.VotingPower > 0 {
		pool.TotalVotingPower -= position.VotingPower
	}

	account, err := e.state.GetAccount(owner[:])
	if err != nil {
		return false, err
	}
	if account == nil {
		account = &types.Account{Balance: big.NewInt(0)}
	}
	if account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	account.Balance = new(big.Int).Add(account.Balance, principal)
	if err := e.state.PutAccount(owner[:], account); err != nil {
		return false, err
	}
	if err := e.state.StakePoolPut(pool); err != nil {
		return false, err
	}
	if err := e.state.StakePositionDelete(owner); err != nil {
		return false, err
	}

	e.emit(events.StakeWithdrawn{Owner: owner, Principal: principal, Rewards: reward})
	return true, nil
}

// EmergencyUnstake bypasses lock and cooldown, retaining a penalty in the
// reserve. The penalty is steeper while the lock is still running. Pending
// rewards are not paid on the emergency path.
func (e *Engine) EmergencyUnstake(owner [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	pool, err := e.state.StakePoolGet()
	if err != nil {
		return nil, err
	}
	position, ok, err := e.state.StakePositionGet(owner)
	if err != nil {
		return nil, err
	}
	if !ok || position == nil {
		return nil, ErrPositionNotFound
	}

	now := e.now()
	locked := now.Before(position.LockEnd)
	penaltyBps := e.params.EmergencyPenaltyUnlockedBps
	if locked {
		penaltyBps = e.params.EmergencyPenaltyLockedBps
	}
	penalty := new(big.Int).Mul(position.Amount, big.NewInt(int64(penaltyBps)))
	penalty.Div(penalty, big.NewInt(10_000))
	returned := new(big.Int).Sub(position.Amount, penalty)

	// The retained penalty tops up the reward reserve.
	pool.RewardReserve = new(big.Int).Add(pool.RewardReserve, penalty)
	pool.TotalStaked = new(big.Int).Sub(pool.TotalStaked, position.Amount)
	if position.VotingPower > 0 {
		pool.TotalVotingPower -= position.VotingPower
	}

	account, err := e.state.GetAccount(owner[:])
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = &types.Account{Balance: big.NewInt(0)}
	}
	if account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	account.Balance = new(big.Int).Add(account.Balance, returned)
	if err := e.state.PutAccount(owner[:], account); err != nil {
		return nil, err
	}
	if err := e.state.StakePoolPut(pool); err != nil {
		return nil, err
	}
	if err := e.state.StakePositionDelete(owner); err != nil {
		return nil, err
	}

	e.emit(events.StakeEmergencyExit{Owner: owner, Returned: new(big.Int).Set(returned), Penalty: penalty, Locked: locked})
	return returned, nil
}

// UpgradeTier moves the position to a strictly higher tier. The top-up must
// exactly cover the shortfall to the new tier's minimum, and pending rewards
// are settled at the old tier first so accrual periods never mix rates.
func (e *Engine) UpgradeTier(owner [20]byte, newTierID uint8, topUp *big.Int) error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	pool, err := e.state.StakePoolGet()
	if err != nil {
		return err
	}
	if pool.Paused {
		return ErrPaused
	}
	position, ok, err := e.state.StakePositionGet(owner)
	if err != nil {
		return err
	}
	if !ok || position == nil {
		return ErrPositionNotFound
	}
	if newTierID <= position.Tier {
		return ErrInvalidTier
	}
	newTier, ok := pool.Tier(newTierID)
	if !ok {
		return ErrInvalidTier
	}
	if topUp == nil {
		topUp = big.NewInt(0)
	}
	if topUp.Sign() < 0 {
		return ErrInvalidTopUp
	}
	shortfall := big.NewInt(0)
	if newTier.MinStake != nil && position.Amount.Cmp(newTier.MinStake) < 0 {
		shortfall = new(big.Int).Sub(newTier.MinStake, position.Amount)
	}
	if topUp.Cmp(shortfall) != 0 {
		return ErrInvalidTopUp
	}
	account, err := e.state.GetAccount(owner[:])
	if err != nil {
		return err
	}
	balance := big.NewInt(0)
	if account != nil && account.Balance != nil {
		balance = account.Balance
	}
	if balance.Cmp(topUp) < 0 {
		return ErrInsufficientBalance
	}

	now := e.now()
	e.activateVotingPower(pool, position, now)
	// Settle accrual at the old tier before the rate switch.
	if _, err := e.payReward(pool, position, now); err != nil {
		return err
	}

	oldTier := position.Tier
	if topUp.Sign() > 0 {
		// Re-fetch after reward settlement so the debit does not clobber the
		// freshly credited reward.
		account, err = e.state.GetAccount(owner[:])
		if err != nil {
			return err
		}
		if account == nil || account.Balance == nil || account.Balance.Cmp(topUp) < 0 {
			return ErrInsufficientBalance
		}
		account.Balance = new(big.Int).Sub(account.Balance, topUp)
		if err := e.state.PutAccount(owner[:], account); err != nil {
			return err
		}
		position.Amount = new(big.Int).Add(position.Amount, topUp)
		pool.TotalStaked = new(big.Int).Add(pool.TotalStaked, topUp)
	}
	position.Tier = newTierID
	if position.VotingPower > 0 {
		// Already activated: swap the tier weight in the pool total.
		// Positions still locked keep zero power until lock expiry.
		pool.TotalVotingPower -= position.VotingPower
		pool.TotalVotingPower += newTier.VotingPower
		position.VotingPower = newTier.VotingPower
	}
	if err := e.state.StakePoolPut(pool); err != nil {
		return err
	}
	if err := e.state.StakePositionPut(position); err != nil {
		return err
	}

	e.emit(events.StakeTierUpgraded{Owner: owner, OldTier: oldTier, NewTier: newTierID, TopUp: new(big.Int).Set(topUp)})
	return nil
}

// FundReserve moves tokens from the funder's account into the reward reserve.
func (e *Engine) FundReserve(funder [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInsufficientBalance
	}
	account, err := e.state.GetAccount(funder[:])
	if err != nil {
		return err
	}
	balance := big.NewInt(0)
	if account != nil && account.Balance != nil {
		balance = account.Balance
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	pool, err := e.state.StakePoolGet()
	if err != nil {
		return err
	}
	account.Balance = new(big.Int).Sub(balance, amount)
	if err := e.state.PutAccount(funder[:], account); err != nil {
		return err
	}
	pool.RewardReserve = new(big.Int).Add(pool.RewardReserve, amount)
	return e.state.StakePoolPut(pool)
}

// SetPaused toggles the staking pause flag. Callers gate authorisation.
func (e *Engine) SetPaused(paused bool) error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	pool, err := e.state.StakePoolGet()
	if err != nil {
		return err
	}
	pool.Paused = paused
	return e.state.StakePoolPut(pool)
}

// VotingPower returns the effective governance weight of the owner's
// position: the tier weight once the lock has expired, zero before.
func (e *Engine) VotingPower(owner [20]byte) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errStateNotConfigured
	}
	position, ok, err := e.state.StakePositionGet(owner)
	if err != nil {
		return 0, err
	}
	if !ok || position == nil {
		return 0, nil
	}
	if position.VotingPower > 0 {
		return position.VotingPower, nil
	}
	if e.now().Before(position.LockEnd) {
		return 0, nil
	}
	pool, err := e.state.StakePoolGet()
	if err != nil {
		return 0, err
	}
	tier, ok := pool.Tier(position.Tier)
	if !ok {
		return 0, nil
	}
	return tier.VotingPower, nil
}

// TotalVotingPower exposes the activated pool voting power for quorum math.
func (e *Engine) TotalVotingPower() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errStateNotConfigured
	}
	pool, err := e.state.StakePoolGet()
	if err != nil {
		return 0, err
	}
	return pool.TotalVotingPower, nil
}

// ViewPool returns a copy of the pool record.
func (e *Engine) ViewPool() (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	pool, err := e.state.StakePoolGet()
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// ViewPosition returns a copy of the owner's position if one exists.
func (e *Engine) ViewPosition(owner [20]byte) (*Position, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errStateNotConfigured
	}
	position, ok, err := e.state.StakePositionGet(owner)
	if err != nil {
		return nil, false, err
	}
	if !ok || position == nil {
		return nil, false, nil
	}
	return position.Clone(), true, nil
}
