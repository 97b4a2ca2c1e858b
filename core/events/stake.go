package events

import (
	"math/big"
	"strconv"

	"kavochain/core/types"
	"kavochain/crypto"
)

const (
	// TypeStakeCreated captures a new stake position entering its lock.
	TypeStakeCreated = "stake.created"
	// TypeStakeRewardsClaimed is emitted when staking rewards are paid out.
	TypeStakeRewardsClaimed = "stake.rewardsClaimed"
	// TypeStakeRewardsForfeited signals accrual weeks beyond the cap that were
	// returned to the reserve instead of paid.
	TypeStakeRewardsForfeited = "stake.rewardsForfeited"
	// TypeStakeCooldownArmed marks the first call of the two-step unstake.
	TypeStakeCooldownArmed = "stake.cooldownArmed"
	// TypeStakeWithdrawn marks a completed unstake returning principal.
	TypeStakeWithdrawn = "stake.withdrawn"
	// TypeStakeEmergencyExit marks an emergency unstake with penalty.
	TypeStakeEmergencyExit = "stake.emergencyExit"
	// TypeStakeTierUpgraded records a tier upgrade with its top-up.
	TypeStakeTierUpgraded = "stake.tierUpgraded"
	// TypeStakeAprAdjusted records an APR tapering step.
	TypeStakeAprAdjusted = "stake.aprAdjusted"
)

// StakeCreated captures the position opened by a stake call.
type StakeCreated struct {
	Owner   [20]byte
	Amount  *big.Int
	Tier    uint8
	LockEnd int64
}

// EventType satisfies the Event interface.
func (StakeCreated) EventType() string { return TypeStakeCreated }

// Event converts the structured payload into a broadcastable event.
func (e StakeCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeStakeCreated,
		Attributes: map[string]string{
			"owner":   crypto.MustNewAddress(crypto.KavoPrefix, e.Owner[:]).String(),
			"amount":  formatAmount(e.Amount),
			"tier":    strconv.FormatUint(uint64(e.Tier), 10),
			"lockEnd": intToString(e.LockEnd),
		},
	}
}

// StakeRewardsClaimed captures a reward payout.
type StakeRewardsClaimed struct {
	Owner     [20]byte
	Amount    *big.Int
	WeeksPaid uint64
	Tier      uint8
	TotalPaid *big.Int
}

// EventType satisfies the Event interface.
func (StakeRewardsClaimed) EventType() string { return TypeStakeRewardsClaimed }

// Event converts the structured payload into a broadcastable event.
func (e StakeRewardsClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeStakeRewardsClaimed,
		Attributes: map[string]string{
			"owner":     crypto.MustNewAddress(crypto.KavoPrefix, e.Owner[:]).String(),
			"amount":    formatAmount(e.Amount),
			"weeksPaid": uintToString(e.WeeksPaid),
			"tier":      strconv.FormatUint(uint64(e.Tier), 10),
			"totalPaid": formatAmount(e.TotalPaid),
		},
	}
}

// StakeRewardsForfeited records weeks of accrual beyond the cap retained by
// the reserve.
type StakeRewardsForfeited struct {
	Owner          [20]byte
	WeeksForfeited uint64
	Amount         *big.Int
}

// EventType satisfies the Event interface.
func (StakeRewardsForfeited) EventType() string { return TypeStakeRewardsForfeited }

// Event converts the structured payload into a broadcastable event.
func (e StakeRewardsForfeited) Event() *types.Event {
	return &types.Event{
		Type: TypeStakeRewardsForfeited,
		Attributes: map[string]string{
			"owner":          crypto.MustNewAddress(crypto.KavoPrefix, e.Owner[:]).String(),
			"weeksForfeited": uintToString(e.WeeksForfeited),
			"amount":         formatAmount(e.Amount),
		},
	}
}

// StakeCooldownArmed marks the first unstake call scheduling the payout.
type StakeCooldownArmed struct {
	Owner       [20]byte
	CooldownEnd int64
}

// EventType satisfies the Event interface.
func (StakeCooldownArmed) EventType() string { return TypeStakeCooldownArmed }

// Event converts the structured payload into a broadcastable event.
func (e StakeCooldownArmed) Event() *types.Event {
	return &types.Event{
		Type: TypeStakeCooldownArmed,
		Attributes: map[string]string{
			"owner":       crypto.MustNewAddress(crypto.KavoPrefix, e.Owner[:]).String(),
			"cooldownEnd": intToString(e.CooldownEnd),
		},
	}
}

// StakeWithdrawn marks a completed unstake.
type StakeWithdrawn struct {
	Owner     [20]byte
	Principal *big.Int
	Rewards   *big.Int
}

// EventType satisfies the Event interface.
func (StakeWithdrawn) EventType() string { return TypeStakeWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e StakeWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeStakeWithdrawn,
		Attributes: map[string]string{
			"owner":     crypto.MustNewAddress(crypto.KavoPrefix, e.Owner[:]).String(),
			"principal": formatAmount(e.Principal),
			"rewards":   formatAmount(e.Rewards),
		},
	}
}

// StakeEmergencyExit marks an emergency unstake and the retained penalty.
type StakeEmergencyExit struct {
	Owner    [20]byte
	Returned *big.Int
	Penalty  *big.Int
	Locked   bool
}

// EventType satisfies the Event interface.
func (StakeEmergencyExit) EventType() string { return TypeStakeEmergencyExit }

// Event converts the structured payload into a broadcastable event.
func (e StakeEmergencyExit) Event() *types.Event {
	return &types.Event{
		Type: TypeStakeEmergencyExit,
		Attributes: map[string]string{
			"owner":    crypto.MustNewAddress(crypto.KavoPrefix, e.Owner[:]).String(),
			"returned": formatAmount(e.Returned),
			"penalty":  formatAmount(e.Penalty),
			"locked":   strconv.FormatBool(e.Locked),
		},
	}
}

// StakeTierUpgraded records a position moving to a higher tier.
type StakeTierUpgraded struct {
	Owner   [20]byte
	OldTier uint8
	NewTier uint8
	TopUp   *big.Int
}

// EventType satisfies the Event interface.
func (StakeTierUpgraded) EventType() string { return TypeStakeTierUpgraded }

// Event converts the structured payload into a broadcastable event.
func (e StakeTierUpgraded) Event() *types.Event {
	return &types.Event{
		Type: TypeStakeTierUpgraded,
		Attributes: map[string]string{
			"owner":   crypto.MustNewAddress(crypto.KavoPrefix, e.Owner[:]).String(),
			"oldTier": strconv.FormatUint(uint64(e.OldTier), 10),
			"newTier": strconv.FormatUint(uint64(e.NewTier), 10),
			"topUp":   formatAmount(e.TopUp),
		},
	}
}

// StakeAprAdjusted records the APR tapering band applied to the tier table.
type StakeAprAdjusted struct {
	TotalStaked *big.Int
	Band        int
	Timestamp   int64
}

// EventType satisfies the Event interface.
func (StakeAprAdjusted) EventType() string { return TypeStakeAprAdjusted }

// Event converts the structured payload into a broadcastable event.
func (e StakeAprAdjusted) Event() *types.Event {
	return &types.Event{
		Type: TypeStakeAprAdjusted,
		Attributes: map[string]string{
			"totalStaked": formatAmount(e.TotalStaked),
			"band":        strconv.Itoa(e.Band),
			"timestamp":   intToString(e.Timestamp),
		},
	}
}
