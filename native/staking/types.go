package staking

import (
	"math/big"
	"time"
)

// RewardWeek is the accrual granularity: rewards are paid in whole weeks.
const RewardWeek = 7 * 24 * time.Hour

// Tier defines a staking category. The engine treats the table in Params as
// the base configuration; the pool carries the currently tapered copy.
type Tier struct {
	ID           uint8         `json:"id"`
	MinStake     *big.Int      `json:"min_stake"`
	LockPeriod   time.Duration `json:"lock_period"`
	WeeklyReward *big.Int      `json:"weekly_reward"`
	VotingPower  uint64        `json:"voting_power"`
	AprBps       uint32        `json:"apr_bps"`
}

// Clone returns a deep copy of the tier.
func (t Tier) Clone() Tier {
	clone := t
	if t.MinStake != nil {
		clone.MinStake = new(big.Int).Set(t.MinStake)
	}
	if t.WeeklyReward != nil {
		clone.WeeklyReward = new(big.Int).Set(t.WeeklyReward)
	}
	return clone
}

// TaperBand maps a total-staked threshold to a reward scale factor. Bands are
// evaluated in ascending threshold order; the highest band at or below the
// current total staked wins. FactorBps scales both the weekly reward and the
// advertised APR of every tier.
type TaperBand struct {
	Threshold *big.Int `json:"threshold"`
	FactorBps uint32   `json:"factor_bps"`
}

// Params carries the engine configuration. Thresholds and step sizes are
// configuration, not engine logic.
type Params struct {
	Tiers                       []Tier
	CooldownPeriod              time.Duration
	MinHoldingPeriod            time.Duration
	MinClaimInterval            time.Duration
	MaxAccrualWeeks             uint64
	EmergencyPenaltyLockedBps   uint32
	EmergencyPenaltyUnlockedBps uint32
	AprAdjustInterval           time.Duration
	TaperBands                  []TaperBand
}

// Pool is the singleton staking record.
type Pool struct {
	TotalStaked      *big.Int  `json:"total_staked"`
	RewardReserve    *big.Int  `json:"reward_reserve"`
	Tiers            []Tier    `json:"tiers"`
	TotalVotingPower uint64    `json:"total_voting_power"`
	Paused           bool      `json:"paused"`
	LastAprAdjust    time.Time `json:"last_apr_adjust"`
	TaperBand        int       `json:"taper_band"`
}

// NewPool constructs an empty pool with the supplied tier table.
func NewPool(tiers []Tier) *Pool {
	pool := &Pool{
		TotalStaked:   big.NewInt(0),
		RewardReserve: big.NewInt(0),
		TaperBand:     -1,
	}
	for _, tier := range tiers {
		pool.Tiers = append(pool.Tiers, tier.Clone())
	}
	return pool
}

// Clone returns a deep copy of the pool.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return NewPool(nil)
	}
	clone := &Pool{
		TotalStaked:      big.NewInt(0),
		RewardReserve:    big.NewInt(0),
		TotalVotingPower: p.TotalVotingPower,
		Paused:           p.Paused,
		LastAprAdjust:    p.LastAprAdjust,
		TaperBand:        p.TaperBand,
	}
	if p.TotalStaked != nil {
		clone.TotalStaked = new(big.Int).Set(p.TotalStaked)
	}
	if p.RewardReserve != nil {
		clone.RewardReserve = new(big.Int).Set(p.RewardReserve)
	}
	for _, tier := range p.Tiers {
		clone.Tiers = append(clone.Tiers, tier.Clone())
	}
	return clone
}

// Tier resolves the current (tapered) tier entry by id.
func (p *Pool) Tier(id uint8) (Tier, bool) {
	if p == nil {
		return Tier{}, false
	}
	for _, tier := range p.Tiers {
		if tier.ID == id {
			return tier.Clone(), true
		}
	}
	return Tier{}, false
}

// Position is a per-address stake record. One open position per address.
type Position struct {
	Owner          [20]byte  `json:"owner"`
	Amount         *big.Int  `json:"amount"`
	Tier           uint8     `json:"tier"`
	StakedAt       time.Time `json:"staked_at"`
	LockEnd        time.Time `json:"lock_end"`
	LastClaim      time.Time `json:"last_claim"`
	VotingPower    uint64    `json:"voting_power"`
	CooldownEnd    time.Time `json:"cooldown_end"`
	RewardsClaimed *big.Int  `json:"rewards_claimed"`
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Amount = big.NewInt(0)
	if p.Amount != nil {
		clone.Amount = new(big.Int).Set(p.Amount)
	}
	clone.RewardsClaimed = big.NewInt(0)
	if p.RewardsClaimed != nil {
		clone.RewardsClaimed = new(big.Int).Set(p.RewardsClaimed)
	}
	return &clone
}

// CooldownArmed reports whether the two-step unstake has been initiated.
func (p *Position) CooldownArmed() bool {
	return p != nil && !p.CooldownEnd.IsZero()
}
