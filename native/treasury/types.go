package treasury

import (
	"math/big"

	"kavochain/native/limiter"
)

// Bucket identifiers. Allocation tables must cover exactly these four buckets.
const (
	BucketBurn       = "burn"
	BucketLiquidity  = "liquidity"
	BucketGovernance = "governance"
	BucketLPStaking  = "lp_staking"
)

// AllocationDenom is the basis-point denominator every allocation table must
// sum to.
const AllocationDenom = 10_000

// splitOrder fixes the bucket ordering used when splitting received tax. The
// last bucket absorbs the floor-division remainder so the split is exact.
var splitOrder = []string{BucketBurn, BucketLiquidity, BucketGovernance, BucketLPStaking}

// Ledger is the singleton treasury record: withdrawable balances per bucket,
// the allocation table, the rolling withdrawal history, and the cumulative
// burned counter.
type Ledger struct {
	Balances      map[string]*big.Int `json:"balances"`
	AllocationBps map[string]uint32   `json:"allocation_bps"`
	Withdrawals   limiter.History     `json:"withdrawals"`
	TotalBurned   *big.Int            `json:"total_burned"`
}

// NewLedger constructs an empty ledger with the supplied allocation table.
func NewLedger(allocation map[string]uint32) *Ledger {
	ledger := &Ledger{
		Balances:      map[string]*big.Int{BucketLiquidity: big.NewInt(0), BucketGovernance: big.NewInt(0), BucketLPStaking: big.NewInt(0)},
		AllocationBps: map[string]uint32{},
		Withdrawals:   limiter.History{},
		TotalBurned:   big.NewInt(0),
	}
	for bucket, bps := range allocation {
		ledger.AllocationBps[bucket] = bps
	}
	return ledger
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return NewLedger(nil)
	}
	clone := &Ledger{
		Balances:      make(map[string]*big.Int, len(l.Balances)),
		AllocationBps: make(map[string]uint32, len(l.AllocationBps)),
		Withdrawals:   l.Withdrawals.Clone(),
		TotalBurned:   big.NewInt(0),
	}
	for bucket, balance := range l.Balances {
		if balance != nil {
			clone.Balances[bucket] = new(big.Int).Set(balance)
		} else {
			clone.Balances[bucket] = big.NewInt(0)
		}
	}
	for bucket, bps := range l.AllocationBps {
		clone.AllocationBps[bucket] = bps
	}
	if l.TotalBurned != nil {
		clone.TotalBurned = new(big.Int).Set(l.TotalBurned)
	}
	return clone
}

// Balance returns a copy of the bucket balance, zero when absent.
func (l *Ledger) Balance(bucket string) *big.Int {
	if l == nil {
		return big.NewInt(0)
	}
	if balance, ok := l.Balances[bucket]; ok && balance != nil {
		return new(big.Int).Set(balance)
	}
	return big.NewInt(0)
}

// ValidateAllocation checks that the table names exactly the four buckets and
// sums to AllocationDenom. This invariant is enforced at every mutation site,
// not just at tax receipt.
func ValidateAllocation(allocation map[string]uint32) error {
	if len(allocation) != len(splitOrder) {
		return ErrInvalidAllocation
	}
	var sum uint64
	for _, bucket := range splitOrder {
		bps, ok := allocation[bucket]
		if !ok {
			return ErrInvalidAllocation
		}
		sum += uint64(bps)
	}
	if sum != AllocationDenom {
		return ErrInvalidAllocation
	}
	return nil
}
