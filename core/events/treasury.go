package events

import (
	"math/big"

	"kavochain/core/types"
	"kavochain/crypto"
)

const (
	// TypeTreasuryAllocated captures a tax split across the buckets.
	TypeTreasuryAllocated = "treasury.allocated"
	// TypeTreasuryBurn records tokens destroyed from the burn bucket.
	TypeTreasuryBurn = "treasury.burn"
	// TypeTreasuryWithdrawal records a multisig-approved bucket withdrawal.
	TypeTreasuryWithdrawal = "treasury.withdrawal"
)

// TreasuryAllocated captures the exact split of a received tax amount.
type TreasuryAllocated struct {
	Amount    *big.Int
	Burn      *big.Int
	Liquidity *big.Int
	Gov       *big.Int
	LPStaking *big.Int
}

// EventType satisfies the Event interface.
func (TreasuryAllocated) EventType() string { return TypeTreasuryAllocated }

// Event converts the structured payload into a broadcastable event.
func (e TreasuryAllocated) Event() *types.Event {
	return &types.Event{
		Type: TypeTreasuryAllocated,
		Attributes: map[string]string{
			"amount":    formatAmount(e.Amount),
			"burn":      formatAmount(e.Burn),
			"liquidity": formatAmount(e.Liquidity),
			"gov":       formatAmount(e.Gov),
			"lpStaking": formatAmount(e.LPStaking),
		},
	}
}

// TreasuryBurn records tokens destroyed on receipt.
type TreasuryBurn struct {
	Amount      *big.Int
	TotalBurned *big.Int
}

// EventType satisfies the Event interface.
func (TreasuryBurn) EventType() string { return TypeTreasuryBurn }

// Event converts the structured payload into a broadcastable event.
func (e TreasuryBurn) Event() *types.Event {
	return &types.Event{
		Type: TypeTreasuryBurn,
		Attributes: map[string]string{
			"amount":      formatAmount(e.Amount),
			"totalBurned": formatAmount(e.TotalBurned),
		},
	}
}

// TreasuryWithdrawal records a completed bucket withdrawal.
type TreasuryWithdrawal struct {
	Bucket    string
	Amount    *big.Int
	Recipient [20]byte
	ActionID  uint64
}

// EventType satisfies the Event interface.
func (TreasuryWithdrawal) EventType() string { return TypeTreasuryWithdrawal }

// Event converts the structured payload into a broadcastable event.
func (e TreasuryWithdrawal) Event() *types.Event {
	return &types.Event{
		Type: TypeTreasuryWithdrawal,
		Attributes: map[string]string{
			"bucket":    e.Bucket,
			"amount":    formatAmount(e.Amount),
			"recipient": crypto.MustNewAddress(crypto.KavoPrefix, e.Recipient[:]).String(),
			"actionId":  uintToString(e.ActionID),
		},
	}
}
