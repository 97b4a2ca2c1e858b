package token

import (
	"math/big"
	"time"

	"kavochain/native/limiter"
)

// Transfer directions selecting the tax rate and rate-limit bucket.
const (
	DirectionBuy      = "buy"
	DirectionSell     = "sell"
	DirectionTransfer = "transfer"
)

// MaxTaxRateBps caps every configurable tax rate.
const MaxTaxRateBps = 2_500

// RateWindow is the sliding window applied to the per-sender sell and
// transfer volume histories.
const RateWindow = 24 * time.Hour

// TaxRates groups the per-direction rates in basis points.
type TaxRates struct {
	BuyBps      uint32 `json:"buy_bps"`
	SellBps     uint32 `json:"sell_bps"`
	TransferBps uint32 `json:"transfer_bps"`
}

// Valid reports whether every rate is within [0, MaxTaxRateBps].
func (r TaxRates) Valid() bool {
	return r.BuyBps <= MaxTaxRateBps && r.SellBps <= MaxTaxRateBps && r.TransferBps <= MaxTaxRateBps
}

// Rate returns the basis-point rate for the supplied direction.
func (r TaxRates) Rate(direction string) uint32 {
	switch direction {
	case DirectionBuy:
		return r.BuyBps
	case DirectionSell:
		return r.SellBps
	default:
		return r.TransferBps
	}
}

// Policy is the singleton token configuration record. Parameter changes land
// here only through multisig- or governance-gated setters; the pending-change
// bookkeeping lives in the multisig coordinator's action registry.
type Policy struct {
	TotalMinted      *big.Int   `json:"total_minted"`
	MintAuthority    [20]byte   `json:"mint_authority"`
	Authorities      [][20]byte `json:"authorities"`
	Paused           bool       `json:"paused"`
	TaxEnabled       bool       `json:"tax_enabled"`
	Rates            TaxRates   `json:"rates"`
	Exempt           [][20]byte `json:"exempt"`
	Exchanges        [][20]byte `json:"exchanges"`
	TreasuryAddress  [20]byte   `json:"treasury_address"`
	StakingAddress   [20]byte   `json:"staking_address"`
	CooldownSeconds  uint64     `json:"cooldown_seconds"`
	SellDailyCap     *big.Int   `json:"sell_daily_cap"`
	TransferDailyCap *big.Int   `json:"transfer_daily_cap"`
}

// Clone returns a deep copy of the policy.
func (p *Policy) Clone() *Policy {
	if p == nil {
		return &Policy{TotalMinted: big.NewInt(0)}
	}
	clone := *p
	clone.TotalMinted = big.NewInt(0)
	if p.TotalMinted != nil {
		clone.TotalMinted = new(big.Int).Set(p.TotalMinted)
	}
	clone.Authorities = append([][20]byte(nil), p.Authorities...)
	clone.Exempt = append([][20]byte(nil), p.Exempt...)
	clone.Exchanges = append([][20]byte(nil), p.Exchanges...)
	clone.SellDailyCap = copyAmount(p.SellDailyCap)
	clone.TransferDailyCap = copyAmount(p.TransferDailyCap)
	return &clone
}

// IsAuthority reports membership in the authority set.
func (p *Policy) IsAuthority(addr [20]byte) bool {
	if p == nil {
		return false
	}
	for _, a := range p.Authorities {
		if a == addr {
			return true
		}
	}
	return false
}

// IsExchange reports membership in the designated exchange set.
func (p *Policy) IsExchange(addr [20]byte) bool {
	if p == nil {
		return false
	}
	for _, a := range p.Exchanges {
		if a == addr {
			return true
		}
	}
	return false
}

// TaxExempt reports whether the sender bypasses tax and rate limiting:
// privileged module addresses and configured exempt addresses qualify.
func (p *Policy) TaxExempt(addr [20]byte) bool {
	if p == nil {
		return false
	}
	if addr == p.MintAuthority || addr == p.TreasuryAddress || addr == p.StakingAddress {
		return true
	}
	for _, a := range p.Exempt {
		if a == addr {
			return true
		}
	}
	return false
}

// ActivityRecord tracks per-sender cooldown and rolling volume histories. It
// is created lazily on an address's first taxed transfer.
type ActivityRecord struct {
	LastTxAt        time.Time       `json:"last_tx_at"`
	SellHistory     limiter.History `json:"sell_history"`
	TransferHistory limiter.History `json:"transfer_history"`
}

// Clone returns a deep copy of the activity record.
func (r *ActivityRecord) Clone() *ActivityRecord {
	if r == nil {
		return &ActivityRecord{}
	}
	return &ActivityRecord{
		LastTxAt:        r.LastTxAt,
		SellHistory:     r.SellHistory.Clone(),
		TransferHistory: r.TransferHistory.Clone(),
	}
}

func copyAmount(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
