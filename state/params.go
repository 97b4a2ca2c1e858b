package state

import (
	"fmt"
	"math/big"
	"strconv"

	"kavochain/native/token"
)

// Parameter keys accepted from approved governance proposals.
const (
	ParamTaxBuyBps        = "token.tax.buy_bps"
	ParamTaxSellBps       = "token.tax.sell_bps"
	ParamTaxTransferBps   = "token.tax.transfer_bps"
	ParamCooldownSeconds  = "token.cooldown_seconds"
	ParamSellDailyCap     = "token.sell_daily_cap"
	ParamTransferDailyCap = "token.transfer_daily_cap"
)

// AllowedParams lists every key the param store can apply, in the order they
// should appear in governance policy allow lists.
func AllowedParams() []string {
	return []string{
		ParamTaxBuyBps,
		ParamTaxSellBps,
		ParamTaxTransferBps,
		ParamCooldownSeconds,
		ParamSellDailyCap,
		ParamTransferDailyCap,
	}
}

// ParamStore applies approved governance parameter changes directly to the
// ledger's configuration records. Authorization happens upstream in the
// governance engine; this layer only validates value shape and bounds.
type ParamStore struct {
	ledger *Ledger
}

// NewParamStore wraps the ledger for governance execution.
func NewParamStore(ledger *Ledger) *ParamStore {
	return &ParamStore{ledger: ledger}
}

// SetParam parses and applies one parameter change.
func (s *ParamStore) SetParam(key, value string) error {
	if s == nil || s.ledger == nil {
		return fmt.Errorf("state: param store not configured")
	}
	policy, err := s.ledger.TokenPolicyGet()
	if err != nil {
		return err
	}
	switch key {
	case ParamTaxBuyBps, ParamTaxSellBps, ParamTaxTransferBps:
		bps, err := parseBps(value)
		if err != nil {
			return err
		}
		switch key {
		case ParamTaxBuyBps:
			policy.Rates.BuyBps = bps
		case ParamTaxSellBps:
			policy.Rates.SellBps = bps
		default:
			policy.Rates.TransferBps = bps
		}
	case ParamCooldownSeconds:
		seconds, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("state: invalid cooldown %q: %w", value, err)
		}
		policy.CooldownSeconds = seconds
	case ParamSellDailyCap, ParamTransferDailyCap:
		limit, ok := new(big.Int).SetString(value, 10)
		if !ok || limit.Sign() < 0 {
			return fmt.Errorf("state: invalid cap %q", value)
		}
		if key == ParamSellDailyCap {
			policy.SellDailyCap = limit
		} else {
			policy.TransferDailyCap = limit
		}
	default:
		return fmt.Errorf("state: unknown parameter %q", key)
	}
	return s.ledger.TokenPolicyPut(policy)
}

func parseBps(value string) (uint32, error) {
	bps, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("state: invalid basis points %q: %w", value, err)
	}
	if bps > token.MaxTaxRateBps {
		return 0, fmt.Errorf("state: tax rate %d above maximum %d", bps, token.MaxTaxRateBps)
	}
	return uint32(bps), nil
}
