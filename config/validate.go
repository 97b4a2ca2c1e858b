package config

import "fmt"

// MinVotingPeriodSecs bounds how short a governance voting window may be.
var MinVotingPeriodSecs = uint64(3_600)

// MaxTaxRateBPS mirrors the transfer controller's hard rate ceiling.
const MaxTaxRateBPS = 2_500

// Validate rejects configurations the engines would refuse at runtime.
func Validate(cfg *Config) error {
	if cfg.Token.BuyTaxBPS > MaxTaxRateBPS || cfg.Token.SellTaxBPS > MaxTaxRateBPS || cfg.Token.TransferTaxBPS > MaxTaxRateBPS {
		return fmt.Errorf("token: tax rate above %d bps", MaxTaxRateBPS)
	}
	allocation := cfg.Treasury.BurnBPS + cfg.Treasury.LiquidityBPS + cfg.Treasury.GovernanceBPS + cfg.Treasury.LPStakingBPS
	if allocation != 10_000 {
		return fmt.Errorf("treasury: allocation sums to %d bps, want 10000", allocation)
	}
	if cfg.Multisig.Threshold <= 0 {
		return fmt.Errorf("multisig: threshold must be positive")
	}
	if len(cfg.Multisig.Authorities) > 0 && cfg.Multisig.Threshold > len(cfg.Multisig.Authorities) {
		return fmt.Errorf("multisig: threshold %d exceeds %d authorities", cfg.Multisig.Threshold, len(cfg.Multisig.Authorities))
	}
	if len(cfg.Staking.Tiers) == 0 {
		return fmt.Errorf("staking: no tiers configured")
	}
	seen := make(map[uint8]bool, len(cfg.Staking.Tiers))
	for _, tier := range cfg.Staking.Tiers {
		if tier.ID == 0 {
			return fmt.Errorf("staking: tier id 0 is reserved")
		}
		if seen[tier.ID] {
			return fmt.Errorf("staking: duplicate tier id %d", tier.ID)
		}
		seen[tier.ID] = true
	}
	if cfg.Staking.EmergencyPenaltyLockedBPS > 10_000 || cfg.Staking.EmergencyPenaltyUnlockedBPS > 10_000 {
		return fmt.Errorf("staking: emergency penalty above 10000 bps")
	}
	for _, band := range cfg.Staking.TaperBands {
		if band.FactorBPS > 10_000 {
			return fmt.Errorf("staking: taper factor above 10000 bps")
		}
	}
	if cfg.Governance.VotingPeriodSecs < MinVotingPeriodSecs {
		return fmt.Errorf("governance: voting period below %d seconds", MinVotingPeriodSecs)
	}
	if cfg.Governance.QuorumBPS > 10_000 || cfg.Governance.PassThresholdBPS > 10_000 {
		return fmt.Errorf("governance: threshold above 10000 bps")
	}
	return nil
}
