package config

import (
	"fmt"
	"math/big"
	"time"

	"kavochain/crypto"
	"kavochain/native/governance"
	"kavochain/native/multisig"
	"kavochain/native/staking"
	"kavochain/native/token"
	"kavochain/native/treasury"
)

func parseAddress(field, value string) ([20]byte, error) {
	var out [20]byte
	if value == "" {
		return out, nil
	}
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return out, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func parseAddressList(field string, values []string) ([][20]byte, error) {
	out := make([][20]byte, 0, len(values))
	for _, value := range values {
		addr, err := parseAddress(field, value)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func parseAmount(field, value string) (*big.Int, error) {
	if value == "" {
		return nil, nil
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q", field, value)
	}
	return amount, nil
}

// TokenPolicy parses the token section into the runtime policy record.
func (c *Config) TokenPolicy() (*token.Policy, error) {
	policy := &token.Policy{
		TotalMinted: big.NewInt(0),
		TaxEnabled:  c.Token.TaxEnabled,
		Rates: token.TaxRates{
			BuyBps:      c.Token.BuyTaxBPS,
			SellBps:     c.Token.SellTaxBPS,
			TransferBps: c.Token.TransferTaxBPS,
		},
		CooldownSeconds: c.Token.CooldownSecs,
	}
	var err error
	if policy.MintAuthority, err = parseAddress("token.MintAuthority", c.Token.MintAuthority); err != nil {
		return nil, err
	}
	if policy.TreasuryAddress, err = parseAddress("token.TreasuryAddress", c.Token.TreasuryAddress); err != nil {
		return nil, err
	}
	if policy.StakingAddress, err = parseAddress("token.StakingAddress", c.Token.StakingAddress); err != nil {
		return nil, err
	}
	if policy.Authorities, err = parseAddressList("token.Authorities", c.Token.Authorities); err != nil {
		return nil, err
	}
	if policy.Exchanges, err = parseAddressList("token.Exchanges", c.Token.Exchanges); err != nil {
		return nil, err
	}
	if policy.Exempt, err = parseAddressList("token.Exempt", c.Token.Exempt); err != nil {
		return nil, err
	}
	if policy.SellDailyCap, err = parseAmount("token.SellDailyCap", c.Token.SellDailyCap); err != nil {
		return nil, err
	}
	if policy.TransferDailyCap, err = parseAmount("token.TransferDailyCap", c.Token.TransferDailyCap); err != nil {
		return nil, err
	}
	return policy, nil
}

// TreasuryAllocation returns the configured bucket split.
func (c *Config) TreasuryAllocation() map[string]uint32 {
	return map[string]uint32{
		treasury.BucketBurn:       c.Treasury.BurnBPS,
		treasury.BucketLiquidity:  c.Treasury.LiquidityBPS,
		treasury.BucketGovernance: c.Treasury.GovernanceBPS,
		treasury.BucketLPStaking:  c.Treasury.LPStakingBPS,
	}
}

// TreasuryPolicy parses the withdrawal throttle settings.
func (c *Config) TreasuryPolicy() (treasury.Policy, error) {
	withdrawCap, err := parseAmount("treasury.WithdrawCap", c.Treasury.WithdrawCap)
	if err != nil {
		return treasury.Policy{}, err
	}
	return treasury.Policy{
		WithdrawCap:    withdrawCap,
		WithdrawWindow: time.Duration(c.Treasury.WithdrawWindowSec) * time.Second,
	}, nil
}

// MultisigPolicy parses the coordinator membership and delay.
func (c *Config) MultisigPolicy() (multisig.Policy, error) {
	authorities, err := parseAddressList("multisig.Authorities", c.Multisig.Authorities)
	if err != nil {
		return multisig.Policy{}, err
	}
	return multisig.Policy{
		Authorities: authorities,
		Threshold:   c.Multisig.Threshold,
		Delay:       time.Duration(c.Multisig.DelaySecs) * time.Second,
	}, nil
}

// StakingParams parses the tier table and reward engine knobs.
func (c *Config) StakingParams() (staking.Params, error) {
	params := staking.Params{
		CooldownPeriod:              time.Duration(c.Staking.CooldownSecs) * time.Second,
		MinHoldingPeriod:            time.Duration(c.Staking.MinHoldingSecs) * time.Second,
		MinClaimInterval:            time.Duration(c.Staking.MinClaimIntervalSecs) * time.Second,
		MaxAccrualWeeks:             c.Staking.MaxAccrualWeeks,
		EmergencyPenaltyLockedBps:   c.Staking.EmergencyPenaltyLockedBPS,
		EmergencyPenaltyUnlockedBps: c.Staking.EmergencyPenaltyUnlockedBPS,
		AprAdjustInterval:           time.Duration(c.Staking.AprAdjustIntervalSecs) * time.Second,
	}
	for _, tier := range c.Staking.Tiers {
		minStake, err := parseAmount("staking tier MinStake", tier.MinStake)
		if err != nil {
			return staking.Params{}, err
		}
		weekly, err := parseAmount("staking tier WeeklyReward", tier.WeeklyReward)
		if err != nil {
			return staking.Params{}, err
		}
		params.Tiers = append(params.Tiers, staking.Tier{
			ID:           tier.ID,
			MinStake:     minStake,
			LockPeriod:   time.Duration(tier.LockSecs) * time.Second,
			WeeklyReward: weekly,
			VotingPower:  tier.VotingPower,
			AprBps:       tier.AprBPS,
		})
	}
	for _, band := range c.Staking.TaperBands {
		threshold, err := parseAmount("staking taper Threshold", band.Threshold)
		if err != nil {
			return staking.Params{}, err
		}
		params.TaperBands = append(params.TaperBands, staking.TaperBand{
			Threshold: threshold,
			FactorBps: band.FactorBPS,
		})
	}
	return params, nil
}

// GovernancePolicy returns the proposal engine thresholds. The parameter
// allow list is supplied by the caller since it belongs to the param store.
func (c *Config) GovernancePolicy(allowedParams []string) governance.Policy {
	return governance.Policy{
		VotingPeriod:   time.Duration(c.Governance.VotingPeriodSecs) * time.Second,
		ExecutionDelay: time.Duration(c.Governance.ExecutionDelaySecs) * time.Second,
		QuorumBps:      c.Governance.QuorumBPS,
		ApprovalBps:    c.Governance.PassThresholdBPS,
		MinYesPower:    c.Governance.MinYesPower,
		AllowedParams:  allowedParams,
	}
}
