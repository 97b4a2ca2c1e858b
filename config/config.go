package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration persisted as TOML. Amount fields are
// decimal strings so arbitrarily large values survive the round trip.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	LogLevel      string `toml:"LogLevel"`
	LogFile       string `toml:"LogFile"`

	Token      TokenConfig      `toml:"token"`
	Treasury   TreasuryConfig   `toml:"treasury"`
	Multisig   MultisigConfig   `toml:"multisig"`
	Staking    StakingConfig    `toml:"staking"`
	Governance GovernanceConfig `toml:"governance"`
}

// TokenConfig carries the transfer controller knobs.
type TokenConfig struct {
	TaxEnabled       bool     `toml:"TaxEnabled"`
	BuyTaxBPS        uint32   `toml:"BuyTaxBPS"`
	SellTaxBPS       uint32   `toml:"SellTaxBPS"`
	TransferTaxBPS   uint32   `toml:"TransferTaxBPS"`
	CooldownSecs     uint64   `toml:"CooldownSecs"`
	SellDailyCap     string   `toml:"SellDailyCap"`
	TransferDailyCap string   `toml:"TransferDailyCap"`
	MintAuthority    string   `toml:"MintAuthority"`
	TreasuryAddress  string   `toml:"TreasuryAddress"`
	StakingAddress   string   `toml:"StakingAddress"`
	Authorities      []string `toml:"Authorities"`
	Exchanges        []string `toml:"Exchanges"`
	Exempt           []string `toml:"Exempt"`
}

// TreasuryConfig carries the allocator split and withdrawal throttle.
type TreasuryConfig struct {
	BurnBPS           uint32 `toml:"BurnBPS"`
	LiquidityBPS      uint32 `toml:"LiquidityBPS"`
	GovernanceBPS     uint32 `toml:"GovernanceBPS"`
	LPStakingBPS      uint32 `toml:"LPStakingBPS"`
	WithdrawCap       string `toml:"WithdrawCap"`
	WithdrawWindowSec uint64 `toml:"WithdrawWindowSecs"`
}

// MultisigConfig carries the coordinator membership and timelock delay.
type MultisigConfig struct {
	Authorities []string `toml:"Authorities"`
	Threshold   int      `toml:"Threshold"`
	DelaySecs   uint64   `toml:"DelaySecs"`
}

// StakingTierConfig describes one entry of the tier table.
type StakingTierConfig struct {
	ID           uint8  `toml:"ID"`
	MinStake     string `toml:"MinStake"`
	LockSecs     uint64 `toml:"LockSecs"`
	WeeklyReward string `toml:"WeeklyReward"`
	VotingPower  uint64 `toml:"VotingPower"`
	AprBPS       uint32 `toml:"AprBPS"`
}

// TaperBandConfig describes one APR tapering band.
type TaperBandConfig struct {
	Threshold string `toml:"Threshold"`
	FactorBPS uint32 `toml:"FactorBPS"`
}

// StakingConfig carries the reward engine knobs.
type StakingConfig struct {
	Tiers                       []StakingTierConfig `toml:"Tiers"`
	TaperBands                  []TaperBandConfig   `toml:"TaperBands"`
	CooldownSecs                uint64              `toml:"CooldownSecs"`
	MinHoldingSecs              uint64              `toml:"MinHoldingSecs"`
	MinClaimIntervalSecs        uint64              `toml:"MinClaimIntervalSecs"`
	MaxAccrualWeeks             uint64              `toml:"MaxAccrualWeeks"`
	EmergencyPenaltyLockedBPS   uint32              `toml:"EmergencyPenaltyLockedBPS"`
	EmergencyPenaltyUnlockedBPS uint32              `toml:"EmergencyPenaltyUnlockedBPS"`
	AprAdjustIntervalSecs       uint64              `toml:"AprAdjustIntervalSecs"`
}

// GovernanceConfig carries the proposal engine thresholds.
type GovernanceConfig struct {
	VotingPeriodSecs   uint64 `toml:"VotingPeriodSecs"`
	ExecutionDelaySecs uint64 `toml:"ExecutionDelaySecs"`
	QuorumBPS          uint32 `toml:"QuorumBPS"`
	PassThresholdBPS   uint32 `toml:"PassThresholdBPS"`
	MinYesPower        uint64 `toml:"MinYesPower"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists. The loaded configuration is validated before return.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":9090"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := defaultConfig()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		ListenAddress: ":9090",
		LogLevel:      "info",
		Token: TokenConfig{
			TaxEnabled:     true,
			BuyTaxBPS:      200,
			SellTaxBPS:     300,
			TransferTaxBPS: 100,
			CooldownSecs:   30,
		},
		Treasury: TreasuryConfig{
			BurnBPS:           2_000,
			LiquidityBPS:      3_000,
			GovernanceBPS:     3_000,
			LPStakingBPS:      2_000,
			WithdrawWindowSec: 86_400,
		},
		Multisig: MultisigConfig{
			Threshold: 2,
			DelaySecs: 259_200,
		},
		Staking: StakingConfig{
			Tiers: []StakingTierConfig{
				{ID: 1, MinStake: "250000", LockSecs: 604_800, WeeklyReward: "500", VotingPower: 1, AprBPS: 1_000},
				{ID: 2, MinStake: "1000000", LockSecs: 2_592_000, WeeklyReward: "3000", VotingPower: 5, AprBPS: 1_500},
				{ID: 3, MinStake: "5000000", LockSecs: 7_776_000, WeeklyReward: "20000", VotingPower: 25, AprBPS: 2_000},
			},
			CooldownSecs:                604_800,
			MinHoldingSecs:              1_209_600,
			MinClaimIntervalSecs:        86_400,
			MaxAccrualWeeks:             4,
			EmergencyPenaltyLockedBPS:   2_500,
			EmergencyPenaltyUnlockedBPS: 1_000,
			AprAdjustIntervalSecs:       86_400,
		},
		Governance: GovernanceConfig{
			VotingPeriodSecs:   259_200,
			ExecutionDelaySecs: 86_400,
			QuorumBPS:          3_000,
			PassThresholdBPS:   6_000,
			MinYesPower:        1,
		},
	}
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
