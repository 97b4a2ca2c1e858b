package state

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"kavochain/native/governance"
	"kavochain/native/multisig"
	"kavochain/native/staking"
	"kavochain/native/token"
	"kavochain/native/treasury"
)

// harness wires every engine to one shared ledger and clock, the way the
// daemon composes them.
type harness struct {
	ledger      *Ledger
	coordinator *multisig.Coordinator
	token       *token.Engine
	treasury    *treasury.Engine
	staking     *staking.Engine
	governance  *governance.Engine
	now         time.Time
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[0] = b
	return a
}

var (
	authorities  = [][20]byte{addr(0xa1), addr(0xa2), addr(0xa3), addr(0xa4), addr(0xa5)}
	treasuryAddr = addr(0xf1)
)

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ledger: NewLedger(),
		now:    time.Unix(1_700_000_000, 0).UTC(),
	}
	clock := func() time.Time { return h.now }

	h.coordinator = multisig.NewCoordinator()
	h.coordinator.SetState(h.ledger)
	h.coordinator.SetNowFunc(clock)
	if err := h.coordinator.SetPolicy(multisig.Policy{
		Authorities: authorities,
		Threshold:   2,
		Delay:       72 * time.Hour,
	}); err != nil {
		t.Fatalf("multisig policy: %v", err)
	}

	h.treasury = treasury.NewEngine()
	h.treasury.SetState(h.ledger)
	h.treasury.SetCoordinator(h.coordinator)
	h.treasury.SetNowFunc(clock)
	h.treasury.SetPolicy(treasury.Policy{
		WithdrawCap:    big.NewInt(1_000_000),
		WithdrawWindow: 24 * time.Hour,
	})
	if err := h.ledger.TreasuryPut(treasury.NewLedger(map[string]uint32{
		treasury.BucketBurn:       2_000,
		treasury.BucketLiquidity:  3_000,
		treasury.BucketGovernance: 3_000,
		treasury.BucketLPStaking:  2_000,
	})); err != nil {
		t.Fatalf("seed treasury: %v", err)
	}

	h.token = token.NewEngine()
	h.token.SetState(h.ledger)
	h.token.SetTaxSink(h.treasury)
	h.token.SetCoordinator(h.coordinator)
	h.token.SetNowFunc(clock)
	if err := h.ledger.TokenPolicyPut(&token.Policy{
		TotalMinted:     big.NewInt(0),
		MintAuthority:   addr(0xaa),
		Authorities:     authorities,
		TaxEnabled:      true,
		Rates:           token.TaxRates{BuyBps: 200, SellBps: 300, TransferBps: 100},
		TreasuryAddress: treasuryAddr,
		StakingAddress:  addr(0xbb),
	}); err != nil {
		t.Fatalf("seed token policy: %v", err)
	}

	h.staking = staking.NewEngine()
	h.staking.SetState(h.ledger)
	h.staking.SetNowFunc(clock)
	h.staking.SetParams(staking.Params{
		Tiers: []staking.Tier{
			{ID: 1, MinStake: big.NewInt(10_000), LockPeriod: 7 * 24 * time.Hour, WeeklyReward: big.NewInt(100), VotingPower: 3, AprBps: 1_000},
		},
		CooldownPeriod:              7 * 24 * time.Hour,
		MinHoldingPeriod:            24 * time.Hour,
		MinClaimInterval:            24 * time.Hour,
		MaxAccrualWeeks:             4,
		EmergencyPenaltyLockedBps:   2_500,
		EmergencyPenaltyUnlockedBps: 1_000,
	})
	if err := h.ledger.StakePoolPut(staking.NewPool([]staking.Tier{
		{ID: 1, MinStake: big.NewInt(10_000), LockPeriod: 7 * 24 * time.Hour, WeeklyReward: big.NewInt(100), VotingPower: 3, AprBps: 1_000},
	})); err != nil {
		t.Fatalf("seed pool: %v", err)
	}

	h.governance = governance.NewEngine()
	h.governance.SetState(h.ledger)
	h.governance.SetPowerSource(h.staking)
	h.governance.SetParamStore(NewParamStore(h.ledger))
	h.governance.SetNowFunc(clock)
	h.governance.SetPolicy(governance.Policy{
		VotingPeriod:   3 * 24 * time.Hour,
		ExecutionDelay: 24 * time.Hour,
		QuorumBps:      3_000,
		ApprovalBps:    6_000,
		MinYesPower:    1,
		AllowedParams:  AllowedParams(),
	})
	return h
}

func (h *harness) balance(t *testing.T, a [20]byte) *big.Int {
	t.Helper()
	account, err := h.ledger.GetAccount(a[:])
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return account.Balance
}

func TestTaxedTransferFundsTreasuryBuckets(t *testing.T) {
	h := newHarness(t)
	sender := addr(0x01)
	recipient := addr(0x02)
	if err := h.ledger.Credit(sender[:], big.NewInt(100_000)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	// Wallet-to-wallet at 100 bps: tax 100 on a 10,000 transfer.
	if err := h.token.Transfer(sender, recipient, big.NewInt(10_000)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := h.balance(t, recipient); got.Cmp(big.NewInt(9_900)) != 0 {
		t.Fatalf("recipient = %s, want 9900", got)
	}
	if got := h.balance(t, sender); got.Cmp(big.NewInt(90_000)) != 0 {
		t.Fatalf("sender = %s, want 90000", got)
	}

	balances, burned, err := h.treasury.Balances()
	if err != nil {
		t.Fatalf("treasury balances: %v", err)
	}
	if burned.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("burned = %s, want 20", burned)
	}
	want := map[string]int64{
		treasury.BucketLiquidity:  30,
		treasury.BucketGovernance: 30,
		treasury.BucketLPStaking:  20,
	}
	for bucket, amount := range want {
		if got := balances[bucket]; got == nil || got.Cmp(big.NewInt(amount)) != 0 {
			t.Fatalf("bucket %s = %v, want %d", bucket, got, amount)
		}
	}
}

// TestMultisigTaxChangeTimeline drives a 2-of-5 tax-rate change through the
// shared registry: never ready before the delay, effective after it, and
// consumed so a second apply fails.
func TestMultisigTaxChangeTimeline(t *testing.T) {
	h := newHarness(t)
	start := h.now

	id, err := h.coordinator.Propose(authorities[0], token.ActionKindSetTaxRates, []byte(`{"sell_bps":300}`))
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := h.coordinator.Confirm(authorities[0], id); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := h.coordinator.Confirm(authorities[1], id); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	ready, err := h.coordinator.IsReady(id)
	if err != nil {
		t.Fatalf("is ready: %v", err)
	}
	if ready {
		t.Fatal("action ready before delay")
	}
	rates := token.TaxRates{BuyBps: 200, SellBps: 300, TransferBps: 100}
	if err := h.token.SetTaxRates(rates, id); !errors.Is(err, multisig.ErrActionNotReady) {
		t.Fatalf("apply before delay err = %v, want ErrActionNotReady", err)
	}

	h.now = start.Add(72 * time.Hour)
	ready, err = h.coordinator.IsReady(id)
	if err != nil {
		t.Fatalf("is ready: %v", err)
	}
	if !ready {
		t.Fatal("action not ready after delay")
	}
	if err := h.token.SetTaxRates(rates, id); err != nil {
		t.Fatalf("apply: %v", err)
	}
	policy, err := h.token.ViewPolicy()
	if err != nil {
		t.Fatalf("view policy: %v", err)
	}
	if policy.Rates.SellBps != 300 {
		t.Fatalf("sell rate = %d, want 300", policy.Rates.SellBps)
	}

	if err := h.token.SetTaxRates(rates, id); !errors.Is(err, multisig.ErrActionNotFound) {
		t.Fatalf("replay err = %v, want ErrActionNotFound", err)
	}
}

func TestTreasuryWithdrawalRequiresArmedAction(t *testing.T) {
	h := newHarness(t)
	start := h.now
	recipient := addr(0x03)

	if err := h.treasury.ReceiveTax(big.NewInt(10_000)); err != nil {
		t.Fatalf("receive tax: %v", err)
	}

	id, err := h.coordinator.Propose(authorities[0], treasury.ActionKindWithdraw, nil)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	for _, authority := range authorities[:2] {
		if err := h.coordinator.Confirm(authority, id); err != nil {
			t.Fatalf("confirm: %v", err)
		}
	}

	if err := h.treasury.Withdraw(treasury.BucketLiquidity, big.NewInt(1_000), recipient, id); !errors.Is(err, multisig.ErrActionNotReady) {
		t.Fatalf("withdraw before delay err = %v, want ErrActionNotReady", err)
	}

	h.now = start.Add(72 * time.Hour)
	if err := h.treasury.Withdraw(treasury.BucketLiquidity, big.NewInt(1_000), recipient, id); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := h.balance(t, recipient); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("recipient = %s, want 1000", got)
	}
}

// TestStakingPowersGovernance exercises the full parameter-change loop: a
// staker earns voting power after lock expiry, passes a proposal, and the
// executed payload lands in the token policy.
func TestStakingPowersGovernance(t *testing.T) {
	h := newHarness(t)
	start := h.now
	staker := addr(0x04)
	funder := addr(0x05)
	if err := h.ledger.Credit(staker[:], big.NewInt(50_000)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := h.ledger.Credit(funder[:], big.NewInt(10_000)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := h.staking.FundReserve(funder, big.NewInt(10_000)); err != nil {
		t.Fatalf("fund reserve: %v", err)
	}

	if err := h.staking.Stake(staker, big.NewInt(10_000), 1); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if _, err := h.governance.SubmitProposal(staker, ParamTaxSellBps, "400"); !errors.Is(err, governance.ErrUnauthorized) {
		t.Fatalf("locked submit err = %v, want ErrUnauthorized", err)
	}

	// Lock expires; a claim activates voting power in the pool.
	h.now = start.Add(8 * 24 * time.Hour)
	if _, err := h.staking.Claim(staker); err != nil {
		t.Fatalf("claim: %v", err)
	}

	id, err := h.governance.SubmitProposal(staker, ParamTaxSellBps, "400")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := h.governance.Vote(staker, id, true); err != nil {
		t.Fatalf("vote: %v", err)
	}

	h.now = h.now.Add(3 * 24 * time.Hour)
	status, err := h.governance.FinalizeProposal(id)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if status != governance.StatusApproved {
		t.Fatalf("status = %v, want approved", status)
	}

	if err := h.governance.ExecuteProposal(id); !errors.Is(err, governance.ErrTimelockActive) {
		t.Fatalf("early execute err = %v, want ErrTimelockActive", err)
	}
	h.now = h.now.Add(24 * time.Hour)
	if err := h.governance.ExecuteProposal(id); err != nil {
		t.Fatalf("execute: %v", err)
	}

	policy, err := h.ledger.TokenPolicyGet()
	if err != nil {
		t.Fatalf("token policy: %v", err)
	}
	if policy.Rates.SellBps != 400 {
		t.Fatalf("sell rate = %d, want 400", policy.Rates.SellBps)
	}
}

func TestLedgerCopiesAtBoundaries(t *testing.T) {
	h := newHarness(t)
	owner := addr(0x06)
	if err := h.ledger.Credit(owner[:], big.NewInt(1_000)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	account, err := h.ledger.GetAccount(owner[:])
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	// Mutating the returned copy must not leak into the stored record.
	account.Balance.SetInt64(0)
	if got := h.balance(t, owner); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("stored balance mutated through alias: %s", got)
	}

	policy, err := h.ledger.TokenPolicyGet()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	policy.Rates.SellBps = 9_999
	stored, err := h.ledger.TokenPolicyGet()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	if stored.Rates.SellBps == 9_999 {
		t.Fatal("stored policy mutated through alias")
	}
}
