package governance

import (
	"errors"
	"testing"
	"time"

	"kavochain/core/events"
)

type mockProposalState struct {
	nextID    uint64
	proposals map[uint64]*Proposal
}

func newMockProposalState() *mockProposalState {
	return &mockProposalState{nextID: 1, proposals: make(map[uint64]*Proposal)}
}

func (m *mockProposalState) GovernanceNextProposalID() (uint64, error) {
	id := m.nextID
	m.nextID++
	return id, nil
}

func (m *mockProposalState) GovernancePut(proposal *Proposal) error {
	m.proposals[proposal.ID] = proposal.Clone()
	return nil
}

func (m *mockProposalState) GovernanceGet(id uint64) (*Proposal, bool, error) {
	proposal, ok := m.proposals[id]
	if !ok {
		return nil, false, nil
	}
	return proposal.Clone(), true, nil
}

type mockPowerSource struct {
	powers map[[20]byte]uint64
	total  uint64
}

func (m *mockPowerSource) VotingPower(owner [20]byte) (uint64, error) {
	return m.powers[owner], nil
}

func (m *mockPowerSource) TotalVotingPower() (uint64, error) { return m.total, nil }

type mockParamStore struct {
	applied map[string]string
	err     error
}

func (m *mockParamStore) SetParam(key, value string) error {
	if m.err != nil {
		return m.err
	}
	if m.applied == nil {
		m.applied = make(map[string]string)
	}
	m.applied[key] = value
	return nil
}

type govEventRecorder struct {
	events []events.Event
}

func (r *govEventRecorder) Emit(evt events.Event) { r.events = append(r.events, evt) }

func govVoter(b byte) [20]byte {
	var voter [20]byte
	voter[0] = b
	return voter
}

func testPolicy() Policy {
	return Policy{
		VotingPeriod:   3 * 24 * time.Hour,
		ExecutionDelay: 24 * time.Hour,
		QuorumBps:      3_000,
		ApprovalBps:    6_000,
		MinYesPower:    10,
		AllowedParams:  []string{"token.tax.sell_bps", "staking.cooldown_seconds"},
	}
}

func newGovEngine(t *testing.T) (*Engine, *mockPowerSource, *mockParamStore, func(time.Time)) {
	t.Helper()
	power := &mockPowerSource{
		powers: map[[20]byte]uint64{
			govVoter(0x01): 25,
			govVoter(0x02): 25,
			govVoter(0x03): 5,
		},
		total: 100,
	}
	store := &mockParamStore{}
	engine := NewEngine()
	engine.SetState(newMockProposalState())
	engine.SetPowerSource(power)
	engine.SetParamStore(store)
	engine.SetPolicy(testPolicy())
	current := time.Unix(1_700_000_000, 0).UTC()
	engine.SetNowFunc(func() time.Time { return current })
	advance := func(to time.Time) { current = to }
	return engine, power, store, advance
}

func TestSubmitProposalRequiresPowerAndAllowedKey(t *testing.T) {
	engine, _, _, _ := newGovEngine(t)

	if _, err := engine.SubmitProposal(govVoter(0x01), "token.mint_authority", "x"); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("disallowed key err = %v, want ErrInvalidParam", err)
	}
	if _, err := engine.SubmitProposal(govVoter(0x09), "token.tax.sell_bps", "400"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("powerless submitter err = %v, want ErrUnauthorized", err)
	}
	id, err := engine.SubmitProposal(govVoter(0x01), "token.tax.sell_bps", "400")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	proposal, ok, err := engine.ViewProposal(id)
	if err != nil || !ok {
		t.Fatalf("view proposal: ok=%v err=%v", ok, err)
	}
	if proposal.Status != StatusPending {
		t.Fatalf("status = %v, want pending", proposal.Status)
	}
	if got := proposal.VotingEnd.Sub(proposal.VotingStart); got != 3*24*time.Hour {
		t.Fatalf("voting window = %v", got)
	}
}

func TestVoteTalliesPowerOnce(t *testing.T) {
	engine, _, _, advance := newGovEngine(t)
	start := time.Unix(1_700_000_000, 0).UTC()

	id, err := engine.SubmitProposal(govVoter(0x01), "token.tax.sell_bps", "400")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := engine.Vote(govVoter(0x01), id, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := engine.Vote(govVoter(0x01), id, false); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("double vote err = %v, want ErrAlreadyVoted", err)
	}
	if err := engine.Vote(govVoter(0x09), id, true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("powerless vote err = %v, want ErrUnauthorized", err)
	}
	if err := engine.Vote(govVoter(0x02), id, false); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := engine.Vote(govVoter(0x03), 99, true); !errors.Is(err, ErrProposalNotFound) {
		t.Fatalf("unknown proposal err = %v, want ErrProposalNotFound", err)
	}

	proposal, _, _ := engine.ViewProposal(id)
	if proposal.YesPower != 25 || proposal.NoPower != 25 {
		t.Fatalf("tallies = %d/%d, want 25/25", proposal.YesPower, proposal.NoPower)
	}

	advance(start.Add(3 * 24 * time.Hour))
	if err := engine.Vote(govVoter(0x03), id, true); !errors.Is(err, ErrVotingClosed) {
		t.Fatalf("late vote err = %v, want ErrVotingClosed", err)
	}
}

func TestFinalizeThresholds(t *testing.T) {
	cases := []struct {
		name    string
		yes, no []byte
		want    ProposalStatus
	}{
		// 50 yes of 100 total: quorum 30, approval 100%, floor met.
		{name: "approved", yes: []byte{0x01, 0x02}, want: StatusApproved},
		// Turnout 5 < quorum 30.
		{name: "quorum not met", yes: []byte{0x03}, want: StatusRejected},
		// Turnout 50, yes share 50% < 60% approval threshold.
		{name: "approval share too low", yes: []byte{0x01}, no: []byte{0x02}, want: StatusRejected},
		// Nobody voted.
		{name: "no turnout", want: StatusRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, _, _, advance := newGovEngine(t)
			start := time.Unix(1_700_000_000, 0).UTC()
			id, err := engine.SubmitProposal(govVoter(0x01), "token.tax.sell_bps", "400")
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			for _, voter := range tc.yes {
				if err := engine.Vote(govVoter(voter), id, true); err != nil {
					t.Fatalf("yes vote: %v", err)
				}
			}
			for _, voter := range tc.no {
				if err := engine.Vote(govVoter(voter), id, false); err != nil {
					t.Fatalf("no vote: %v", err)
				}
			}

			if _, err := engine.FinalizeProposal(id); !errors.Is(err, ErrVotingOpen) {
				t.Fatalf("early finalize err = %v, want ErrVotingOpen", err)
			}
			advance(start.Add(3 * 24 * time.Hour))
			status, err := engine.FinalizeProposal(id)
			if err != nil {
				t.Fatalf("finalize: %v", err)
			}
			if status != tc.want {
				t.Fatalf("status = %v, want %v", status, tc.want)
			}
		})
	}
}

func TestFinalizeEnforcesYesFloor(t *testing.T) {
	engine, power, _, advance := newGovEngine(t)
	start := time.Unix(1_700_000_000, 0).UTC()
	// A tiny electorate passes quorum and share but misses the absolute
	// yes floor.
	power.powers = map[[20]byte]uint64{govVoter(0x01): 5}
	power.total = 10

	id, err := engine.SubmitProposal(govVoter(0x01), "token.tax.sell_bps", "400")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := engine.Vote(govVoter(0x01), id, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	advance(start.Add(3 * 24 * time.Hour))
	status, err := engine.FinalizeProposal(id)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if status != StatusRejected {
		t.Fatalf("status = %v, want rejected below yes floor", status)
	}
}

func TestFinalizeIsIdempotentOnSettledProposals(t *testing.T) {
	engine, _, _, advance := newGovEngine(t)
	start := time.Unix(1_700_000_000, 0).UTC()

	id, _ := engine.SubmitProposal(govVoter(0x01), "token.tax.sell_bps", "400")
	if err := engine.Vote(govVoter(0x01), id, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := engine.Vote(govVoter(0x02), id, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	advance(start.Add(3 * 24 * time.Hour))
	if _, err := engine.FinalizeProposal(id); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	status, err := engine.FinalizeProposal(id)
	if err != nil {
		t.Fatalf("re-finalize: %v", err)
	}
	if status != StatusApproved {
		t.Fatalf("re-finalize status = %v, want approved", status)
	}
}

func TestExecuteAppliesAfterDelayOnce(t *testing.T) {
	engine, _, store, advance := newGovEngine(t)
	start := time.Unix(1_700_000_000, 0).UTC()

	id, _ := engine.SubmitProposal(govVoter(0x01), "token.tax.sell_bps", "400")
	if err := engine.Vote(govVoter(0x01), id, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := engine.Vote(govVoter(0x02), id, true); err != nil {
		t.Fatalf("vote: %v", err)
	}

	if err := engine.ExecuteProposal(id); !errors.Is(err, ErrProposalNotApproved) {
		t.Fatalf("execute before finalize err = %v, want ErrProposalNotApproved", err)
	}

	advance(start.Add(3 * 24 * time.Hour))
	if _, err := engine.FinalizeProposal(id); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := engine.ExecuteProposal(id); !errors.Is(err, ErrTimelockActive) {
		t.Fatalf("execute inside delay err = %v, want ErrTimelockActive", err)
	}

	advance(start.Add(4 * 24 * time.Hour))
	if err := engine.ExecuteProposal(id); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if store.applied["token.tax.sell_bps"] != "400" {
		t.Fatalf("param store = %v", store.applied)
	}

	// A retry is a harmless no-op.
	store.applied = nil
	if err := engine.ExecuteProposal(id); err != nil {
		t.Fatalf("re-execute: %v", err)
	}
	if len(store.applied) != 0 {
		t.Fatalf("re-execute reapplied params: %v", store.applied)
	}
}

func TestExecuteRejectedProposalFails(t *testing.T) {
	engine, _, _, advance := newGovEngine(t)
	start := time.Unix(1_700_000_000, 0).UTC()

	id, _ := engine.SubmitProposal(govVoter(0x01), "token.tax.sell_bps", "400")
	advance(start.Add(4 * 24 * time.Hour))
	if _, err := engine.FinalizeProposal(id); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := engine.ExecuteProposal(id); !errors.Is(err, ErrProposalNotApproved) {
		t.Fatalf("execute rejected err = %v, want ErrProposalNotApproved", err)
	}
}
