package governance

import (
	"errors"
	"strings"
	"time"

	"kavochain/core/events"
)

var errStateNotConfigured = errors.New("governance: state not configured")

type proposalState interface {
	GovernanceNextProposalID() (uint64, error)
	GovernancePut(*Proposal) error
	GovernanceGet(id uint64) (*Proposal, bool, error)
}

// powerSource reads activated voting power, typically backed by the staking
// engine.
type powerSource interface {
	VotingPower(owner [20]byte) (uint64, error)
	TotalVotingPower() (uint64, error)
}

// paramStore applies approved parameter changes to module configuration.
type paramStore interface {
	SetParam(key, value string) error
}

// Engine runs parameter-change proposals: submission, power-weighted voting,
// threshold finalization, and delayed execution through a param store.
type Engine struct {
	state   proposalState
	power   powerSource
	params  paramStore
	emitter events.Emitter
	nowFn   func() time.Time
	policy  Policy
}

// NewEngine constructs a governance engine with default no-op dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// SetState wires the engine to the proposal registry backend.
func (e *Engine) SetState(state proposalState) { e.state = state }

// SetPowerSource wires the voting-power reader.
func (e *Engine) SetPowerSource(power powerSource) { e.power = power }

// SetParamStore wires the configuration sink for executed proposals.
func (e *Engine) SetParamStore(params paramStore) { e.params = params }

// SetPolicy installs the acceptance thresholds and timing knobs.
func (e *Engine) SetPolicy(policy Policy) {
	if e == nil {
		return
	}
	e.policy = policy
	e.policy.AllowedParams = append([]string(nil), policy.AllowedParams...)
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Nil restores the default UTC clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() time.Time {
	if e == nil || e.nowFn == nil {
		return time.Now().UTC()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

// SubmitProposal opens a voting window for a parameter change. The submitter
// must hold activated voting power and the key must be allow-listed.
func (e *Engine) SubmitProposal(submitter [20]byte, key, value string) (uint64, error) {
	if e == nil || e.state == nil || e.power == nil {
		return 0, errStateNotConfigured
	}
	key = strings.TrimSpace(key)
	if key == "" || value == "" || !e.policy.Allows(key) {
		return 0, ErrInvalidParam
	}
	power, err := e.power.VotingPower(submitter)
	if err != nil {
		return 0, err
	}
	if power == 0 {
		return 0, ErrUnauthorized
	}
	id, err := e.state.GovernanceNextProposalID()
	if err != nil {
		return 0, err
	}
	now := e.now()
	proposal := &Proposal{
		ID:          id,
		Submitter:   submitter,
		ParamKey:    key,
		ParamValue:  value,
		VotingStart: now,
		VotingEnd:   now.Add(e.policy.VotingPeriod),
		Voters:      make(map[[20]byte]bool),
		Status:      StatusPending,
	}
	if err := e.state.GovernancePut(proposal); err != nil {
		return 0, err
	}
	e.emit(events.ProposalSubmitted{
		ID:          id,
		Kind:        key,
		Submitter:   submitter,
		VotingStart: proposal.VotingStart.Unix(),
		VotingEnd:   proposal.VotingEnd.Unix(),
	})
	return id, nil
}

// Vote records a power-weighted ballot. A voter may vote at most once.
func (e *Engine) Vote(voter [20]byte, id uint64, support bool) error {
	if e == nil || e.state == nil || e.power == nil {
		return errStateNotConfigured
	}
	proposal, ok, err := e.state.GovernanceGet(id)
	if err != nil {
		return err
	}
	if !ok || proposal == nil {
		return ErrProposalNotFound
	}
	now := e.now()
	if proposal.Status != StatusPending || now.Before(proposal.VotingStart) || !now.Before(proposal.VotingEnd) {
		return ErrVotingClosed
	}
	if proposal.Voters[voter] {
		return ErrAlreadyVoted
	}
	power, err := e.power.VotingPower(voter)
	if err != nil {
		return err
	}
	if power == 0 {
		return ErrUnauthorized
	}
	proposal.Voters[voter] = true
	if support {
		proposal.YesPower += power
	} else {
		proposal.NoPower += power
	}
	if err := e.state.GovernancePut(proposal); err != nil {
		return err
	}
	e.emit(events.VoteCast{ProposalID: id, Voter: voter, Support: support, Power: power})
	return nil
}

// FinalizeProposal tallies a proposal after its voting window. Approval
// requires turnout at or above quorum, a yes share at or above the approval
// threshold, and yes power at or above the absolute floor.
func (e *Engine) FinalizeProposal(id uint64) (ProposalStatus, error) {
	if e == nil || e.state == nil || e.power == nil {
		return StatusPending, errStateNotConfigured
	}
	proposal, ok, err := e.state.GovernanceGet(id)
	if err != nil {
		return StatusPending, err
	}
	if !ok || proposal == nil {
		return StatusPending, ErrProposalNotFound
	}
	if proposal.Status != StatusPending {
		return proposal.Status, nil
	}
	now := e.now()
	if now.Before(proposal.VotingEnd) {
		return StatusPending, ErrVotingOpen
	}

	total, err := e.power.TotalVotingPower()
	if err != nil {
		return StatusPending, err
	}
	turnout := proposal.YesPower + proposal.NoPower
	quorum := total * uint64(e.policy.QuorumBps) / 10_000

	approved := turnout >= quorum &&
		proposal.YesPower*10_000 >= uint64(e.policy.ApprovalBps)*turnout &&
		proposal.YesPower >= e.policy.MinYesPower
	if turnout == 0 {
		approved = false
	}
	if approved {
		proposal.Status = StatusApproved
	} else {
		proposal.Status = StatusRejected
	}
	if err := e.state.GovernancePut(proposal); err != nil {
		return StatusPending, err
	}
	e.emit(events.ProposalFinalized{
		ID:       id,
		Status:   proposal.Status.String(),
		YesPower: proposal.YesPower,
		NoPower:  proposal.NoPower,
		Turnout:  turnout,
		Quorum:   quorum,
	})
	return proposal.Status, nil
}

// ExecuteProposal applies an approved proposal's parameter change after the
// execution delay. Executing an already-executed proposal is a no-op so
// retries cannot apply a change twice.
func (e *Engine) ExecuteProposal(id uint64) error {
	if e == nil || e.state == nil || e.params == nil {
		return errStateNotConfigured
	}
	proposal, ok, err := e.state.GovernanceGet(id)
	if err != nil {
		return err
	}
	if !ok || proposal == nil {
		return ErrProposalNotFound
	}
	if proposal.Status != StatusApproved {
		return ErrProposalNotApproved
	}
	if proposal.Executed {
		return nil
	}
	if e.now().Before(proposal.VotingEnd.Add(e.policy.ExecutionDelay)) {
		return ErrTimelockActive
	}
	if err := e.params.SetParam(proposal.ParamKey, proposal.ParamValue); err != nil {
		return err
	}
	proposal.Executed = true
	if err := e.state.GovernancePut(proposal); err != nil {
		return err
	}
	e.emit(events.ProposalExecuted{ID: id, Kind: proposal.ParamKey})
	return nil
}

// ViewProposal returns a copy of the proposal if it exists.
func (e *Engine) ViewProposal(id uint64) (*Proposal, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errStateNotConfigured
	}
	proposal, ok, err := e.state.GovernanceGet(id)
	if err != nil {
		return nil, false, err
	}
	if !ok || proposal == nil {
		return nil, false, nil
	}
	return proposal.Clone(), true, nil
}
