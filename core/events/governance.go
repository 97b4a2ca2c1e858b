package events

import (
	"kavochain/core/types"
	"kavochain/crypto"
)

const (
	// TypeProposalSubmitted is emitted when a new proposal is accepted.
	TypeProposalSubmitted = "gov.proposed"
	// TypeVoteCast is emitted when a voter records a ballot.
	TypeVoteCast = "gov.vote"
	// TypeProposalFinalized is emitted when the proposal outcome is determined.
	TypeProposalFinalized = "gov.finalized"
	// TypeProposalExecuted marks proposals whose payload has been applied.
	TypeProposalExecuted = "gov.executed"
)

// ProposalSubmitted captures a new governance proposal entering its vote.
type ProposalSubmitted struct {
	ID          uint64
	Kind        string
	Submitter   [20]byte
	VotingStart int64
	VotingEnd   int64
}

// EventType satisfies the Event interface.
func (ProposalSubmitted) EventType() string { return TypeProposalSubmitted }

// Event converts the structured payload into a broadcastable event.
func (e ProposalSubmitted) Event() *types.Event {
	return &types.Event{
		Type: TypeProposalSubmitted,
		Attributes: map[string]string{
			"id":          uintToString(e.ID),
			"kind":        e.Kind,
			"submitter":   crypto.MustNewAddress(crypto.KavoPrefix, e.Submitter[:]).String(),
			"votingStart": intToString(e.VotingStart),
			"votingEnd":   intToString(e.VotingEnd),
		},
	}
}

// VoteCast captures a recorded ballot and its voting power.
type VoteCast struct {
	ProposalID uint64
	Voter      [20]byte
	Support    bool
	Power      uint64
}

// EventType satisfies the Event interface.
func (VoteCast) EventType() string { return TypeVoteCast }

// Event converts the structured payload into a broadcastable event.
func (e VoteCast) Event() *types.Event {
	support := "no"
	if e.Support {
		support = "yes"
	}
	return &types.Event{
		Type: TypeVoteCast,
		Attributes: map[string]string{
			"id":      uintToString(e.ProposalID),
			"voter":   crypto.MustNewAddress(crypto.KavoPrefix, e.Voter[:]).String(),
			"support": support,
			"power":   uintToString(e.Power),
		},
	}
}

// ProposalFinalized captures the tally outcome of a proposal.
type ProposalFinalized struct {
	ID       uint64
	Status   string
	YesPower uint64
	NoPower  uint64
	Turnout  uint64
	Quorum   uint64
}

// EventType satisfies the Event interface.
func (ProposalFinalized) EventType() string { return TypeProposalFinalized }

// Event converts the structured payload into a broadcastable event.
func (e ProposalFinalized) Event() *types.Event {
	return &types.Event{
		Type: TypeProposalFinalized,
		Attributes: map[string]string{
			"id":       uintToString(e.ID),
			"status":   e.Status,
			"yesPower": uintToString(e.YesPower),
			"noPower":  uintToString(e.NoPower),
			"turnout":  uintToString(e.Turnout),
			"quorum":   uintToString(e.Quorum),
		},
	}
}

// ProposalExecuted captures a proposal payload applied to configuration.
type ProposalExecuted struct {
	ID   uint64
	Kind string
}

// EventType satisfies the Event interface.
func (ProposalExecuted) EventType() string { return TypeProposalExecuted }

// Event converts the structured payload into a broadcastable event.
func (e ProposalExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypeProposalExecuted,
		Attributes: map[string]string{
			"id":   uintToString(e.ID),
			"kind": e.Kind,
		},
	}
}
