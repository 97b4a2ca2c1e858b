package governance

import "errors"

var (
	// ErrProposalNotFound is returned when the referenced proposal id is
	// unknown.
	ErrProposalNotFound = errors.New("governance: proposal not found")
	// ErrInvalidParam is returned when the proposal targets a parameter key
	// outside the allow list or carries an empty value.
	ErrInvalidParam = errors.New("governance: invalid parameter change")
	// ErrUnauthorized is returned when the caller holds no activated voting
	// power.
	ErrUnauthorized = errors.New("governance: caller has no voting power")
	// ErrAlreadyVoted is returned when a voter submits a second ballot on
	// the same proposal.
	ErrAlreadyVoted = errors.New("governance: already voted")
	// ErrVotingClosed is returned when a ballot arrives outside the voting
	// window or the proposal is no longer pending.
	ErrVotingClosed = errors.New("governance: voting closed")
	// ErrVotingOpen is returned when finalization is attempted before the
	// voting window ends.
	ErrVotingOpen = errors.New("governance: voting still open")
	// ErrProposalNotApproved is returned when execution targets a proposal
	// that did not pass.
	ErrProposalNotApproved = errors.New("governance: proposal not approved")
	// ErrTimelockActive is returned when execution is attempted before the
	// execution delay elapses.
	ErrTimelockActive = errors.New("governance: execution delay active")
)
