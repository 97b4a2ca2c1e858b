package governance

import "time"

// ProposalStatus tracks a proposal through its lifecycle.
type ProposalStatus uint8

const (
	// StatusPending marks a proposal inside or awaiting its voting window.
	StatusPending ProposalStatus = iota
	// StatusApproved marks a proposal that met quorum, approval ratio, and
	// the yes floor.
	StatusApproved
	// StatusRejected marks a proposal that failed any acceptance condition.
	StatusRejected
)

// String renders the status for events and logs.
func (s ProposalStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Proposal is a parameter-change ballot. Tallies hold voting power, not head
// counts; Voters prevents double ballots.
type Proposal struct {
	ID          uint64
	Submitter   [20]byte
	ParamKey    string
	ParamValue  string
	VotingStart time.Time
	VotingEnd   time.Time
	YesPower    uint64
	NoPower     uint64
	Voters      map[[20]byte]bool
	Status      ProposalStatus
	Executed    bool
}

// Clone returns a deep copy of the proposal.
func (p *Proposal) Clone() *Proposal {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Voters = make(map[[20]byte]bool, len(p.Voters))
	for voter, voted := range p.Voters {
		clone.Voters[voter] = voted
	}
	return &clone
}

// Policy carries the acceptance thresholds and timing knobs. QuorumBps is the
// minimum turnout as a fraction of total activated voting power; ApprovalBps
// is the minimum yes share of the votes cast; MinYesPower is an absolute
// floor so tiny electorates cannot pass changes alone.
type Policy struct {
	VotingPeriod   time.Duration
	ExecutionDelay time.Duration
	QuorumBps      uint32
	ApprovalBps    uint32
	MinYesPower    uint64
	AllowedParams  []string
}

// Allows reports whether the parameter key may be changed by proposal.
func (p Policy) Allows(key string) bool {
	for _, allowed := range p.AllowedParams {
		if allowed == key {
			return true
		}
	}
	return false
}
