package multisig

import "time"

// Action captures a propose/confirm/execute-once protocol instance. The
// payload is opaque to the coordinator; consumers interpret it when the action
// is consumed. Actions are one-shot: consumption or cancellation removes them
// from the registry permanently.
type Action struct {
	ID            uint64     `json:"id"`
	Kind          string     `json:"kind"`
	Payload       []byte     `json:"payload"`
	Proposer      [20]byte   `json:"proposer"`
	Confirmations [][20]byte `json:"confirmations"`
	CreatedAt     time.Time  `json:"created_at"`
	// ReadyAt is zero until the confirmation threshold is reached, after
	// which it holds creation-threshold time plus the registry delay.
	ReadyAt time.Time `json:"ready_at"`
}

// Clone returns a deep copy of the action.
func (a *Action) Clone() *Action {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Payload = append([]byte(nil), a.Payload...)
	clone.Confirmations = make([][20]byte, len(a.Confirmations))
	copy(clone.Confirmations, a.Confirmations)
	return &clone
}

// Confirmed reports whether the supplied authority already confirmed.
func (a *Action) Confirmed(addr [20]byte) bool {
	if a == nil {
		return false
	}
	for _, c := range a.Confirmations {
		if c == addr {
			return true
		}
	}
	return false
}

// Armed reports whether the confirmation threshold has been reached.
func (a *Action) Armed() bool {
	return a != nil && !a.ReadyAt.IsZero()
}

// Policy configures a coordinator registry. Delay is fixed at registry
// creation and applies to every action it manages; separate use-cases (tax
// changes vs. pause toggles) run separate registries with their own delays.
type Policy struct {
	Authorities [][20]byte
	Threshold   int
	Delay       time.Duration
}
