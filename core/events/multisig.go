package events

import (
	"kavochain/core/types"
	"kavochain/crypto"
)

const (
	// TypeActionProposed is emitted when an authority opens a new action.
	TypeActionProposed = "multisig.proposed"
	// TypeActionConfirmed records an authority confirmation.
	TypeActionConfirmed = "multisig.confirmed"
	// TypeActionArmed signals the confirmation threshold being reached and the
	// timelock starting.
	TypeActionArmed = "multisig.armed"
	// TypeActionExecuted marks the one-shot consumption of an action.
	TypeActionExecuted = "multisig.executed"
	// TypeActionCancelled marks an action removed before execution.
	TypeActionCancelled = "multisig.cancelled"
)

// ActionProposed captures a newly registered multisig action.
type ActionProposed struct {
	ID       uint64
	Kind     string
	Proposer [20]byte
}

// EventType satisfies the Event interface.
func (ActionProposed) EventType() string { return TypeActionProposed }

// Event converts the structured payload into a broadcastable event.
func (e ActionProposed) Event() *types.Event {
	return &types.Event{
		Type: TypeActionProposed,
		Attributes: map[string]string{
			"id":       uintToString(e.ID),
			"kind":     e.Kind,
			"proposer": crypto.MustNewAddress(crypto.KavoPrefix, e.Proposer[:]).String(),
		},
	}
}

// ActionConfirmed captures an additional authority signature.
type ActionConfirmed struct {
	ID            uint64
	Confirmer     [20]byte
	Confirmations int
}

// EventType satisfies the Event interface.
func (ActionConfirmed) EventType() string { return TypeActionConfirmed }

// Event converts the structured payload into a broadcastable event.
func (e ActionConfirmed) Event() *types.Event {
	return &types.Event{
		Type: TypeActionConfirmed,
		Attributes: map[string]string{
			"id":            uintToString(e.ID),
			"confirmer":     crypto.MustNewAddress(crypto.KavoPrefix, e.Confirmer[:]).String(),
			"confirmations": intToString(int64(e.Confirmations)),
		},
	}
}

// ActionArmed captures the timelock deadline set on threshold.
type ActionArmed struct {
	ID      uint64
	ReadyAt int64
}

// EventType satisfies the Event interface.
func (ActionArmed) EventType() string { return TypeActionArmed }

// Event converts the structured payload into a broadcastable event.
func (e ActionArmed) Event() *types.Event {
	return &types.Event{
		Type: TypeActionArmed,
		Attributes: map[string]string{
			"id":      uintToString(e.ID),
			"readyAt": intToString(e.ReadyAt),
		},
	}
}

// ActionExecuted captures the one-shot consumption of an action.
type ActionExecuted struct {
	ID   uint64
	Kind string
}

// EventType satisfies the Event interface.
func (ActionExecuted) EventType() string { return TypeActionExecuted }

// Event converts the structured payload into a broadcastable event.
func (e ActionExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypeActionExecuted,
		Attributes: map[string]string{
			"id":   uintToString(e.ID),
			"kind": e.Kind,
		},
	}
}

// ActionCancelled captures an action removed before execution.
type ActionCancelled struct {
	ID        uint64
	Canceller [20]byte
}

// EventType satisfies the Event interface.
func (ActionCancelled) EventType() string { return TypeActionCancelled }

// Event converts the structured payload into a broadcastable event.
func (e ActionCancelled) Event() *types.Event {
	return &types.Event{
		Type: TypeActionCancelled,
		Attributes: map[string]string{
			"id":        uintToString(e.ID),
			"canceller": crypto.MustNewAddress(crypto.KavoPrefix, e.Canceller[:]).String(),
		},
	}
}
