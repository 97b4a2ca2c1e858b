package multisig

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"kavochain/core/events"
)

var errStateNotConfigured = errors.New("multisig: state not configured")

type registryState interface {
	MultisigNextActionID() (uint64, error)
	MultisigPutAction(*Action) error
	MultisigGetAction(id uint64) (*Action, bool, error)
	MultisigDeleteAction(id uint64) error
}

// Coordinator orchestrates the propose/confirm/ready/execute-once protocol for
// a single registry of actions sharing one authority set, threshold, and
// timelock delay.
type Coordinator struct {
	state       registryState
	emitter     events.Emitter
	nowFn       func() time.Time
	authorities map[[20]byte]struct{}
	threshold   int
	delay       time.Duration
}

// NewCoordinator constructs a coordinator with default no-op dependencies.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		emitter:     events.NoopEmitter{},
		nowFn:       func() time.Time { return time.Now().UTC() },
		authorities: map[[20]byte]struct{}{},
	}
}

// SetState wires the coordinator to the state backend providing persistence.
func (c *Coordinator) SetState(state registryState) { c.state = state }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (c *Coordinator) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		c.emitter = events.NoopEmitter{}
		return
	}
	c.emitter = emitter
}

// SetNowFunc overrides the time source. Nil restores the default UTC clock.
func (c *Coordinator) SetNowFunc(now func() time.Time) {
	if now == nil {
		c.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	c.nowFn = now
}

// SetPolicy installs the authority set, confirmation threshold, and fixed
// delay for the registry. The threshold must be positive and not exceed the
// authority count.
func (c *Coordinator) SetPolicy(policy Policy) error {
	if c == nil {
		return errStateNotConfigured
	}
	if policy.Threshold <= 0 || policy.Threshold > len(policy.Authorities) {
		return fmt.Errorf("%w: threshold %d with %d authorities", ErrInvalidPolicy, policy.Threshold, len(policy.Authorities))
	}
	if policy.Delay < 0 {
		return fmt.Errorf("%w: negative delay", ErrInvalidPolicy)
	}
	authorities := make(map[[20]byte]struct{}, len(policy.Authorities))
	for _, addr := range policy.Authorities {
		authorities[addr] = struct{}{}
	}
	c.authorities = authorities
	c.threshold = policy.Threshold
	c.delay = policy.Delay
	return nil
}

// IsAuthority reports whether the supplied address belongs to the registry's
// authority set.
func (c *Coordinator) IsAuthority(addr [20]byte) bool {
	if c == nil {
		return false
	}
	_, ok := c.authorities[addr]
	return ok
}

func (c *Coordinator) now() time.Time {
	if c == nil || c.nowFn == nil {
		return time.Now().UTC()
	}
	return c.nowFn()
}

func (c *Coordinator) emit(evt events.Event) {
	if c == nil || c.emitter == nil || evt == nil {
		return
	}
	c.emitter.Emit(evt)
}

// Propose registers a new action with an empty confirmation set. Only
// authorities may propose.
func (c *Coordinator) Propose(caller [20]byte, kind string, payload []byte) (uint64, error) {
	if c == nil || c.state == nil {
		return 0, errStateNotConfigured
	}
	if !c.IsAuthority(caller) {
		return 0, ErrUnauthorized
	}
	trimmedKind := strings.TrimSpace(kind)
	if trimmedKind == "" {
		return 0, fmt.Errorf("multisig: action kind must not be empty")
	}
	id, err := c.state.MultisigNextActionID()
	if err != nil {
		return 0, err
	}
	action := &Action{
		ID:        id,
		Kind:      trimmedKind,
		Payload:   append([]byte(nil), payload...),
		Proposer:  caller,
		CreatedAt: c.now(),
	}
	if err := c.state.MultisigPutAction(action); err != nil {
		return 0, err
	}
	c.emit(events.ActionProposed{ID: id, Kind: trimmedKind, Proposer: caller})
	return id, nil
}

// Confirm records the caller's approval. Re-confirming is a no-op so that the
// confirmation count stays monotonic. Reaching the threshold arms the action
// with ReadyAt = now + delay.
func (c *Coordinator) Confirm(caller [20]byte, id uint64) error {
	if c == nil || c.state == nil {
		return errStateNotConfigured
	}
	if !c.IsAuthority(caller) {
		return ErrUnauthorized
	}
	action, ok, err := c.state.MultisigGetAction(id)
	if err != nil {
		return err
	}
	if !ok || action == nil {
		return ErrActionNotFound
	}
	if action.Confirmed(caller) {
		return nil
	}
	action.Confirmations = append(action.Confirmations, caller)
	armed := false
	if !action.Armed() && len(action.Confirmations) >= c.threshold {
		action.ReadyAt = c.now().Add(c.delay)
		armed = true
	}
	if err := c.state.MultisigPutAction(action); err != nil {
		return err
	}
	c.emit(events.ActionConfirmed{ID: id, Confirmer: caller, Confirmations: len(action.Confirmations)})
	if armed {
		c.emit(events.ActionArmed{ID: id, ReadyAt: action.ReadyAt.Unix()})
	}
	return nil
}

// IsReady reports whether the action is armed and its timelock has elapsed.
func (c *Coordinator) IsReady(id uint64) (bool, error) {
	if c == nil || c.state == nil {
		return false, errStateNotConfigured
	}
	action, ok, err := c.state.MultisigGetAction(id)
	if err != nil {
		return false, err
	}
	if !ok || action == nil {
		return false, ErrActionNotFound
	}
	if !action.Armed() {
		return false, nil
	}
	return !c.now().Before(action.ReadyAt), nil
}

// Consume removes a ready action of the expected kind and returns it to the
// caller. Consumption is one-shot: a second consume of the same id fails with
// ErrActionNotFound.
func (c *Coordinator) Consume(id uint64, expectKind string) (*Action, error) {
	if c == nil || c.state == nil {
		return nil, errStateNotConfigured
	}
	action, ok, err := c.state.MultisigGetAction(id)
	if err != nil {
		return nil, err
	}
	if !ok || action == nil {
		return nil, ErrActionNotFound
	}
	if NormalizeKind(action.Kind) != NormalizeKind(expectKind) {
		return nil, ErrKindMismatch
	}
	if !action.Armed() || c.now().Before(action.ReadyAt) {
		return nil, ErrActionNotReady
	}
	if err := c.state.MultisigDeleteAction(id); err != nil {
		return nil, err
	}
	c.emit(events.ActionExecuted{ID: id, Kind: action.Kind})
	return action, nil
}

// Cancel removes an unexecuted action. Any authority may cancel.
func (c *Coordinator) Cancel(caller [20]byte, id uint64) error {
	if c == nil || c.state == nil {
		return errStateNotConfigured
	}
	if !c.IsAuthority(caller) {
		return ErrUnauthorized
	}
	_, ok, err := c.state.MultisigGetAction(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrActionNotFound
	}
	if err := c.state.MultisigDeleteAction(id); err != nil {
		return err
	}
	c.emit(events.ActionCancelled{ID: id, Canceller: caller})
	return nil
}

// NormalizeKind canonicalises action kinds for consistent comparisons.
func NormalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}
