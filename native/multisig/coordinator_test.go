package multisig

import (
	"errors"
	"testing"
	"time"

	"kavochain/core/events"
)

type mockRegistryState struct {
	actions map[uint64]*Action
	nextID  uint64
}

func newMockRegistryState() *mockRegistryState {
	return &mockRegistryState{actions: make(map[uint64]*Action)}
}

func (m *mockRegistryState) MultisigNextActionID() (uint64, error) {
	m.nextID++
	return m.nextID, nil
}

func (m *mockRegistryState) MultisigPutAction(a *Action) error {
	if a == nil {
		return nil
	}
	m.actions[a.ID] = a.Clone()
	return nil
}

func (m *mockRegistryState) MultisigGetAction(id uint64) (*Action, bool, error) {
	action, ok := m.actions[id]
	if !ok {
		return nil, false, nil
	}
	return action.Clone(), true, nil
}

func (m *mockRegistryState) MultisigDeleteAction(id uint64) error {
	delete(m.actions, id)
	return nil
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func testAuthorities(n int) [][20]byte {
	addrs := make([][20]byte, n)
	for i := range addrs {
		addrs[i][19] = byte(i + 1)
	}
	return addrs
}

func newTestCoordinator(t *testing.T, threshold int, delay time.Duration, authorities [][20]byte) (*Coordinator, *mockRegistryState, *time.Time) {
	t.Helper()
	coordinator := NewCoordinator()
	state := newMockRegistryState()
	coordinator.SetState(state)
	current := time.Unix(1_700_000_000, 0).UTC()
	coordinator.SetNowFunc(func() time.Time { return current })
	if err := coordinator.SetPolicy(Policy{Authorities: authorities, Threshold: threshold, Delay: delay}); err != nil {
		t.Fatalf("set policy: %v", err)
	}
	return coordinator, state, &current
}

func TestProposeRequiresAuthority(t *testing.T) {
	authorities := testAuthorities(3)
	coordinator, _, _ := newTestCoordinator(t, 2, time.Hour, authorities)

	outsider := [20]byte{0xff}
	if _, err := coordinator.Propose(outsider, "treasury.withdraw", nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := coordinator.Propose(authorities[0], "treasury.withdraw", nil); err != nil {
		t.Fatalf("authority propose failed: %v", err)
	}
}

func TestReadyRequiresThresholdAndDelay(t *testing.T) {
	authorities := testAuthorities(5)
	delay := 72 * time.Hour
	coordinator, _, current := newTestCoordinator(t, 2, delay, authorities)

	id, err := coordinator.Propose(authorities[0], "token.setTaxRate", []byte(`{"sellTaxBps":300}`))
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	if err := coordinator.Confirm(authorities[0], id); err != nil {
		t.Fatalf("confirm 1: %v", err)
	}
	ready, err := coordinator.IsReady(id)
	if err != nil || ready {
		t.Fatalf("one confirmation must not be ready (ready=%v err=%v)", ready, err)
	}

	if err := coordinator.Confirm(authorities[1], id); err != nil {
		t.Fatalf("confirm 2: %v", err)
	}
	// Threshold reached, but the timelock has not elapsed.
	if ready, _ := coordinator.IsReady(id); ready {
		t.Fatalf("action must not be ready before the delay elapses")
	}

	*current = current.Add(delay - time.Second)
	if ready, _ := coordinator.IsReady(id); ready {
		t.Fatalf("action must not be ready one second early")
	}

	*current = current.Add(time.Second)
	if ready, _ := coordinator.IsReady(id); !ready {
		t.Fatalf("action must be ready once the delay elapses")
	}
}

func TestReconfirmIsNoOp(t *testing.T) {
	authorities := testAuthorities(3)
	coordinator, state, _ := newTestCoordinator(t, 3, time.Hour, authorities)

	id, err := coordinator.Propose(authorities[0], "token.pause", nil)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := coordinator.Confirm(authorities[0], id); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := coordinator.Confirm(authorities[0], id); err != nil {
		t.Fatalf("re-confirm must be a no-op, got %v", err)
	}
	action, ok, _ := state.MultisigGetAction(id)
	if !ok || len(action.Confirmations) != 1 {
		t.Fatalf("expected a single confirmation, got %d", len(action.Confirmations))
	}
	if action.Armed() {
		t.Fatalf("action must not arm below threshold")
	}
}

func TestConsumeIsOneShot(t *testing.T) {
	authorities := testAuthorities(5)
	delay := 72 * time.Hour
	coordinator, _, current := newTestCoordinator(t, 2, delay, authorities)
	emitter := &captureEmitter{}
	coordinator.SetEmitter(emitter)

	id, err := coordinator.Propose(authorities[0], "token.setTaxRate", []byte(`{"sellTaxBps":300}`))
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := coordinator.Confirm(authorities[0], id); err != nil {
		t.Fatalf("confirm 1: %v", err)
	}
	if err := coordinator.Confirm(authorities[1], id); err != nil {
		t.Fatalf("confirm 2: %v", err)
	}

	if _, err := coordinator.Consume(id, "token.setTaxRate"); !errors.Is(err, ErrActionNotReady) {
		t.Fatalf("expected ErrActionNotReady before delay, got %v", err)
	}

	*current = current.Add(delay)
	action, err := coordinator.Consume(id, "token.setTaxRate")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if action == nil || string(action.Payload) != `{"sellTaxBps":300}` {
		t.Fatalf("unexpected consumed action payload")
	}

	if _, err := coordinator.Consume(id, "token.setTaxRate"); !errors.Is(err, ErrActionNotFound) {
		t.Fatalf("second consume must fail ErrActionNotFound, got %v", err)
	}
}

func TestConsumeChecksKind(t *testing.T) {
	authorities := testAuthorities(2)
	coordinator, _, current := newTestCoordinator(t, 1, time.Minute, authorities)

	id, err := coordinator.Propose(authorities[0], "treasury.withdraw", nil)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := coordinator.Confirm(authorities[0], id); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	*current = current.Add(time.Minute)
	if _, err := coordinator.Consume(id, "token.pause"); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", err)
	}
}

func TestCancelRemovesAction(t *testing.T) {
	authorities := testAuthorities(3)
	coordinator, _, _ := newTestCoordinator(t, 2, time.Hour, authorities)

	id, err := coordinator.Propose(authorities[0], "token.pause", nil)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := coordinator.Cancel(authorities[1], id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := coordinator.Confirm(authorities[0], id); !errors.Is(err, ErrActionNotFound) {
		t.Fatalf("expected ErrActionNotFound after cancel, got %v", err)
	}
}
