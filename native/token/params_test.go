package token

import (
	"errors"
	"math/big"
	"testing"

	"kavochain/native/multisig"
)

type mockConsumer struct {
	err      error
	consumed []uint64
}

func (m *mockConsumer) Consume(id uint64, expectKind string) (*multisig.Action, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.consumed = append(m.consumed, id)
	return &multisig.Action{ID: id, Kind: expectKind}, nil
}

func TestSetTaxRatesRequiresReadyAction(t *testing.T) {
	engine, state, _, _ := newTestEngine(testPolicy())
	consumer := &mockConsumer{err: multisig.ErrActionNotReady}
	engine.SetCoordinator(consumer)

	rates := TaxRates{BuyBps: 100, SellBps: 300, TransferBps: 100}
	if err := engine.SetTaxRates(rates, 1); !errors.Is(err, multisig.ErrActionNotReady) {
		t.Fatalf("expected ErrActionNotReady, got %v", err)
	}
	if state.policy.Rates.SellBps != 500 {
		t.Fatalf("rates must not change on failed action")
	}

	consumer.err = nil
	if err := engine.SetTaxRates(rates, 1); err != nil {
		t.Fatalf("set tax rates: %v", err)
	}
	if state.policy.Rates.SellBps != 300 {
		t.Fatalf("rates not applied")
	}
}

func TestSetTaxRatesBound(t *testing.T) {
	engine, _, _, _ := newTestEngine(testPolicy())
	engine.SetCoordinator(&mockConsumer{})
	if err := engine.SetTaxRates(TaxRates{SellBps: MaxTaxRateBps + 1}, 1); !errors.Is(err, ErrInvalidTaxRate) {
		t.Fatalf("expected ErrInvalidTaxRate, got %v", err)
	}
}

func TestSetPausedTogglesFlag(t *testing.T) {
	engine, state, _, _ := newTestEngine(testPolicy())
	engine.SetCoordinator(&mockConsumer{})

	if err := engine.SetPaused(true, 1); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !state.policy.Paused {
		t.Fatalf("pause flag not set")
	}
	if err := engine.Transfer(alice, bob, big.NewInt(0)); !errors.Is(err, ErrPaused) {
		t.Fatalf("expected ErrPaused after pause, got %v", err)
	}
	if err := engine.SetPaused(false, 2); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if state.policy.Paused {
		t.Fatalf("pause flag not cleared")
	}
}
