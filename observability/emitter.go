package observability

import (
	"log/slog"

	"kavochain/core/events"
	"kavochain/core/types"
	"kavochain/observability/metrics"
)

// Emitter is an events.Emitter that feeds engine events into structured logs
// and prometheus counters. It is the daemon's default emitter.
type Emitter struct {
	logger  *slog.Logger
	metrics *metrics.EngineMetrics
}

// NewEmitter builds an emitter over the supplied logger and the process-wide
// metrics registry.
func NewEmitter(logger *slog.Logger) *Emitter {
	return &Emitter{logger: logger, metrics: metrics.Engine()}
}

// Emit records the event in metrics and logs its attributes.
func (e *Emitter) Emit(evt events.Event) {
	if e == nil || evt == nil {
		return
	}
	e.metrics.ObserveEvent(evt.EventType())

	var payload *types.Event
	if provider, ok := evt.(interface{ Event() *types.Event }); ok {
		payload = provider.Event()
	}
	switch typed := evt.(type) {
	case events.Transfer:
		if typed.Taxed {
			e.metrics.ObserveTransfer(typed.Direction)
		}
	case events.TaxCollected:
		e.metrics.ObserveTaxCollected()
	case events.StakeCreated:
		e.metrics.StakeOpened()
	case events.StakeWithdrawn:
		e.metrics.StakeClosed()
	case events.StakeEmergencyExit:
		e.metrics.StakeClosed()
	case events.ProposalFinalized:
		e.metrics.ObserveProposalOutcome(typed.Status)
	}

	if e.logger == nil || payload == nil {
		return
	}
	args := make([]any, 0, len(payload.Attributes)*2)
	for key, value := range payload.Attributes {
		args = append(args, key, value)
	}
	e.logger.Info(payload.Type, args...)
}
