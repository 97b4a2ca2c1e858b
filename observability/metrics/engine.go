package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics exposes counters for the economic engine's emitted events.
type EngineMetrics struct {
	eventsTotal      *prometheus.CounterVec
	transfersTotal   *prometheus.CounterVec
	taxCollected     prometheus.Counter
	stakesActive     prometheus.Gauge
	proposalOutcomes *prometheus.CounterVec
}

var (
	engineOnce     sync.Once
	engineRegistry *EngineMetrics
)

// Engine returns the process-wide engine metrics, registering them on first
// use.
func Engine() *EngineMetrics {
	engineOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "kavo_engine_events_total",
				Help: "Count of engine events by type.",
			}, []string{"type"}),
			transfersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "kavo_transfers_total",
				Help: "Count of completed transfers by direction.",
			}, []string{"direction"}),
			taxCollected: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "kavo_tax_collected_total",
				Help: "Count of tax collections forwarded to the treasury.",
			}),
			stakesActive: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "kavo_stakes_active",
				Help: "Number of open stake positions.",
			}),
			proposalOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "kavo_proposal_outcomes_total",
				Help: "Count of finalized governance proposals by status.",
			}, []string{"status"}),
		}
		prometheus.MustRegister(
			engineRegistry.eventsTotal,
			engineRegistry.transfersTotal,
			engineRegistry.taxCollected,
			engineRegistry.stakesActive,
			engineRegistry.proposalOutcomes,
		)
	})
	return engineRegistry
}

// ObserveEvent counts one emitted event by its type string.
func (m *EngineMetrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.eventsTotal.WithLabelValues(eventType).Inc()
}

// ObserveTransfer counts one completed transfer by direction.
func (m *EngineMetrics) ObserveTransfer(direction string) {
	if m == nil {
		return
	}
	if direction == "" {
		direction = "transfer"
	}
	m.transfersTotal.WithLabelValues(direction).Inc()
}

// ObserveTaxCollected counts one tax forwarding to the treasury.
func (m *EngineMetrics) ObserveTaxCollected() {
	if m == nil {
		return
	}
	m.taxCollected.Inc()
}

// StakeOpened and StakeClosed track the live position gauge.
func (m *EngineMetrics) StakeOpened() {
	if m == nil {
		return
	}
	m.stakesActive.Inc()
}

// StakeClosed decrements the live position gauge.
func (m *EngineMetrics) StakeClosed() {
	if m == nil {
		return
	}
	m.stakesActive.Dec()
}

// ObserveProposalOutcome counts one finalized proposal by status.
func (m *EngineMetrics) ObserveProposalOutcome(status string) {
	if m == nil {
		return
	}
	if status == "" {
		status = "unknown"
	}
	m.proposalOutcomes.WithLabelValues(status).Inc()
}
