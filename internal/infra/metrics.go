package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Written by the simulation thread, read from anywhere via Snapshot.
type Metrics struct {
	// Counters
	eventsProcessed  atomic.Uint64
	ordersDispatched atomic.Uint64
	fills            atomic.Uint64
	rejects          atomic.Uint64
	quotesApplied    atomic.Uint64
	quotesDropped    atomic.Uint64
	errorsTotal      atomic.Uint64

	// Wall-clock processing latency per sequenced event
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	pendingOrders atomic.Int64
	openOrders    atomic.Int64
}

// RecordEvent records an event processing with latency.
func (m *Metrics) RecordEvent(latencyNs int64) {
	m.eventsProcessed.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordDispatch records an order-entry message leaving the delay queue.
func (m *Metrics) RecordDispatch() {
	m.ordersDispatched.Add(1)
}

// RecordFill records a fill reported to a real order.
func (m *Metrics) RecordFill() {
	m.fills.Add(1)
}

// RecordReject records a rejected order-entry message.
func (m *Metrics) RecordReject() {
	m.rejects.Add(1)
}

// RecordQuote records a quote applied to a book (dropped = crossed input).
func (m *Metrics) RecordQuote(dropped bool) {
	if dropped {
		m.quotesDropped.Add(1)
		return
	}
	m.quotesApplied.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// SetPendingOrders sets the current delay-queue depth.
func (m *Metrics) SetPendingOrders(n int) {
	m.pendingOrders.Store(int64(n))
}

// SetOpenOrders sets the number of indexed (resting) real orders.
func (m *Metrics) SetOpenOrders(n int) {
	m.openOrders.Store(int64(n))
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	EventsProcessed  uint64
	OrdersDispatched uint64
	Fills            uint64
	Rejects          uint64
	QuotesApplied    uint64
	QuotesDropped    uint64
	ErrorsTotal      uint64
	AvgLatencyNs     int64
	PendingOrders    int64
	OpenOrders       int64
	Timestamp        time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		EventsProcessed:  m.eventsProcessed.Load(),
		OrdersDispatched: m.ordersDispatched.Load(),
		Fills:            m.fills.Load(),
		Rejects:          m.rejects.Load(),
		QuotesApplied:    m.quotesApplied.Load(),
		QuotesDropped:    m.quotesDropped.Load(),
		ErrorsTotal:      m.errorsTotal.Load(),
		AvgLatencyNs:     avgLatency,
		PendingOrders:    m.pendingOrders.Load(),
		OpenOrders:       m.openOrders.Load(),
		Timestamp:        time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.eventsProcessed.Store(0)
	m.ordersDispatched.Store(0)
	m.fills.Store(0)
	m.rejects.Store(0)
	m.quotesApplied.Store(0)
	m.quotesDropped.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.pendingOrders.Store(0)
	m.openOrders.Store(0)
}
