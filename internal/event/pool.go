package event

import (
	"sync"
)

// Quote and tick events are pooled to keep replay allocation-free.
//
// Usage:
//
//	ev := AcquireQuoteEvent()
//	ev.Quote = q
//	// ... process ...
//	ReleaseQuoteEvent(ev)  // Return to pool after processing
var quotePool = sync.Pool{
	New: func() any {
		return &QuoteEvent{}
	},
}

// AcquireQuoteEvent gets a QuoteEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireQuoteEvent() *QuoteEvent {
	return quotePool.Get().(*QuoteEvent)
}

// ReleaseQuoteEvent resets ev and returns it to the pool.
func ReleaseQuoteEvent(ev *QuoteEvent) {
	if ev == nil {
		return
	}
	*ev = QuoteEvent{}
	quotePool.Put(ev)
}

var tickPool = sync.Pool{
	New: func() any {
		return &TickEvent{}
	},
}

// AcquireTickEvent gets a TickEvent from the pool.
func AcquireTickEvent() *TickEvent {
	return tickPool.Get().(*TickEvent)
}

// ReleaseTickEvent resets ev and returns it to the pool.
func ReleaseTickEvent(ev *TickEvent) {
	if ev == nil {
		return
	}
	*ev = TickEvent{}
	tickPool.Put(ev)
}

// Release returns pooled events to their pool. Other events are ignored.
func Release(ev Event) {
	switch e := ev.(type) {
	case *QuoteEvent:
		ReleaseQuoteEvent(e)
	case *TickEvent:
		ReleaseTickEvent(e)
	}
}

// Warmup pre-allocates event objects to reduce GC pressure at startup.
// It acquires and releases a batch of events.
func Warmup() {
	const batchSize = 1000

	quotes := make([]*QuoteEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		quotes = append(quotes, AcquireQuoteEvent())
	}
	for _, ev := range quotes {
		ReleaseQuoteEvent(ev)
	}

	ticks := make([]*TickEvent, 0, batchSize/10)
	for i := 0; i < batchSize/10; i++ {
		ticks = append(ticks, AcquireTickEvent())
	}
	for _, ev := range ticks {
		ReleaseTickEvent(ev)
	}
}
