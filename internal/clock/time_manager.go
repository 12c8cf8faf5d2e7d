// Package clock implements the simulated-time scheduler that drives the
// exchange simulator. Time is expressed in unix nanoseconds and only moves
// when the driver calls Advance.
package clock

import "container/heap"

// Event is invoked by the TimeManager when its due time is reached.
type Event interface {
	TimeEvent(now int64)
}

// EventFunc adapts a function to Event.
type EventFunc func(now int64)

// TimeEvent calls f(now).
func (f EventFunc) TimeEvent(now int64) { f(now) }

type entry struct {
	due int64
	seq uint64 // Registration order, breaks ties on equal due times
	ev  Event
}

type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)   { *h = append(*h, x.(entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = entry{}
	*h = old[:n-1]
	return e
}

// TimeManager delivers scheduled events in strictly increasing due-time
// order; events with equal due times fire in registration order.
// Single-threaded: Schedule may be called from inside a TimeEvent callback.
type TimeManager struct {
	now   int64
	seq   uint64
	queue entryHeap
}

// NewTimeManager creates a scheduler whose clock starts at start.
func NewTimeManager(start int64, capacity int) *TimeManager {
	return &TimeManager{
		now:   start,
		queue: make(entryHeap, 0, capacity),
	}
}

// Now returns the current simulated time. Inside a callback it is the due
// time of the event being delivered.
func (m *TimeManager) Now() int64 { return m.now }

// Schedule registers ev to fire at due. A due time in the past fires on the
// next Advance.
func (m *TimeManager) Schedule(due int64, ev Event) {
	m.seq++
	heap.Push(&m.queue, entry{due: due, seq: m.seq, ev: ev})
}

// Advance moves the clock to t, firing every event due at or before t.
// The clock never moves backwards.
func (m *TimeManager) Advance(t int64) {
	for len(m.queue) > 0 && m.queue[0].due <= t {
		e := heap.Pop(&m.queue).(entry)
		if e.due > m.now {
			m.now = e.due
		}
		e.ev.TimeEvent(m.now)
	}
	if t > m.now {
		m.now = t
	}
}

// Pending returns the number of registered, not yet delivered events.
func (m *TimeManager) Pending() int { return len(m.queue) }

// NextDue returns the earliest due time, if any.
func (m *TimeManager) NextDue() (int64, bool) {
	if len(m.queue) == 0 {
		return 0, false
	}
	return m.queue[0].due, true
}
