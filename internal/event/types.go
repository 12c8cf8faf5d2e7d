package event

import (
	"exchange_sim/internal/domain"
)

// Type identifies the payload of a sequenced event.
type Type uint8

const (
	TypeOrder Type = iota + 1
	TypeQuote
	TypeTick
)

func (t Type) String() string {
	switch t {
	case TypeOrder:
		return "ORDER"
	case TypeQuote:
		return "QUOTE"
	case TypeTick:
		return "TICK"
	default:
		return "UNKNOWN"
	}
}

// Event is an input to the Sequencer. Seq must be gapless starting at 1;
// Ts is the simulated time (Unix nanoseconds) the event happens at.
type Event interface {
	GetSeq() uint64
	GetTs() int64
	GetType() Type
}

// BaseEvent carries the fields shared by all events.
type BaseEvent struct {
	Seq uint64 `json:"seq"`
	Ts  int64  `json:"ts"`
}

func (e *BaseEvent) GetSeq() uint64 { return e.Seq }
func (e *BaseEvent) GetTs() int64   { return e.Ts }

// OrderEvent submits an order-entry message. The simulator keeps a pointer
// to Order until the order leaves the book, so these are never pooled.
type OrderEvent struct {
	BaseEvent
	Order *domain.Order `json:"order"`
}

func (e *OrderEvent) GetType() Type { return TypeOrder }

// QuoteEvent applies a top-of-book quote.
type QuoteEvent struct {
	BaseEvent
	Quote domain.Quote `json:"quote"`
}

func (e *QuoteEvent) GetType() Type { return TypeQuote }

// TickEvent only moves simulated time forward.
type TickEvent struct {
	BaseEvent
}

func (e *TickEvent) GetType() Type { return TypeTick }
