package domain

import "math"

// Price is a limit price in integer ticks.
type Price uint32

// Qty is a share quantity.
type Qty uint32

const (
	// NoBid is the best-bid sentinel of an empty bid side.
	NoBid Price = 0
	// NoAsk is the best-ask sentinel of an empty ask side.
	NoAsk Price = math.MaxUint32
)

// Side of the book an order rests on.
type Side uint8

const (
	Bid Side = iota
	Ask
)

// Opposite returns the other side.
func (s Side) Opposite() Side { return s ^ 1 }

// String returns the string representation of Side
func (s Side) String() string {
	switch s {
	case Bid:
		return "BID"
	case Ask:
		return "ASK"
	default:
		return "UNKNOWN"
	}
}

// Sentinel returns the "no interest" best price of the side.
func (s Side) Sentinel() Price {
	if s == Bid {
		return NoBid
	}
	return NoAsk
}

// Better reports whether price a is strictly more aggressive than b on this side.
func (s Side) Better(a, b Price) bool {
	if s == Bid {
		return a > b
	}
	return a < b
}

// Crosses reports whether an order on this side at price is marketable
// against opposite-side interest at opposite.
func (s Side) Crosses(price, opposite Price) bool {
	if s == Bid {
		return price >= opposite
	}
	return price <= opposite
}

// MsgKind is the order-entry message type.
type MsgKind uint8

const (
	NewOrder MsgKind = iota + 1
	CancelRequest
	ReplaceRequest
	StatusRequest
)

// String returns the string representation of MsgKind
func (k MsgKind) String() string {
	switch k {
	case NewOrder:
		return "NEW_ORDER"
	case CancelRequest:
		return "CANCEL_REQUEST"
	case ReplaceRequest:
		return "REPLACE_REQUEST"
	case StatusRequest:
		return "STATUS_REQUEST"
	default:
		return "UNKNOWN"
	}
}

// Order is an order-entry message from a trading algorithm.
// The simulator reads it but never mutates it; the caller must not modify an
// Order after submitting it.
type Order struct {
	ClOrdID      uint64
	OrigClOrdID  uint64 // Cancel/Replace/Status target
	Symbol       string
	Side         Side
	OrderQty     Qty
	Price        Price
	TransactTime int64 // Unix nanoseconds
	Kind         MsgKind
}

// Quote is a top-of-book market data update. Index by Side.
type Quote struct {
	Symbol string
	Price  [2]Price
	Size   [2]Qty
	Time   int64 // Unix nanoseconds
}

// Crossed reports whether the quote is invalid (bid at or above ask).
func (q *Quote) Crossed() bool {
	return q.Price[Bid] >= q.Price[Ask]
}

// Mid returns the midpoint of the quote in ticks.
func (q *Quote) Mid() int64 {
	return (int64(q.Price[Bid]) + int64(q.Price[Ask])) / 2
}
