package matching

import (
	"exchange_sim/internal/domain"
	"exchange_sim/internal/pool"
)

// BookOrder is the engine's live record of either a real order or one leg of
// a synthetic quote. It sits in at most one list at a time: the simulator's
// pending-delay queue or a PriceLevel FIFO. Real, open orders are also
// indexed by ClOrdID.
type BookOrder struct {
	pool.Links

	ClOrdID uint64        // 0 for quote legs
	Shares  domain.Qty    // Remaining quantity
	Order   *domain.Order // nil for quote legs
	DueTime int64         // Time the order becomes visible to the book

	level pool.Handle // Owning price level, nil unless resting
}

// IsQuoteLeg reports whether the record has no backing real order.
func (o *BookOrder) IsQuoteLeg() bool { return o.Order == nil }

// Resting reports whether the record is linked into a price level.
func (o *BookOrder) Resting() bool { return !o.level.IsNil() }

func (o *BookOrder) initOrder(order *domain.Order, due int64) {
	o.ClOrdID = order.ClOrdID
	o.Shares = order.OrderQty
	o.Order = order
	o.DueTime = due
	o.level = pool.Handle{}
}

func (o *BookOrder) initQuoteLeg(shares domain.Qty, ts int64) {
	o.ClOrdID = 0
	o.Shares = shares
	o.Order = nil
	o.DueTime = ts
	o.level = pool.Handle{}
}

type orderList = pool.List[BookOrder, *BookOrder]
type levelList = pool.List[PriceLevel, *PriceLevel]
