package matching

import (
	"exchange_sim/internal/domain"
	"exchange_sim/internal/pool"
)

// OrderBook holds both sides of one instrument. Bid levels are sorted by
// descending price, ask levels by ascending price; best caches the first
// level's price per side, or the side's sentinel when it is empty.
//
// Once an operation returns, no bid level is priced at or above an ask level.
type OrderBook struct {
	exchange *Simulator
	symbol   string
	best     [2]domain.Price
	levels   [2]levelList

	// When set, newOrder only rests and never crosses.
	tradingMask bool

	// Current quote legs (nil when the book has never been quoted).
	quotes [2]pool.Handle
}

func newOrderBook(exchange *Simulator, symbol string) *OrderBook {
	return &OrderBook{
		exchange: exchange,
		symbol:   symbol,
		best:     [2]domain.Price{domain.NoBid, domain.NoAsk},
	}
}

// Symbol returns the instrument symbol.
func (b *OrderBook) Symbol() string { return b.symbol }

// BestBid returns the cached best bid, or domain.NoBid.
func (b *OrderBook) BestBid() domain.Price { return b.best[domain.Bid] }

// BestAsk returns the cached best ask, or domain.NoAsk.
func (b *OrderBook) BestAsk() domain.Price { return b.best[domain.Ask] }

// TradingMask reports whether crossing is suspended.
func (b *OrderBook) TradingMask() bool { return b.tradingMask }

// SetTradingMask suspends (true) or resumes crossing checks in newOrder.
func (b *OrderBook) SetTradingMask(on bool) { b.tradingMask = on }

// newOrder matches order h against the opposite side while marketable, then
// rests any remainder on its own side. Reports whether h was fully filled.
func (b *OrderBook) newOrder(side domain.Side, price domain.Price, h pool.Handle) bool {
	ex := b.exchange
	in := ex.orders.Get(h)
	other := side.Opposite()

	if !b.tradingMask && !b.levels[other].Empty() && side.Crosses(price, b.best[other]) {
		filled := false
		opposite := &b.levels[other]
		for !filled && !opposite.Empty() {
			lh := opposite.Front()
			level := ex.levels.Get(lh)
			if !side.Crosses(price, level.price) {
				break
			}
			filled = level.execute(side, h, in)
			if level.count > 0 {
				break
			}
			opposite.Remove(ex.levels, lh)
			ex.levels.Free(lh)
		}
		b.refreshBest(other)
		if filled {
			return true
		}
	}

	b.rest(side, price, h, in)
	return false
}

// rest appends h to the level at price, creating the level in sorted
// position when none exists.
func (b *OrderBook) rest(side domain.Side, price domain.Price, h pool.Handle, in *BookOrder) {
	ex := b.exchange
	levels := &b.levels[side]

	var target pool.Handle
	mark := levels.Front()
	for !mark.IsNil() {
		level := ex.levels.Get(mark)
		if !side.Better(level.price, price) {
			if level.price == price {
				target = mark
			}
			break
		}
		mark = levels.Next(ex.levels, mark)
	}

	if target.IsNil() {
		var level *PriceLevel
		target, level = ex.levels.Alloc()
		level.init(b, target, side, price)
		if mark.IsNil() {
			levels.PushBack(ex.levels, target)
		} else {
			levels.InsertBefore(ex.levels, target, mark)
		}
	}

	ex.levels.Get(target).add(h, in)
	if levels.Front() == target {
		b.best[side] = price
	}
}

// cancelRequest unlinks the resting order h from its level.
func (b *OrderBook) cancelRequest(side domain.Side, h pool.Handle) {
	ex := b.exchange
	o := ex.orders.Get(h)
	lh := o.level
	level := ex.levels.Get(lh)
	levels := &b.levels[side]

	top := levels.Front() == lh
	level.remove(h, o)
	if level.count == 0 {
		levels.Remove(ex.levels, lh)
		ex.levels.Free(lh)
	}
	if top {
		b.refreshBest(side)
	}
}

// replaceRequest swaps old for h. At an unchanged price the new order goes to
// the back of the same FIFO (queue position is forfeited); otherwise old is
// canceled and h is entered as a new order, which may cross.
// Reports whether h was fully filled.
func (b *OrderBook) replaceRequest(side domain.Side, price domain.Price, h, old pool.Handle) bool {
	ex := b.exchange
	oldOrder := ex.orders.Get(old)
	level := ex.levels.Get(oldOrder.level)

	if level.price == price && level.side == side {
		level.remove(old, oldOrder)
		level.add(h, ex.orders.Get(h))
		return false
	}

	b.cancelRequest(level.side, old)
	return b.newOrder(side, price, h)
}

func (b *OrderBook) refreshBest(side domain.Side) {
	front := b.levels[side].Front()
	if front.IsNil() {
		b.best[side] = side.Sentinel()
		return
	}
	b.best[side] = b.exchange.levels.Get(front).price
}

// LevelView is a read-only snapshot of one price level.
type LevelView struct {
	Price  domain.Price
	Shares uint64
	Orders int
}

// Depth returns up to n levels of a side, best first (n <= 0 means all).
func (b *OrderBook) Depth(side domain.Side, n int) []LevelView {
	ex := b.exchange
	levels := &b.levels[side]
	out := make([]LevelView, 0, levels.Len())
	for lh := levels.Front(); !lh.IsNil(); lh = levels.Next(ex.levels, lh) {
		if n > 0 && len(out) == n {
			break
		}
		level := ex.levels.Get(lh)
		out = append(out, LevelView{Price: level.price, Shares: level.shares, Orders: level.count})
	}
	return out
}

// QueueAt returns the remaining shares of each order resting at price, in
// FIFO order. Quote legs are reported with ClOrdID 0.
func (b *OrderBook) QueueAt(side domain.Side, price domain.Price) []QueuedOrder {
	ex := b.exchange
	levels := &b.levels[side]
	for lh := levels.Front(); !lh.IsNil(); lh = levels.Next(ex.levels, lh) {
		level := ex.levels.Get(lh)
		if level.price != price {
			continue
		}
		out := make([]QueuedOrder, 0, level.count)
		for oh := level.orders.Front(); !oh.IsNil(); oh = level.orders.Next(ex.orders, oh) {
			o := ex.orders.Get(oh)
			out = append(out, QueuedOrder{ClOrdID: o.ClOrdID, Shares: o.Shares})
		}
		return out
	}
	return nil
}

// QueuedOrder is a read-only view of a resting order.
type QueuedOrder struct {
	ClOrdID uint64
	Shares  domain.Qty
}
