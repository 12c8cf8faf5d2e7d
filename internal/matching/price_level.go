package matching

import (
	"exchange_sim/internal/domain"
	"exchange_sim/internal/pool"
)

// PriceLevel is the FIFO of resting orders at one price on one side of a book.
// Shares always equals the sum of the members' remaining shares.
type PriceLevel struct {
	pool.Links

	book   *OrderBook
	self   pool.Handle
	side   domain.Side
	price  domain.Price
	shares uint64 // Aggregate remaining quantity
	count  int
	orders orderList
}

func (l *PriceLevel) init(book *OrderBook, self pool.Handle, side domain.Side, price domain.Price) {
	l.book = book
	l.self = self
	l.side = side
	l.price = price
	l.shares = 0
	l.count = 0
	l.orders = orderList{}
}

// Price returns the level price.
func (l *PriceLevel) Price() domain.Price { return l.price }

// Shares returns the aggregate remaining quantity.
func (l *PriceLevel) Shares() uint64 { return l.shares }

// Count returns the number of resting orders.
func (l *PriceLevel) Count() int { return l.count }

func (l *PriceLevel) add(h pool.Handle, o *BookOrder) {
	l.shares += uint64(o.Shares)
	l.count++
	l.orders.PushBack(l.book.exchange.orders, h)
	o.level = l.self
}

func (l *PriceLevel) remove(h pool.Handle, o *BookOrder) {
	l.shares -= uint64(o.Shares)
	l.count--
	l.orders.Remove(l.book.exchange.orders, h)
	o.level = pool.Handle{}
}

// execute matches the incoming order h (on side) against this level, front
// of the FIFO first. It reports whether the incoming order is fully filled.
//
// A real incoming order against a quote leg fills completely at the level
// price; the leg is the displayed external market and is only refreshed by
// the next quote. An incoming quote leg takes out every resting order.
func (l *PriceLevel) execute(side domain.Side, h pool.Handle, in *BookOrder) bool {
	ex := l.book.exchange
	restingSide := side.Opposite()
	filled := false

	for !filled && !l.orders.Empty() {
		rh := l.orders.Front()
		resting := ex.orders.Get(rh)

		if !in.IsQuoteLeg() {
			if resting.IsQuoteLeg() {
				ex.execute(side, l.price, in.Shares, h)
				return true
			}
			if in.Shares < resting.Shares {
				qty := in.Shares
				l.shares -= uint64(qty)
				ex.execute(side, l.price, qty, h)
				ex.execute(restingSide, l.price, qty, rh)
				return true
			}
			filled = in.Shares == resting.Shares
			ex.execute(side, l.price, resting.Shares, h)
		}

		qty := resting.Shares
		l.remove(rh, resting)
		ex.execute(restingSide, l.price, qty, rh)
		ex.retire(l.book, restingSide, rh, resting)
	}
	return filled
}
