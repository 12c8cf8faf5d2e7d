package matching

import (
	"fmt"
	"log/slog"

	"exchange_sim/internal/domain"
	"exchange_sim/internal/pool"
)

// OnQuote replaces the book's quote legs with the quote's bid and ask.
// Quotes are the venue's own market view and take effect immediately.
// A crossed quote is dropped and the book is left untouched.
func (s *Simulator) OnQuote(q domain.Quote) error {
	if q.Crossed() {
		s.logger.Warn("Crossed quote dropped",
			slog.String("symbol", q.Symbol),
			slog.Uint64("bid", uint64(q.Price[domain.Bid])),
			slog.Uint64("ask", uint64(q.Price[domain.Ask])))
		s.metrics.RecordQuote(true)
		return fmt.Errorf("quote %s %d/%d: %w", q.Symbol, q.Price[domain.Bid], q.Price[domain.Ask], domain.ErrCrossedQuote)
	}

	b, existed := s.books[q.Symbol]
	if !existed {
		b = s.book(q.Symbol)
		b.SetTradingMask(true)
	}

	// Move the leg that cannot cross the other's old price first.
	first := domain.Bid
	if oldAsk, ok := s.legPrice(b, domain.Ask); ok && q.Price[domain.Bid] >= oldAsk {
		first = domain.Ask
	}
	s.replaceLeg(b, first, q.Price[first], q.Size[first], q.Time)
	second := first.Opposite()
	s.replaceLeg(b, second, q.Price[second], q.Size[second], q.Time)

	if !existed {
		b.SetTradingMask(false)
	}
	s.metrics.RecordQuote(false)
	s.metrics.SetOpenOrders(len(s.index))
	return nil
}

// legPrice returns the resting price of the side's current quote leg.
func (s *Simulator) legPrice(b *OrderBook, side domain.Side) (domain.Price, bool) {
	h := b.quotes[side]
	if h.IsNil() || !s.orders.Valid(h) {
		return 0, false
	}
	leg := s.orders.Get(h)
	if !leg.Resting() {
		return 0, false
	}
	return s.levels.Get(leg.level).price, true
}

// replaceLeg swaps the side's quote leg for a new one at price. A sentinel
// price withdraws the leg.
func (s *Simulator) replaceLeg(b *OrderBook, side domain.Side, price domain.Price, size domain.Qty, ts int64) {
	old := b.quotes[side]
	b.quotes[side] = pool.Handle{}

	oldResting := false
	if !old.IsNil() {
		if s.orders.Valid(old) {
			oldResting = s.orders.Get(old).Resting()
		} else {
			s.logger.Warn("Stale quote leg", slog.String("symbol", b.symbol), slog.String("side", side.String()))
			old = pool.Handle{}
		}
	}

	if price == side.Sentinel() {
		if oldResting {
			b.cancelRequest(side, old)
		}
		if !old.IsNil() {
			s.orders.Free(old)
		}
		return
	}

	h, leg := s.orders.Alloc()
	leg.initQuoteLeg(size, ts)
	if oldResting {
		b.replaceRequest(side, price, h, old)
	} else {
		b.newOrder(side, price, h)
	}
	if !old.IsNil() {
		s.orders.Free(old)
	}
	b.quotes[side] = h
}
