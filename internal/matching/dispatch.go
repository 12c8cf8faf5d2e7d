package matching

import (
	"fmt"
	"log/slog"

	"exchange_sim/internal/domain"
	"exchange_sim/internal/pool"
)

// dispatch applies one due order-entry message to its book. h has already
// been unlinked from the pending queue; dispatch owns it from here on.
func (s *Simulator) dispatch(h pool.Handle, bo *BookOrder) {
	order := bo.Order
	s.metrics.RecordDispatch()

	switch order.Kind {
	case domain.NewOrder:
		s.newOrder(h, bo, order)
	case domain.CancelRequest:
		s.cancelOrder(h, order)
	case domain.ReplaceRequest:
		s.replaceOrder(h, bo, order)
	case domain.StatusRequest:
		s.orderStatus(h, order)
	default:
		s.reject(order, "unhandled message kind")
		s.orders.Free(h)
	}
}

func (s *Simulator) newOrder(h pool.Handle, bo *BookOrder, order *domain.Order) {
	if _, dup := s.index[order.ClOrdID]; dup {
		s.reject(order, fmt.Sprintf("clOrdId %d: not unique", order.ClOrdID))
		s.orders.Free(h)
		return
	}
	if text := validate(order); text != "" {
		s.reject(order, text)
		s.orders.Free(h)
		return
	}

	s.index[order.ClOrdID] = h
	if s.book(order.Symbol).newOrder(order.Side, order.Price, h) {
		s.orders.Free(h)
		return
	}
	if bo.Shares == order.OrderQty {
		s.status(domain.ExecNew, domain.OrdStatusNew, "", order, bo.Shares)
	}
}

// cancelOrder removes an open order. Only dispatched orders are indexed, so a
// cancel overtaking its target inside the latency window is rejected as
// unknown.
func (s *Simulator) cancelOrder(h pool.Handle, order *domain.Order) {
	defer s.orders.Free(h)

	target, ok := s.lookup(order)
	if !ok {
		return
	}
	orig := s.orders.Get(target)
	delete(s.index, order.OrigClOrdID)
	s.restingBook(orig).cancelRequest(orig.Order.Side, target)

	s.emit(domain.ExecutionReport{
		ClOrdID:      order.ClOrdID,
		OrigClOrdID:  order.OrigClOrdID,
		Symbol:       orig.Order.Symbol,
		Side:         orig.Order.Side,
		ExecType:     domain.ExecCanceled,
		OrdStatus:    domain.OrdStatusCanceled,
		TransactTime: s.scheduler.Now(),
	})
	s.orders.Free(target)
}

func (s *Simulator) replaceOrder(h pool.Handle, bo *BookOrder, order *domain.Order) {
	target, ok := s.lookup(order)
	if !ok {
		s.orders.Free(h)
		return
	}
	orig := s.orders.Get(target)
	if order.Symbol != orig.Order.Symbol {
		s.reject(order, fmt.Sprintf("symbol %s does not match origClOrdId %d", order.Symbol, order.OrigClOrdID))
		s.orders.Free(h)
		return
	}
	if _, dup := s.index[order.ClOrdID]; dup {
		s.reject(order, fmt.Sprintf("clOrdId %d: not unique", order.ClOrdID))
		s.orders.Free(h)
		return
	}
	if text := validate(order); text != "" {
		s.reject(order, text)
		s.orders.Free(h)
		return
	}

	b := s.restingBook(orig)
	s.index[order.ClOrdID] = h
	delete(s.index, order.OrigClOrdID)

	filled := b.replaceRequest(order.Side, order.Price, h, target)
	s.orders.Free(target)
	if filled {
		s.orders.Free(h)
		return
	}
	if bo.Shares == order.OrderQty {
		s.status(domain.ExecReplaced, domain.OrdStatusReplaced, "", order, bo.Shares)
	}
}

func (s *Simulator) orderStatus(h pool.Handle, order *domain.Order) {
	defer s.orders.Free(h)

	target, ok := s.lookup(order)
	if !ok {
		return
	}
	orig := s.orders.Get(target)
	execType, ordStatus := domain.ExecNew, domain.OrdStatusNew
	if orig.Shares != orig.Order.OrderQty {
		execType, ordStatus = domain.ExecPartiallyFilled, domain.OrdStatusPartiallyFilled
	}
	s.emit(domain.ExecutionReport{
		ClOrdID:      order.ClOrdID,
		OrigClOrdID:  order.OrigClOrdID,
		Symbol:       orig.Order.Symbol,
		LeavesQty:    orig.Shares,
		Side:         orig.Order.Side,
		ExecType:     execType,
		OrdStatus:    ordStatus,
		TransactTime: s.scheduler.Now(),
	})
}

// lookup resolves OrigClOrdID to an open order, rejecting the request when
// there is none.
func (s *Simulator) lookup(order *domain.Order) (pool.Handle, bool) {
	target, ok := s.index[order.OrigClOrdID]
	if ok && s.orders.Valid(target) {
		return target, true
	}
	if ok {
		s.logger.Warn("Stale order handle", slog.Uint64("clOrdId", order.OrigClOrdID))
		delete(s.index, order.OrigClOrdID)
	}
	s.reject(order, fmt.Sprintf("origClOrdId %d unknown", order.OrigClOrdID))
	return pool.Handle{}, false
}

// restingBook returns the book an indexed order rests in.
func (s *Simulator) restingBook(bo *BookOrder) *OrderBook {
	if level := s.levels.Get(bo.level); level != nil {
		return level.book
	}
	return s.book(bo.Order.Symbol)
}

func validate(order *domain.Order) string {
	if order.OrderQty == 0 {
		return "orderQty must be positive"
	}
	if order.Price == domain.NoBid || order.Price == domain.NoAsk {
		return fmt.Sprintf("price %d out of range", order.Price)
	}
	return ""
}
