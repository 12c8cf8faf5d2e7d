// Package matching implements the simulated exchange venue: per-symbol limit
// order books with price-time priority, and the latency queue that delays
// every order-entry message before it reaches its book.
//
// Everything here runs on one goroutine. Callers submit orders with OnOrder,
// market data with OnQuote, and move simulated time through the Scheduler;
// execution reports are delivered synchronously to the injected sink.
package matching

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"exchange_sim/internal/clock"
	"exchange_sim/internal/domain"
	"exchange_sim/internal/infra"
	"exchange_sim/internal/pool"
)

// Scheduler is the simulated-time service the Simulator arms itself on.
// clock.TimeManager implements it.
type Scheduler interface {
	Now() int64
	Schedule(due int64, ev clock.Event)
}

// Options configures a Simulator.
type Options struct {
	Latency       time.Duration // Delay between an order's TransactTime and its book effect
	OrderCapacity int           // Book orders pre-allocated
	LevelCapacity int           // Price levels pre-allocated
	Logger        *slog.Logger  // Defaults to slog.Default()
	Metrics       *infra.Metrics
}

// Simulator is the exchange venue. It owns every book, the clOrdId index and
// the pending-delay queue.
type Simulator struct {
	latency int64

	orders *pool.Arena[BookOrder]
	levels *pool.Arena[PriceLevel]

	books   map[string]*OrderBook
	index   map[uint64]pool.Handle // Open real orders by ClOrdID
	pending orderList              // Arrival order

	sink      domain.ExecutionSink
	scheduler Scheduler
	logger    *slog.Logger
	metrics   *infra.Metrics
}

// NewSimulator creates a simulator delivering reports to sink and arming
// itself on scheduler.
func NewSimulator(opts Options, scheduler Scheduler, sink domain.ExecutionSink) *Simulator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = &infra.Metrics{}
	}
	return &Simulator{
		latency:   opts.Latency.Nanoseconds(),
		orders:    pool.NewArena[BookOrder](opts.OrderCapacity),
		levels:    pool.NewArena[PriceLevel](opts.LevelCapacity),
		books:     make(map[string]*OrderBook),
		index:     make(map[uint64]pool.Handle, opts.OrderCapacity),
		sink:      sink,
		scheduler: scheduler,
		logger:    logger,
		metrics:   metrics,
	}
}

// SetSink replaces the execution sink.
func (s *Simulator) SetSink(sink domain.ExecutionSink) { s.sink = sink }

// Book returns the book for symbol, if it exists.
func (s *Simulator) Book(symbol string) (*OrderBook, bool) {
	b, ok := s.books[symbol]
	return b, ok
}

// Symbols returns the number of books.
func (s *Simulator) Symbols() int { return len(s.books) }

// Books returns every book ordered by symbol.
func (s *Simulator) Books() []*OrderBook {
	out := make([]*OrderBook, 0, len(s.books))
	for _, b := range s.books {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b *OrderBook) int { return strings.Compare(a.symbol, b.symbol) })
	return out
}

// Pending returns the number of order-entry messages still inside the
// latency window.
func (s *Simulator) Pending() int { return s.pending.Len() }

// OpenOrders returns the number of indexed real orders.
func (s *Simulator) OpenOrders() int { return len(s.index) }

// Remaining returns the remaining shares of an open order.
func (s *Simulator) Remaining(clOrdID uint64) (domain.Qty, bool) {
	h, ok := s.index[clOrdID]
	if !ok {
		return 0, false
	}
	return s.orders.Get(h).Shares, true
}

// LiveOrders returns the number of allocated book-order slots (resting,
// pending and quote legs).
func (s *Simulator) LiveOrders() int { return s.orders.Len() }

// LiveLevels returns the number of allocated price levels.
func (s *Simulator) LiveLevels() int { return s.levels.Len() }

func (s *Simulator) book(symbol string) *OrderBook {
	b, ok := s.books[symbol]
	if !ok {
		b = newOrderBook(s, symbol)
		s.books[symbol] = b
	}
	return b
}

// OnOrder accepts an order-entry message. It becomes visible to its book at
// TransactTime + latency.
func (s *Simulator) OnOrder(order *domain.Order) {
	h, bo := s.orders.Alloc()
	bo.initOrder(order, order.TransactTime+s.latency)

	if s.pending.Empty() {
		s.scheduler.Schedule(bo.DueTime, s)
	}
	s.pending.PushBack(s.orders, h)
	s.metrics.SetPendingOrders(s.pending.Len())
}

// TimeEvent drains every pending message due at or before now, in arrival
// order, and re-arms the scheduler for the next one.
func (s *Simulator) TimeEvent(now int64) {
	for !s.pending.Empty() {
		h := s.pending.Front()
		bo := s.orders.Get(h)
		if bo.DueTime > now {
			s.scheduler.Schedule(bo.DueTime, s)
			break
		}
		s.pending.Remove(s.orders, h)
		s.dispatch(h, bo)
	}
	s.metrics.SetPendingOrders(s.pending.Len())
	s.metrics.SetOpenOrders(len(s.index))
}

// execute applies a fill of shares at price to h and reports it.
func (s *Simulator) execute(side domain.Side, price domain.Price, shares domain.Qty, h pool.Handle) {
	bo := s.orders.Get(h)
	bo.Shares -= shares

	order := bo.Order
	if order == nil {
		s.logger.Warn("Quote leg executed",
			slog.String("side", side.String()),
			slog.Uint64("price", uint64(price)),
			slog.Uint64("shares", uint64(shares)))
		return
	}

	status := domain.OrdStatusPartiallyFilled
	if bo.Shares == 0 {
		status = domain.OrdStatusFilled
		s.unindex(bo.ClOrdID, h)
	}
	s.metrics.RecordFill()
	s.emit(domain.ExecutionReport{
		ClOrdID:      order.ClOrdID,
		OrigClOrdID:  order.OrigClOrdID,
		Symbol:       order.Symbol,
		LastPx:       price,
		LastQty:      shares,
		LeavesQty:    bo.Shares,
		Side:         order.Side,
		ExecType:     domain.ExecTrade,
		OrdStatus:    status,
		TransactTime: s.scheduler.Now(),
	})
}

// retire releases a book order that just left its level during matching.
func (s *Simulator) retire(b *OrderBook, side domain.Side, h pool.Handle, bo *BookOrder) {
	if bo.IsQuoteLeg() {
		if b.quotes[side] == h {
			b.quotes[side] = pool.Handle{}
		}
		s.orders.Free(h)
		return
	}
	if bo.Shares == 0 {
		s.orders.Free(h)
	}
}

func (s *Simulator) unindex(clOrdID uint64, h pool.Handle) {
	if cur, ok := s.index[clOrdID]; ok && cur == h {
		delete(s.index, clOrdID)
	}
}

// status reports a non-fill state change for order.
func (s *Simulator) status(execType domain.ExecType, ordStatus domain.OrdStatus, text string, order *domain.Order, leaves domain.Qty) {
	if execType == domain.ExecRejected {
		s.metrics.RecordReject()
	}
	s.emit(domain.ExecutionReport{
		ClOrdID:      order.ClOrdID,
		OrigClOrdID:  order.OrigClOrdID,
		Symbol:       order.Symbol,
		LeavesQty:    leaves,
		Side:         order.Side,
		ExecType:     execType,
		OrdStatus:    ordStatus,
		TransactTime: s.scheduler.Now(),
		Text:         text,
	})
}

func (s *Simulator) reject(order *domain.Order, text string) {
	s.logger.Debug("Order rejected",
		slog.Uint64("clOrdId", order.ClOrdID),
		slog.String("kind", order.Kind.String()),
		slog.String("reason", text))
	s.status(domain.ExecRejected, domain.OrdStatusRejected, text, order, 0)
}

func (s *Simulator) emit(report domain.ExecutionReport) {
	if s.sink != nil {
		s.sink.OnExecution(report)
	}
}
