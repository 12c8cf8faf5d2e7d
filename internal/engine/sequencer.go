package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"exchange_sim/internal/clock"
	"exchange_sim/internal/domain"
	"exchange_sim/internal/event"
	"exchange_sim/internal/infra"
	"exchange_sim/internal/matching"
	"exchange_sim/internal/strategy"
)

// Config configures a Sequencer.
type Config struct {
	InboxSize   int
	ClOrdIDBase uint64 // Strategy orders are numbered from ClOrdIDBase+1
	DumpPath    string // State dump written on a halt, defaults to panic_dump.json
	Logger      *slog.Logger
	Metrics     *infra.Metrics
}

// Sequencer is the core single-threaded event processor. It owns the
// simulated clock: every event first advances time to its timestamp, which
// fires due pending orders, and is then handed to the simulator.
type Sequencer struct {
	inbox   chan event.Event
	nextSeq uint64

	clock    *clock.TimeManager
	sim      *matching.Simulator
	strategy strategy.Strategy

	clOrdIDBase uint64
	nextClOrdID uint64
	processed   uint64

	dumpPath string
	logger   *slog.Logger
	metrics  *infra.Metrics

	// Last applied quote per symbol, for external reads
	quotes map[string]domain.Quote
	mu     sync.RWMutex
}

// NewSequencer creates a new sequencer instance. strat may be nil.
func NewSequencer(cfg Config, tm *clock.TimeManager, sim *matching.Simulator, strat strategy.Strategy) *Sequencer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = &infra.Metrics{}
	}
	dumpPath := cfg.DumpPath
	if dumpPath == "" {
		dumpPath = "panic_dump.json"
	}
	return &Sequencer{
		inbox:       make(chan event.Event, cfg.InboxSize),
		nextSeq:     1,
		clock:       tm,
		sim:         sim,
		strategy:    strat,
		clOrdIDBase: cfg.ClOrdIDBase,
		nextClOrdID: cfg.ClOrdIDBase,
		dumpPath:    dumpPath,
		logger:      logger,
		metrics:     metrics,
		quotes:      make(map[string]domain.Quote),
	}
}

// Inbox returns the event channel. Producers send events here and close it
// at the end of the stream.
func (s *Sequencer) Inbox() chan<- event.Event {
	return s.inbox
}

// Run starts the main event loop. This MUST be run in a single goroutine.
// It returns when ctx is done, or after draining the pending orders once the
// inbox is closed.
func (s *Sequencer) Run(ctx context.Context) {
	s.logger.Info("Sequencer started")

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState(s.dumpPath)
			// Halt after dump.
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sequencer stopping...")
			return
		case ev, ok := <-s.inbox:
			if !ok {
				s.Flush()
				s.logger.Info("Sequencer drained", slog.Uint64("events", s.processed))
				return
			}
			s.processEvent(ev)
		}
	}
}

func (s *Sequencer) processEvent(ev event.Event) {
	start := time.Now()

	// Sequence Gap Check (Halt Policy)
	if ev.GetSeq() != s.nextSeq {
		panic(fmt.Sprintf("SEQUENCE_GAP_DETECTED: expected %d, got %d", s.nextSeq, ev.GetSeq()))
	}

	s.handle(ev)
	s.nextSeq++
	event.Release(ev)

	s.metrics.RecordEvent(time.Since(start).Nanoseconds())
}

// ReplayEvent processes an event synchronously on the caller's goroutine.
// The caller must not also be running Run.
func (s *Sequencer) ReplayEvent(ev event.Event) {
	// Replay must still respect sequence order
	if ev.GetSeq() != s.nextSeq {
		panic(fmt.Sprintf("REPLAY_GAP_DETECTED: expected %d, got %d", s.nextSeq, ev.GetSeq()))
	}

	s.handle(ev)
	s.nextSeq++
	event.Release(ev)
}

func (s *Sequencer) handle(ev event.Event) {
	ts := ev.GetTs()
	s.clock.Advance(ts)

	switch e := ev.(type) {
	case *event.OrderEvent:
		s.sim.OnOrder(e.Order)
	case *event.QuoteEvent:
		s.handleQuote(e.Quote, ts)
	case *event.TickEvent:
		// Time only
	default:
		s.logger.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}

	// Zero latency orders submitted above are due now.
	s.clock.Advance(ts)
	s.processed++
}

func (s *Sequencer) handleQuote(q domain.Quote, ts int64) {
	if err := s.sim.OnQuote(q); err != nil {
		// Already logged by the simulator
		return
	}

	s.mu.Lock()
	s.quotes[q.Symbol] = q
	s.mu.Unlock()

	if s.strategy == nil {
		return
	}
	for _, action := range s.strategy.OnQuote(q) {
		s.nextClOrdID++
		order := &domain.Order{
			ClOrdID:      s.nextClOrdID,
			Symbol:       action.Symbol,
			Side:         action.Type.Side(),
			OrderQty:     action.Qty,
			Price:        action.Price,
			TransactTime: ts,
			Kind:         domain.NewOrder,
		}
		s.logger.Info("STRATEGY_ACTION",
			slog.String("action", action.Type.String()),
			slog.String("symbol", action.Symbol),
			slog.Uint64("clOrdId", order.ClOrdID),
			slog.Uint64("price", uint64(action.Price)),
			slog.Uint64("qty", uint64(action.Qty)))
		s.sim.OnOrder(order)
	}
}

// OnExecution forwards the strategy's own reports to it. Wire the sequencer
// into the simulator's sink to close the loop.
func (s *Sequencer) OnExecution(report domain.ExecutionReport) {
	if s.strategy != nil && report.ClOrdID > s.clOrdIDBase {
		s.strategy.OnExecution(report)
	}
}

// Flush advances the clock through every scheduled event so that all
// pending orders reach their books.
func (s *Sequencer) Flush() {
	for due, ok := s.clock.NextDue(); ok; due, ok = s.clock.NextDue() {
		s.clock.Advance(due)
	}
}

// Processed returns the number of events handled.
func (s *Sequencer) Processed() uint64 { return s.processed }

// LastQuote returns the last applied quote for symbol (external read).
func (s *Sequencer) LastQuote(symbol string) (domain.Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[symbol]
	return q, ok
}

type bookDump struct {
	Symbol  string               `json:"symbol"`
	BestBid domain.Price         `json:"best_bid"`
	BestAsk domain.Price         `json:"best_ask"`
	Bids    []matching.LevelView `json:"bids"`
	Asks    []matching.LevelView `json:"asks"`
}

// DumpState writes the entire internal state to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	s.logger.Info("Dumping internal state...", slog.String("file", filename))

	data := struct {
		NextSeq    uint64     `json:"next_seq"`
		Now        int64      `json:"now"`
		Pending    int        `json:"pending"`
		OpenOrders int        `json:"open_orders"`
		Books      []bookDump `json:"books"`
	}{
		NextSeq:    s.nextSeq,
		Now:        s.clock.Now(),
		Pending:    s.sim.Pending(),
		OpenOrders: s.sim.OpenOrders(),
	}
	for _, b := range s.sim.Books() {
		data.Books = append(data.Books, bookDump{
			Symbol:  b.Symbol(),
			BestBid: b.BestBid(),
			BestAsk: b.BestAsk(),
			Bids:    b.Depth(domain.Bid, 0),
			Asks:    b.Depth(domain.Ask, 0),
		})
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		s.logger.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		s.logger.Error("Failed to write state dump", slog.Any("error", err))
	}
}
