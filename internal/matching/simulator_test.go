package matching

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"exchange_sim/internal/clock"
	"exchange_sim/internal/domain"
	"exchange_sim/internal/infra"
)

const sym = "ACME"

type harness struct {
	tm      *clock.TimeManager
	sim     *Simulator
	rec     *domain.ReportRecorder
	metrics *infra.Metrics
	now     int64
}

func newHarness(latency time.Duration) *harness {
	h := &harness{
		tm:      clock.NewTimeManager(0, 64),
		rec:     &domain.ReportRecorder{},
		metrics: &infra.Metrics{},
	}
	h.sim = NewSimulator(Options{
		Latency:       latency,
		OrderCapacity: 64,
		LevelCapacity: 16,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:       h.metrics,
	}, h.tm, h.rec)
	return h
}

// submit stamps o with the current time, hands it to the simulator and fires
// whatever is already due.
func (h *harness) submit(o domain.Order) {
	o.TransactTime = h.now
	if o.Symbol == "" {
		o.Symbol = sym
	}
	h.sim.OnOrder(&o)
	h.tm.Advance(h.now)
}

func (h *harness) step(d int64) {
	h.now += d
	h.tm.Advance(h.now)
}

func (h *harness) buy(id uint64, price domain.Price, qty domain.Qty) {
	h.submit(domain.Order{ClOrdID: id, Side: domain.Bid, Price: price, OrderQty: qty, Kind: domain.NewOrder})
}

func (h *harness) sell(id uint64, price domain.Price, qty domain.Qty) {
	h.submit(domain.Order{ClOrdID: id, Side: domain.Ask, Price: price, OrderQty: qty, Kind: domain.NewOrder})
}

func (h *harness) cancel(id, orig uint64) {
	h.submit(domain.Order{ClOrdID: id, OrigClOrdID: orig, Kind: domain.CancelRequest})
}

func (h *harness) replace(id, orig uint64, side domain.Side, price domain.Price, qty domain.Qty) {
	h.submit(domain.Order{ClOrdID: id, OrigClOrdID: orig, Side: side, Price: price, OrderQty: qty, Kind: domain.ReplaceRequest})
}

func (h *harness) quote(bid, ask domain.Price, size domain.Qty) error {
	return h.sim.OnQuote(domain.Quote{
		Symbol: sym,
		Price:  [2]domain.Price{bid, ask},
		Size:   [2]domain.Qty{size, size},
		Time:   h.now,
	})
}

func (h *harness) book(t *testing.T) *OrderBook {
	t.Helper()
	b, ok := h.sim.Book(sym)
	if !ok {
		t.Fatalf("book %s not created", sym)
	}
	return b
}

type want struct {
	id     uint64
	exec   domain.ExecType
	status domain.OrdStatus
	qty    domain.Qty
	px     domain.Price
	leaves domain.Qty
}

func expectReports(t *testing.T, got []domain.ExecutionReport, wants ...want) {
	t.Helper()
	if len(got) != len(wants) {
		for _, r := range got {
			t.Logf("  %d %s/%s last=%d@%d leaves=%d %q", r.ClOrdID, r.ExecType, r.OrdStatus, r.LastQty, r.LastPx, r.LeavesQty, r.Text)
		}
		t.Fatalf("got %d reports, want %d", len(got), len(wants))
	}
	for i, w := range wants {
		r := got[i]
		if r.ClOrdID != w.id || r.ExecType != w.exec || r.OrdStatus != w.status {
			t.Errorf("report %d = %d %s/%s, want %d %s/%s", i, r.ClOrdID, r.ExecType, r.OrdStatus, w.id, w.exec, w.status)
		}
		if r.LastQty != w.qty || r.LastPx != w.px || r.LeavesQty != w.leaves {
			t.Errorf("report %d last=%d@%d leaves=%d, want %d@%d leaves=%d", i, r.LastQty, r.LastPx, r.LeavesQty, w.qty, w.px, w.leaves)
		}
	}
}

func expectEmpty(t *testing.T, h *harness) {
	t.Helper()
	b := h.book(t)
	if b.BestBid() != domain.NoBid || b.BestAsk() != domain.NoAsk {
		t.Errorf("best = %d/%d, want empty book", b.BestBid(), b.BestAsk())
	}
	if h.sim.LiveOrders() != 0 || h.sim.LiveLevels() != 0 {
		t.Errorf("leaked slots: orders=%d levels=%d", h.sim.LiveOrders(), h.sim.LiveLevels())
	}
	if h.sim.OpenOrders() != 0 {
		t.Errorf("OpenOrders = %d, want 0", h.sim.OpenOrders())
	}
}

func TestScenarioA_FullCross(t *testing.T) {
	h := newHarness(0)
	h.buy(1, 100, 10)
	h.sell(2, 100, 10)

	expectReports(t, h.rec.Reports,
		want{1, domain.ExecNew, domain.OrdStatusNew, 0, 0, 10},
		want{2, domain.ExecTrade, domain.OrdStatusFilled, 10, 100, 0},
		want{1, domain.ExecTrade, domain.OrdStatusFilled, 10, 100, 0},
	)
	expectEmpty(t, h)
}

func TestScenarioB_PartialFill(t *testing.T) {
	h := newHarness(0)
	h.buy(1, 100, 10)
	h.sell(2, 100, 4)

	expectReports(t, h.rec.Reports,
		want{1, domain.ExecNew, domain.OrdStatusNew, 0, 0, 10},
		want{2, domain.ExecTrade, domain.OrdStatusFilled, 4, 100, 0},
		want{1, domain.ExecTrade, domain.OrdStatusPartiallyFilled, 4, 100, 6},
	)

	b := h.book(t)
	if b.BestBid() != 100 || b.BestAsk() != domain.NoAsk {
		t.Errorf("best = %d/%d, want 100/empty", b.BestBid(), b.BestAsk())
	}
	if q := b.QueueAt(domain.Bid, 100); len(q) != 1 || q[0].ClOrdID != 1 || q[0].Shares != 6 {
		t.Errorf("queue at 100 = %+v", q)
	}
	if rem, ok := h.sim.Remaining(1); !ok || rem != 6 {
		t.Errorf("Remaining(1) = %d, %v", rem, ok)
	}
}

func TestScenarioC_CancelFilledOrder(t *testing.T) {
	h := newHarness(0)
	h.buy(1, 100, 10)
	h.sell(2, 100, 10)
	h.rec.Reset()

	h.cancel(3, 1)

	expectReports(t, h.rec.Reports, want{3, domain.ExecRejected, domain.OrdStatusRejected, 0, 0, 0})
	if got := h.rec.Reports[0].Text; got != "origClOrdId 1 unknown" {
		t.Errorf("Text = %q", got)
	}
	expectEmpty(t, h)
}

func TestScenarioD_QuoteUpdate(t *testing.T) {
	h := newHarness(0)
	if err := h.quote(99, 101, 100); err != nil {
		t.Fatal(err)
	}
	if err := h.quote(102, 103, 100); err != nil {
		t.Fatal(err)
	}

	if len(h.rec.Reports) != 0 {
		t.Fatalf("quotes produced %d reports", len(h.rec.Reports))
	}
	b := h.book(t)
	if b.BestBid() != 102 || b.BestAsk() != 103 {
		t.Errorf("best = %d/%d, want 102/103", b.BestBid(), b.BestAsk())
	}
	if d := b.Depth(domain.Bid, 0); len(d) != 1 {
		t.Errorf("bid depth = %+v, want one level", d)
	}
	if h.sim.LiveOrders() != 2 {
		t.Errorf("LiveOrders = %d, want 2 quote legs", h.sim.LiveOrders())
	}
}

func TestPriceTimePriority(t *testing.T) {
	h := newHarness(0)
	h.buy(1, 100, 5)
	h.buy(2, 100, 5)
	h.rec.Reset()

	h.sell(3, 100, 7)

	expectReports(t, h.rec.Reports,
		want{3, domain.ExecTrade, domain.OrdStatusPartiallyFilled, 5, 100, 2},
		want{1, domain.ExecTrade, domain.OrdStatusFilled, 5, 100, 0},
		want{3, domain.ExecTrade, domain.OrdStatusFilled, 2, 100, 0},
		want{2, domain.ExecTrade, domain.OrdStatusPartiallyFilled, 2, 100, 3},
	)
}

func TestSweepMultipleLevels(t *testing.T) {
	h := newHarness(0)
	h.sell(1, 101, 5)
	h.sell(2, 102, 5)
	h.sell(3, 104, 5)
	h.rec.Reset()

	h.buy(4, 102, 8)

	expectReports(t, h.rec.Reports,
		want{4, domain.ExecTrade, domain.OrdStatusPartiallyFilled, 5, 101, 3},
		want{1, domain.ExecTrade, domain.OrdStatusFilled, 5, 101, 0},
		want{4, domain.ExecTrade, domain.OrdStatusFilled, 3, 102, 0},
		want{2, domain.ExecTrade, domain.OrdStatusPartiallyFilled, 3, 102, 2},
	)
	b := h.book(t)
	if b.BestAsk() != 102 || b.BestBid() != domain.NoBid {
		t.Errorf("best = %d/%d, want empty/102", b.BestBid(), b.BestAsk())
	}
	if d := b.Depth(domain.Ask, 0); len(d) != 2 || d[0].Shares != 2 || d[1].Price != 104 {
		t.Errorf("ask depth = %+v", d)
	}
}

func TestMarketableRemainderRests(t *testing.T) {
	h := newHarness(0)
	h.sell(1, 101, 5)
	h.rec.Reset()

	h.buy(2, 103, 8)

	expectReports(t, h.rec.Reports,
		want{2, domain.ExecTrade, domain.OrdStatusPartiallyFilled, 5, 101, 3},
		want{1, domain.ExecTrade, domain.OrdStatusFilled, 5, 101, 0},
	)
	b := h.book(t)
	if b.BestBid() != 103 || b.BestAsk() != domain.NoAsk {
		t.Errorf("best = %d/%d, want 103/empty", b.BestBid(), b.BestAsk())
	}
}

func TestLevelsStaySorted(t *testing.T) {
	h := newHarness(0)
	for i, p := range []domain.Price{100, 98, 99, 101, 97} {
		h.buy(uint64(i+1), p, 1)
	}
	for i, p := range []domain.Price{105, 103, 104, 102} {
		h.sell(uint64(i+10), p, 1)
	}

	b := h.book(t)
	bids := b.Depth(domain.Bid, 3)
	if len(bids) != 3 || bids[0].Price != 101 || bids[1].Price != 100 || bids[2].Price != 99 {
		t.Errorf("bid depth = %+v", bids)
	}
	asks := b.Depth(domain.Ask, 0)
	if len(asks) != 4 || asks[0].Price != 102 || asks[3].Price != 105 {
		t.Errorf("ask depth = %+v", asks)
	}
	if b.BestBid() != 101 || b.BestAsk() != 102 {
		t.Errorf("best = %d/%d", b.BestBid(), b.BestAsk())
	}
}

func TestDuplicateClOrdID(t *testing.T) {
	h := newHarness(0)
	h.buy(1, 100, 10)
	h.buy(1, 101, 5)

	expectReports(t, h.rec.Reports,
		want{1, domain.ExecNew, domain.OrdStatusNew, 0, 0, 10},
		want{1, domain.ExecRejected, domain.OrdStatusRejected, 0, 0, 0},
	)
	if got := h.rec.Reports[1].Text; got != "clOrdId 1: not unique" {
		t.Errorf("Text = %q", got)
	}
	b := h.book(t)
	if b.BestBid() != 100 {
		t.Errorf("BestBid = %d, want 100", b.BestBid())
	}
	if h.sim.LiveOrders() != 1 {
		t.Errorf("LiveOrders = %d, want 1", h.sim.LiveOrders())
	}
}

func TestInvalidOrders(t *testing.T) {
	tests := []struct {
		name  string
		order domain.Order
		text  string
	}{
		{"zero qty", domain.Order{ClOrdID: 1, Side: domain.Bid, Price: 100, Kind: domain.NewOrder}, "orderQty must be positive"},
		{"zero price", domain.Order{ClOrdID: 1, Side: domain.Bid, OrderQty: 1, Kind: domain.NewOrder}, "price 0 out of range"},
		{"ask sentinel", domain.Order{ClOrdID: 1, Side: domain.Ask, Price: domain.NoAsk, OrderQty: 1, Kind: domain.NewOrder}, "price 4294967295 out of range"},
		{"unknown kind", domain.Order{ClOrdID: 1, Side: domain.Bid, Price: 100, OrderQty: 1, Kind: 42}, "unhandled message kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(0)
			h.submit(tt.order)

			expectReports(t, h.rec.Reports, want{1, domain.ExecRejected, domain.OrdStatusRejected, 0, 0, 0})
			if got := h.rec.Reports[0].Text; got != tt.text {
				t.Errorf("Text = %q, want %q", got, tt.text)
			}
			if h.sim.LiveOrders() != 0 || h.sim.OpenOrders() != 0 {
				t.Errorf("rejected order left state behind")
			}
		})
	}
}

func TestCancel(t *testing.T) {
	h := newHarness(0)
	h.buy(1, 100, 10)
	h.buy(2, 99, 10)
	h.rec.Reset()

	h.cancel(3, 1)

	if len(h.rec.Reports) != 1 {
		t.Fatalf("got %d reports", len(h.rec.Reports))
	}
	r := h.rec.Reports[0]
	if r.ExecType != domain.ExecCanceled || r.ClOrdID != 3 || r.OrigClOrdID != 1 || r.Symbol != sym {
		t.Errorf("cancel report = %+v", r)
	}
	b := h.book(t)
	if b.BestBid() != 99 {
		t.Errorf("BestBid = %d, want 99 after top level canceled", b.BestBid())
	}

	h.cancel(4, 2)
	expectEmpty(t, h)
	if m := h.metrics.Snapshot(); m.OrdersDispatched != 4 {
		t.Errorf("OrdersDispatched = %d, want 4", m.OrdersDispatched)
	}
}

func TestReplace(t *testing.T) {
	t.Run("same price loses priority", func(t *testing.T) {
		h := newHarness(0)
		h.buy(1, 100, 10)
		h.buy(2, 100, 5)
		h.replace(3, 1, domain.Bid, 100, 10)

		q := h.book(t).QueueAt(domain.Bid, 100)
		if len(q) != 2 || q[0].ClOrdID != 2 || q[1].ClOrdID != 3 {
			t.Fatalf("queue = %+v, want [2 3]", q)
		}
		last := h.rec.Reports[len(h.rec.Reports)-1]
		if last.ExecType != domain.ExecReplaced || last.ClOrdID != 3 || last.LeavesQty != 10 {
			t.Errorf("replace report = %+v", last)
		}

		h.rec.Reset()
		h.sell(4, 100, 5)
		expectReports(t, h.rec.Reports,
			want{4, domain.ExecTrade, domain.OrdStatusFilled, 5, 100, 0},
			want{2, domain.ExecTrade, domain.OrdStatusFilled, 5, 100, 0},
		)
	})

	t.Run("new price moves level", func(t *testing.T) {
		h := newHarness(0)
		h.buy(1, 100, 10)
		h.replace(2, 1, domain.Bid, 98, 4)

		b := h.book(t)
		if d := b.Depth(domain.Bid, 0); len(d) != 1 || d[0].Price != 98 || d[0].Shares != 4 {
			t.Errorf("depth = %+v", d)
		}
		if _, ok := h.sim.Remaining(1); ok {
			t.Error("replaced order still indexed")
		}
		if h.sim.LiveOrders() != 1 || h.sim.LiveLevels() != 1 {
			t.Errorf("slots: orders=%d levels=%d", h.sim.LiveOrders(), h.sim.LiveLevels())
		}
	})

	t.Run("marketable replacement fills", func(t *testing.T) {
		h := newHarness(0)
		h.sell(1, 101, 5)
		h.buy(2, 99, 5)
		h.rec.Reset()

		h.replace(3, 2, domain.Bid, 101, 5)

		expectReports(t, h.rec.Reports,
			want{3, domain.ExecTrade, domain.OrdStatusFilled, 5, 101, 0},
			want{1, domain.ExecTrade, domain.OrdStatusFilled, 5, 101, 0},
		)
		expectEmpty(t, h)
	})

	t.Run("unknown orig", func(t *testing.T) {
		h := newHarness(0)
		h.replace(3, 9, domain.Bid, 101, 5)
		expectReports(t, h.rec.Reports, want{3, domain.ExecRejected, domain.OrdStatusRejected, 0, 0, 0})
	})

	t.Run("duplicate new id", func(t *testing.T) {
		h := newHarness(0)
		h.buy(1, 100, 5)
		h.buy(2, 99, 5)
		h.rec.Reset()

		h.replace(2, 1, domain.Bid, 98, 5)

		expectReports(t, h.rec.Reports, want{2, domain.ExecRejected, domain.OrdStatusRejected, 0, 0, 0})
		if h.book(t).BestBid() != 100 {
			t.Error("rejected replace changed the book")
		}
	})

	t.Run("other symbol", func(t *testing.T) {
		h := newHarness(0)
		h.buy(1, 100, 10)
		h.rec.Reset()

		h.submit(domain.Order{ClOrdID: 2, OrigClOrdID: 1, Symbol: "OTHER", Side: domain.Bid, Price: 101, OrderQty: 10, Kind: domain.ReplaceRequest})

		expectReports(t, h.rec.Reports, want{2, domain.ExecRejected, domain.OrdStatusRejected, 0, 0, 0})
		if h.rec.Reports[0].Text != "symbol OTHER does not match origClOrdId 1" {
			t.Errorf("text = %q", h.rec.Reports[0].Text)
		}
		if _, ok := h.sim.Book("OTHER"); ok {
			t.Error("rejected replace created a book")
		}

		h.rec.Reset()
		h.cancel(3, 1)
		expectReports(t, h.rec.Reports, want{3, domain.ExecCanceled, domain.OrdStatusCanceled, 0, 0, 0})
		if d := h.book(t).Depth(domain.Bid, 0); len(d) != 0 {
			t.Errorf("depth after cancel = %+v", d)
		}
		expectEmpty(t, h)
	})
}

func TestCancelUsesRestingBook(t *testing.T) {
	h := newHarness(0)
	h.buy(1, 100, 10)
	h.rec.Reset()

	// The cancel names another symbol; the order still leaves its own book.
	h.submit(domain.Order{ClOrdID: 2, OrigClOrdID: 1, Symbol: "OTHER", Kind: domain.CancelRequest})

	expectReports(t, h.rec.Reports, want{2, domain.ExecCanceled, domain.OrdStatusCanceled, 0, 0, 0})
	if h.rec.Reports[0].Symbol != sym {
		t.Errorf("Symbol = %q, want %q", h.rec.Reports[0].Symbol, sym)
	}
	if _, ok := h.sim.Book("OTHER"); ok {
		t.Error("cancel created a book")
	}
	expectEmpty(t, h)
}

func TestTradingMask(t *testing.T) {
	h := newHarness(0)
	h.sell(1, 100, 10)
	b := h.book(t)

	b.SetTradingMask(true)
	if !b.TradingMask() {
		t.Fatal("mask not set")
	}
	h.rec.Reset()
	h.buy(2, 101, 4)

	expectReports(t, h.rec.Reports, want{2, domain.ExecNew, domain.OrdStatusNew, 0, 0, 4})
	if b.BestBid() != 101 || b.BestAsk() != 100 {
		t.Errorf("best = %d/%d, want 101/100 while masked", b.BestBid(), b.BestAsk())
	}

	b.SetTradingMask(false)
	h.rec.Reset()
	h.buy(3, 100, 6)

	expectReports(t, h.rec.Reports,
		want{3, domain.ExecTrade, domain.OrdStatusFilled, 6, 100, 0},
		want{1, domain.ExecTrade, domain.OrdStatusPartiallyFilled, 6, 100, 4},
	)
	if b.BestAsk() != 100 {
		t.Errorf("BestAsk = %d, want 100", b.BestAsk())
	}
}

func TestStatusRequest(t *testing.T) {
	h := newHarness(0)
	h.buy(1, 100, 10)
	h.submit(domain.Order{ClOrdID: 5, OrigClOrdID: 1, Kind: domain.StatusRequest})
	h.sell(2, 100, 4)
	h.submit(domain.Order{ClOrdID: 6, OrigClOrdID: 1, Kind: domain.StatusRequest})
	h.submit(domain.Order{ClOrdID: 7, OrigClOrdID: 2, Kind: domain.StatusRequest})

	first := h.rec.ByClOrdID(5)
	if len(first) != 1 || first[0].ExecType != domain.ExecNew || first[0].LeavesQty != 10 {
		t.Errorf("status before fill = %+v", first)
	}
	second := h.rec.ByClOrdID(6)
	if len(second) != 1 || second[0].OrdStatus != domain.OrdStatusPartiallyFilled || second[0].LeavesQty != 6 {
		t.Errorf("status after fill = %+v", second)
	}
	third := h.rec.ByClOrdID(7)
	if len(third) != 1 || third[0].ExecType != domain.ExecRejected {
		t.Errorf("status of filled order = %+v", third)
	}
	if h.sim.LiveOrders() != 1 {
		t.Errorf("LiveOrders = %d, want 1", h.sim.LiveOrders())
	}
}

func TestLatency(t *testing.T) {
	h := newHarness(time.Microsecond)

	h.buy(1, 100, 10) // due 1000
	h.step(500)
	h.sell(2, 100, 10) // due 1500

	if h.sim.Pending() != 2 || len(h.rec.Reports) != 0 {
		t.Fatalf("pending=%d reports=%d before due", h.sim.Pending(), len(h.rec.Reports))
	}

	h.step(499)
	if len(h.rec.Reports) != 0 {
		t.Fatal("order dispatched before its due time")
	}

	h.step(1)
	expectReports(t, h.rec.Reports, want{1, domain.ExecNew, domain.OrdStatusNew, 0, 0, 10})
	if h.rec.Reports[0].TransactTime != 1000 {
		t.Errorf("TransactTime = %d, want 1000", h.rec.Reports[0].TransactTime)
	}
	if h.sim.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", h.sim.Pending())
	}

	h.step(500)
	if len(h.rec.Reports) != 3 {
		t.Fatalf("got %d reports after second due time", len(h.rec.Reports))
	}
	if h.rec.Reports[1].TransactTime != 1500 {
		t.Errorf("fill TransactTime = %d, want 1500", h.rec.Reports[1].TransactTime)
	}
	if h.sim.Pending() != 0 || h.tm.Pending() != 0 {
		t.Errorf("pending=%d scheduled=%d after drain", h.sim.Pending(), h.tm.Pending())
	}
}

func TestLatency_DrainsInArrivalOrder(t *testing.T) {
	h := newHarness(time.Microsecond)
	h.buy(1, 100, 5)
	h.buy(2, 100, 5)
	h.buy(3, 101, 5)

	h.step(1000)

	if len(h.rec.Reports) != 3 {
		t.Fatalf("got %d reports", len(h.rec.Reports))
	}
	for i, r := range h.rec.Reports {
		if r.ClOrdID != uint64(i+1) {
			t.Errorf("report %d for %d", i, r.ClOrdID)
		}
	}
	if q := h.book(t).QueueAt(domain.Bid, 100); len(q) != 2 || q[0].ClOrdID != 1 {
		t.Errorf("queue = %+v", q)
	}
}

func TestCancelOvertakingTargetIsRejected(t *testing.T) {
	h := newHarness(time.Microsecond)
	h.cancel(2, 1)
	h.buy(1, 100, 10)

	h.step(1000)

	got := h.rec.ByClOrdID(2)
	if len(got) != 1 || got[0].ExecType != domain.ExecRejected {
		t.Errorf("cancel reports = %+v", got)
	}
	if h.book(t).BestBid() != 100 {
		t.Error("order 1 should still rest")
	}
}

func TestQuoteLegFillsRealOrder(t *testing.T) {
	h := newHarness(0)
	if err := h.quote(99, 101, 100); err != nil {
		t.Fatal(err)
	}

	h.buy(1, 101, 10)

	expectReports(t, h.rec.Reports, want{1, domain.ExecTrade, domain.OrdStatusFilled, 10, 101, 0})
	q := h.book(t).QueueAt(domain.Ask, 101)
	if len(q) != 1 || q[0].ClOrdID != 0 || q[0].Shares != 100 {
		t.Errorf("ask leg after fill = %+v", q)
	}
	if h.sim.OpenOrders() != 0 {
		t.Errorf("OpenOrders = %d", h.sim.OpenOrders())
	}
}

func TestQuoteLegConsumesRealOrders(t *testing.T) {
	h := newHarness(0)
	h.sell(1, 100, 10)
	h.sell(2, 100, 5)
	h.sell(3, 103, 5)
	h.rec.Reset()

	if err := h.quote(100, 102, 50); err != nil {
		t.Fatal(err)
	}

	expectReports(t, h.rec.Reports,
		want{1, domain.ExecTrade, domain.OrdStatusFilled, 10, 100, 0},
		want{2, domain.ExecTrade, domain.OrdStatusFilled, 5, 100, 0},
	)
	b := h.book(t)
	if b.BestBid() != 100 || b.BestAsk() != 102 {
		t.Errorf("best = %d/%d, want 100/102", b.BestBid(), b.BestAsk())
	}
	if d := b.Depth(domain.Ask, 0); len(d) != 2 || d[1].Price != 103 {
		t.Errorf("ask depth = %+v", d)
	}
}

func TestQuoteLegOrdering(t *testing.T) {
	tests := []struct {
		name     string
		from, to [2]domain.Price
	}{
		{"up through old ask", [2]domain.Price{99, 101}, [2]domain.Price{102, 103}},
		{"down through old bid", [2]domain.Price{99, 101}, [2]domain.Price{96, 98}},
		{"widen", [2]domain.Price{99, 101}, [2]domain.Price{95, 105}},
		{"narrow", [2]domain.Price{95, 105}, [2]domain.Price{99, 100}},
		{"unchanged", [2]domain.Price{99, 101}, [2]domain.Price{99, 101}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(0)
			if err := h.quote(tt.from[0], tt.from[1], 10); err != nil {
				t.Fatal(err)
			}
			if err := h.quote(tt.to[0], tt.to[1], 20); err != nil {
				t.Fatal(err)
			}

			b := h.book(t)
			if b.BestBid() != tt.to[0] || b.BestAsk() != tt.to[1] {
				t.Errorf("best = %d/%d, want %d/%d", b.BestBid(), b.BestAsk(), tt.to[0], tt.to[1])
			}
			if h.sim.LiveOrders() != 2 || h.sim.LiveLevels() != 2 {
				t.Errorf("slots: orders=%d levels=%d, want 2/2", h.sim.LiveOrders(), h.sim.LiveLevels())
			}
			if q := b.QueueAt(domain.Bid, tt.to[0]); len(q) != 1 || q[0].Shares != 20 {
				t.Errorf("bid leg = %+v", q)
			}
		})
	}
}

func TestCrossedQuoteDropped(t *testing.T) {
	h := newHarness(0)
	err := h.quote(101, 100, 10)
	if !errors.Is(err, domain.ErrCrossedQuote) {
		t.Fatalf("err = %v, want ErrCrossedQuote", err)
	}
	if h.sim.Symbols() != 0 {
		t.Error("crossed quote created a book")
	}

	if err := h.quote(100, 100, 10); !errors.Is(err, domain.ErrCrossedQuote) {
		t.Errorf("locked quote err = %v", err)
	}
	if m := h.metrics.Snapshot(); m.QuotesDropped != 2 || m.QuotesApplied != 0 {
		t.Errorf("quote metrics = %+v", m)
	}
}

func TestQuoteOneSided(t *testing.T) {
	h := newHarness(0)
	if err := h.quote(99, 101, 10); err != nil {
		t.Fatal(err)
	}
	if err := h.quote(domain.NoBid, 101, 10); err != nil {
		t.Fatal(err)
	}

	b := h.book(t)
	if b.BestBid() != domain.NoBid || b.BestAsk() != 101 {
		t.Errorf("best = %d/%d", b.BestBid(), b.BestAsk())
	}
	if h.sim.LiveOrders() != 1 {
		t.Errorf("LiveOrders = %d, want 1", h.sim.LiveOrders())
	}
	if b.TradingMask() {
		t.Error("trading mask left set")
	}
}

func TestBooksAreIndependent(t *testing.T) {
	h := newHarness(0)
	h.buy(1, 100, 10)
	h.submit(domain.Order{ClOrdID: 2, Symbol: "OTHER", Side: domain.Ask, Price: 100, OrderQty: 10, Kind: domain.NewOrder})

	if h.sim.Symbols() != 2 {
		t.Errorf("Symbols = %d, want 2", h.sim.Symbols())
	}
	for _, r := range h.rec.Reports {
		if r.ExecType == domain.ExecTrade {
			t.Errorf("orders on different symbols traded: %+v", r)
		}
	}
}
