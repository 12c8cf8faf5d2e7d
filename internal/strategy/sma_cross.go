package strategy

import (
	"exchange_sim/internal/domain"
)

// SMACrossStrategy implements a simple SMA crossover on quote mid prices.
// A golden cross buys at the ask, a dead cross sells at the bid, and the
// strategy holds at most one lot either way.
// It is stateful and deterministic; the price history is a fixed ring buffer.
type SMACrossStrategy struct {
	symbol      string
	shortPeriod int
	longPeriod  int
	qty         domain.Qty

	// State (Ring Buffer)
	mids  []int64
	head  int   // Current write position
	count int   // Number of elements filled
	sum   int64 // Running sum over the long period

	prevShortSMA int64
	prevLongSMA  int64

	position int64 // Net filled shares, positive long
	fills    int
	working  map[uint64]domain.Qty // Leaves of open orders by ClOrdID
}

// NewSMACrossStrategy creates a new instance trading qty shares per signal.
func NewSMACrossStrategy(symbol string, shortPeriod, longPeriod int, qty domain.Qty) *SMACrossStrategy {
	if shortPeriod <= 0 || shortPeriod >= longPeriod {
		panic("SMACrossStrategy: shortPeriod must be positive and less than longPeriod")
	}
	return &SMACrossStrategy{
		symbol:      symbol,
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		qty:         qty,
		mids:        make([]int64, longPeriod), // Fixed size allocation
		working:     make(map[uint64]domain.Qty),
	}
}

// Position returns the net filled position in shares.
func (s *SMACrossStrategy) Position() int64 { return s.position }

// Fills returns the number of trade reports received.
func (s *SMACrossStrategy) Fills() int { return s.fills }

// Working returns the shares of the strategy's orders still open on the book.
func (s *SMACrossStrategy) Working() domain.Qty {
	var total domain.Qty
	for _, leaves := range s.working {
		total += leaves
	}
	return total
}

// OnQuote updates the averages with the quote mid and emits an order on a
// crossover.
func (s *SMACrossStrategy) OnQuote(q domain.Quote) []Action {
	if q.Symbol != s.symbol {
		return nil
	}
	// One-sided quotes have no meaningful mid.
	if q.Price[domain.Bid] == domain.NoBid || q.Price[domain.Ask] == domain.NoAsk {
		return nil
	}

	mid := q.Mid()

	// If full, s.head points to the oldest value
	if s.count == s.longPeriod {
		s.sum -= s.mids[s.head]
	}
	s.mids[s.head] = mid
	s.sum += mid
	s.head = (s.head + 1) % s.longPeriod
	if s.count < s.longPeriod {
		s.count++
	}

	if s.count < s.longPeriod {
		return nil
	}

	currLongSMA := s.sum / int64(s.longPeriod)
	currShortSMA := s.calculateShortSMA()

	var actions []Action

	if s.prevShortSMA != 0 && s.prevLongSMA != 0 {
		// Golden Cross: Short goes above Long
		if s.prevShortSMA <= s.prevLongSMA && currShortSMA > currLongSMA && s.position <= 0 {
			actions = append(actions, Action{
				Type:   ActionBuy,
				Symbol: s.symbol,
				Price:  q.Price[domain.Ask],
				Qty:    s.qty,
			})
		}

		// Dead Cross: Short goes below Long
		if s.prevShortSMA >= s.prevLongSMA && currShortSMA < currLongSMA && s.position >= 0 {
			actions = append(actions, Action{
				Type:   ActionSell,
				Symbol: s.symbol,
				Price:  q.Price[domain.Bid],
				Qty:    s.qty,
			})
		}
	}

	s.prevShortSMA = currShortSMA
	s.prevLongSMA = currLongSMA

	return actions
}

// OnExecution tracks open orders from every report and the position from
// trade reports.
func (s *SMACrossStrategy) OnExecution(report domain.ExecutionReport) {
	if report.Symbol != s.symbol {
		return
	}
	// Replace and cancel reports carry the target in OrigClOrdID.
	if report.OrdStatus == domain.OrdStatusReplaced || report.OrdStatus == domain.OrdStatusCanceled {
		delete(s.working, report.OrigClOrdID)
	}
	if report.OrdStatus.IsOpen() {
		s.working[report.ClOrdID] = report.LeavesQty
	} else {
		delete(s.working, report.ClOrdID)
	}

	if report.ExecType != domain.ExecTrade {
		return
	}
	s.fills++
	if report.Side == domain.Bid {
		s.position += int64(report.LastQty)
	} else {
		s.position -= int64(report.LastQty)
	}
}

// calculateShortSMA averages the most recent shortPeriod mids.
func (s *SMACrossStrategy) calculateShortSMA() int64 {
	var sum int64
	// head-1 is the latest value
	idx := s.head
	for i := 0; i < s.shortPeriod; i++ {
		idx--
		if idx < 0 {
			idx = s.longPeriod - 1
		}
		sum += s.mids[idx]
	}
	return sum / int64(s.shortPeriod)
}
