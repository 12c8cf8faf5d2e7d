package strategy

import (
	"exchange_sim/internal/domain"
)

// ActionType defines the type of trading action
type ActionType int

const (
	ActionBuy  ActionType = iota + 1
	ActionSell // Sell
)

// String returns the string representation of ActionType
func (a ActionType) String() string {
	switch a {
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Side maps the action to the order side it trades on.
func (a ActionType) Side() domain.Side {
	if a == ActionSell {
		return domain.Ask
	}
	return domain.Bid
}

// Action represents a decision made by the strategy.
// Price is a limit in ticks.
type Action struct {
	Type   ActionType
	Symbol string
	Price  domain.Price
	Qty    domain.Qty
}

// Strategy is the trading algorithm under test. Both methods are called
// synchronously by the Sequencer.
type Strategy interface {
	// OnQuote is called for every applied quote.
	// It returns a list of Actions to be submitted as new orders.
	OnQuote(q domain.Quote) []Action

	// OnExecution receives every execution report the simulator emits.
	OnExecution(report domain.ExecutionReport)
}
