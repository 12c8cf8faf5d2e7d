package domain

// ExecType describes what happened to an order.
type ExecType uint8

const (
	ExecNew ExecType = iota + 1
	ExecTrade
	ExecPartiallyFilled
	ExecFilled
	ExecReplaced
	ExecCanceled
	ExecRejected
)

// String returns the string representation of ExecType
func (e ExecType) String() string {
	switch e {
	case ExecNew:
		return "NEW"
	case ExecTrade:
		return "TRADE"
	case ExecPartiallyFilled:
		return "PARTIALLY_FILLED"
	case ExecFilled:
		return "FILLED"
	case ExecReplaced:
		return "REPLACED"
	case ExecCanceled:
		return "CANCELED"
	case ExecRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// OrdStatus is the order state after the reported event.
type OrdStatus uint8

const (
	OrdStatusNew OrdStatus = iota + 1
	OrdStatusPartiallyFilled
	OrdStatusFilled
	OrdStatusReplaced
	OrdStatusCanceled
	OrdStatusRejected
)

// String returns the string representation of OrdStatus
func (s OrdStatus) String() string {
	switch s {
	case OrdStatusNew:
		return "NEW"
	case OrdStatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case OrdStatusFilled:
		return "FILLED"
	case OrdStatusReplaced:
		return "REPLACED"
	case OrdStatusCanceled:
		return "CANCELED"
	case OrdStatusRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// IsOpen checks if the order is still working after this status.
func (s OrdStatus) IsOpen() bool {
	return s == OrdStatusNew || s == OrdStatusPartiallyFilled || s == OrdStatusReplaced
}

// ExecutionReport is emitted for every engine-visible order state change.
// Text is empty on success and carries the diagnostic on rejects.
type ExecutionReport struct {
	ClOrdID      uint64
	OrigClOrdID  uint64
	Symbol       string
	LastPx       Price
	LastQty      Qty
	LeavesQty    Qty
	Side         Side
	ExecType     ExecType
	OrdStatus    OrdStatus
	TransactTime int64 // Unix nanoseconds, simulated clock
	Text         string
}
