package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunRecord describes one simulation run in the journal.
type RunRecord struct {
	ID         string     `gorm:"primaryKey" json:"id"`
	Name       string     `json:"name"`
	FeedPath   string     `json:"feed_path"`
	LatencyUS  int64      `json:"latency_us"`
	TickSize   string     `json:"tick_size"`
	Events     uint64     `json:"events"`
	Reports    uint64     `json:"reports"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"` // nil while the run is in progress
}

// ExecutionRecord is an ExecutionReport as persisted by the journal.
// Prices are stored as decimals, not ticks.
type ExecutionRecord struct {
	ID           uint            `gorm:"primaryKey" json:"-"`
	RunID        string          `gorm:"index:idx_run_seq,priority:1" json:"run_id"`
	Seq          uint64          `gorm:"index:idx_run_seq,priority:2" json:"seq"` // Emission order within the run
	ClOrdID      uint64          `gorm:"index" json:"cl_ord_id"`
	OrigClOrdID  uint64          `json:"orig_cl_ord_id"`
	Symbol       string          `json:"symbol"`
	Side         string          `json:"side"`
	ExecType     string          `json:"exec_type"`
	OrdStatus    string          `json:"ord_status"`
	LastPx       decimal.Decimal `gorm:"type:text" json:"last_px"`
	LastQty      uint32          `json:"last_qty"`
	LeavesQty    uint32          `json:"leaves_qty"`
	TransactTime int64           `json:"transact_time"`
	Text         string          `json:"text"`
}
