package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"exchange_sim/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultBatchSize = 256

// Options configures a Journal.
type Options struct {
	// Reports buffered per insert
	BatchSize int
	// Tick to decimal conversion, defaults to one unit per tick
	Price  func(ticks domain.Price) decimal.Decimal
	Logger *slog.Logger
}

// Journal is an ExecutionSink that persists every report of a run to SQLite.
// Reports are buffered and written in batches; Flush or Close writes the rest.
// Like the simulator it is driven from a single goroutine.
type Journal struct {
	db        *gorm.DB
	batchSize int
	price     func(domain.Price) decimal.Decimal
	logger    *slog.Logger

	runID   string
	seq     uint64
	pending []domain.ExecutionRecord
	err     error // First write failure, reported by Flush
}

// Open opens (creating if needed) the journal database at path.
// An empty path opens a private in-memory database.
func Open(path string, opts Options) (*Journal, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
		dsn = path
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, wrap("open", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, wrap("open", err)
	}
	// One connection: an in-memory database is per connection.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&domain.RunRecord{}, &domain.ExecutionRecord{}); err != nil {
		return nil, wrap("migrate", err)
	}

	j := &Journal{
		db:        db,
		batchSize: opts.BatchSize,
		price:     opts.Price,
		logger:    opts.Logger,
	}
	if j.batchSize <= 0 {
		j.batchSize = defaultBatchSize
	}
	if j.price == nil {
		j.price = func(p domain.Price) decimal.Decimal { return decimal.NewFromInt(int64(p)) }
	}
	if j.logger == nil {
		j.logger = slog.Default()
	}
	j.pending = make([]domain.ExecutionRecord, 0, j.batchSize)
	return j, nil
}

// wrap classifies a database error. SQLITE_BUSY is worth retrying.
func wrap(op string, err error) error {
	return &domain.StorageError{
		Op:        op,
		Err:       err,
		Retriable: strings.Contains(err.Error(), "database is locked"),
	}
}

// StartRun records a new run and directs subsequent reports to it.
// The run's ID and StartedAt are assigned here.
func (j *Journal) StartRun(run *domain.RunRecord) (string, error) {
	if err := j.Flush(); err != nil {
		return "", err
	}
	run.ID = uuid.NewString()
	run.StartedAt = time.Now().UTC()
	if err := j.db.Create(run).Error; err != nil {
		return "", wrap("insert run", err)
	}
	j.runID = run.ID
	j.seq = 0
	return run.ID, nil
}

// RunID returns the current run, empty before StartRun.
func (j *Journal) RunID() string { return j.runID }

// OnExecution buffers report for the current run.
func (j *Journal) OnExecution(report domain.ExecutionReport) {
	j.seq++
	j.pending = append(j.pending, domain.ExecutionRecord{
		RunID:        j.runID,
		Seq:          j.seq,
		ClOrdID:      report.ClOrdID,
		OrigClOrdID:  report.OrigClOrdID,
		Symbol:       report.Symbol,
		Side:         report.Side.String(),
		ExecType:     report.ExecType.String(),
		OrdStatus:    report.OrdStatus.String(),
		LastPx:       j.price(report.LastPx),
		LastQty:      uint32(report.LastQty),
		LeavesQty:    uint32(report.LeavesQty),
		TransactTime: report.TransactTime,
		Text:         report.Text,
	})
	if len(j.pending) >= j.batchSize {
		if err := j.Flush(); err != nil {
			j.logger.Error("Journal write failed", slog.Any("error", err))
		}
	}
}

// Flush writes buffered reports. A failed batch is dropped; the first
// failure is returned by every later Flush.
func (j *Journal) Flush() error {
	if len(j.pending) > 0 {
		if err := j.db.CreateInBatches(j.pending, j.batchSize).Error; err != nil && j.err == nil {
			j.err = wrap("insert", err)
		}
		j.pending = j.pending[:0]
	}
	return j.err
}

// FinishRun flushes and stamps the current run with its totals.
func (j *Journal) FinishRun(events uint64) error {
	if err := j.Flush(); err != nil {
		return err
	}
	if j.runID == "" {
		return nil
	}
	now := time.Now().UTC()
	err := j.db.Model(&domain.RunRecord{}).Where("id = ?", j.runID).Updates(map[string]any{
		"events":      events,
		"reports":     j.seq,
		"finished_at": now,
	}).Error
	if err != nil {
		return wrap("update run", err)
	}
	return nil
}

// Close flushes and closes the database.
func (j *Journal) Close() error {
	flushErr := j.Flush()
	sqlDB, err := j.db.DB()
	if err != nil {
		return errors.Join(flushErr, wrap("close", err))
	}
	if err := sqlDB.Close(); err != nil {
		return errors.Join(flushErr, wrap("close", err))
	}
	return flushErr
}

// ======================================================================================
// Queries
// ======================================================================================

// Run retrieves a run by ID. A missing run is (nil, nil).
func (j *Journal) Run(runID string) (*domain.RunRecord, error) {
	var run domain.RunRecord
	err := j.db.First(&run, "id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, wrap("query", err)
	}
	return &run, nil
}

// Runs lists all runs, most recent first.
func (j *Journal) Runs() ([]domain.RunRecord, error) {
	var runs []domain.RunRecord
	if err := j.db.Order("started_at desc").Find(&runs).Error; err != nil {
		return nil, wrap("query", err)
	}
	return runs, nil
}

// Reports returns the persisted reports of a run in emission order.
func (j *Journal) Reports(runID string) ([]domain.ExecutionRecord, error) {
	var out []domain.ExecutionRecord
	if err := j.db.Where("run_id = ?", runID).Order("seq").Find(&out).Error; err != nil {
		return nil, wrap("query", err)
	}
	return out, nil
}

// OrderReports returns the reports of one order within a run.
func (j *Journal) OrderReports(runID string, clOrdID uint64) ([]domain.ExecutionRecord, error) {
	var out []domain.ExecutionRecord
	err := j.db.Where("run_id = ? AND cl_ord_id = ?", runID, clOrdID).Order("seq").Find(&out).Error
	if err != nil {
		return nil, wrap("query", err)
	}
	return out, nil
}

// FillSummary aggregates traded volume per symbol and side.
type FillSummary struct {
	Symbol string
	Side   string
	Fills  int64
	Shares int64
}

// Fills summarizes the trades of a run.
func (j *Journal) Fills(runID string) ([]FillSummary, error) {
	var out []FillSummary
	err := j.db.Model(&domain.ExecutionRecord{}).
		Select("symbol, side, count(*) as fills, sum(last_qty) as shares").
		Where("run_id = ? AND exec_type = ?", runID, domain.ExecTrade.String()).
		Group("symbol, side").
		Order("symbol, side").
		Scan(&out).Error
	if err != nil {
		return nil, wrap("query", err)
	}
	return out, nil
}
