package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"exchange_sim/internal/clock"
	"exchange_sim/internal/domain"
	"exchange_sim/internal/engine"
	"exchange_sim/internal/event"
	"exchange_sim/internal/feed"
	"exchange_sim/internal/infra"
	"exchange_sim/internal/infra/storage"
	"exchange_sim/internal/matching"
	"exchange_sim/internal/strategy"
)

// Bootstrap orchestrates the application startup sequence and owns every
// component of a simulation run.
type Bootstrap struct {
	Config    *infra.Config
	Logger    *slog.Logger
	Metrics   *infra.Metrics
	Journal   *storage.Journal // nil when storage.path is empty
	Parser    *feed.Parser
	Clock     *clock.TimeManager
	Simulator *matching.Simulator
	Sequencer *engine.Sequencer
	Strategy  *strategy.SMACrossStrategy // nil when disabled

	reports uint64
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads the configuration file and wires the components.
func (b *Bootstrap) Initialize(configPath string) error {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	return b.Wire(cfg, logger)
}

// Wire builds the components from an already loaded configuration.
func (b *Bootstrap) Wire(cfg *infra.Config, logger *slog.Logger) error {
	b.Config = cfg
	b.Logger = logger
	b.Metrics = &infra.Metrics{}
	logger.Info("Bootstrapping exchange simulator", slog.String("name", cfg.App.Name))

	b.Parser = feed.NewParser(cfg.FeedDelimiter(), cfg.Simulator.TickSize)

	sinks := domain.MultiSink{domain.SinkFunc(func(domain.ExecutionReport) { b.reports++ })}
	if cfg.Storage.Path != "" {
		journal, err := storage.Open(cfg.Storage.Path, storage.Options{
			BatchSize: cfg.Storage.BatchSize,
			Price:     b.Parser.Decimal,
			Logger:    logger,
		})
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		b.Journal = journal
		sinks = append(sinks, journal)
		logger.Info("Journal initialized", slog.String("path", cfg.Storage.Path))
	}

	b.Clock = clock.NewTimeManager(0, cfg.Simulator.InboxSize)
	b.Simulator = matching.NewSimulator(matching.Options{
		Latency:       cfg.Latency(),
		OrderCapacity: cfg.Simulator.OrderCapacity,
		LevelCapacity: cfg.Simulator.LevelCapacity,
		Logger:        logger,
		Metrics:       b.Metrics,
	}, b.Clock, nil)

	var strat strategy.Strategy
	if cfg.Strategy.Enabled {
		b.Strategy = strategy.NewSMACrossStrategy(cfg.Strategy.Symbol, cfg.Strategy.ShortPeriod, cfg.Strategy.LongPeriod, domain.Qty(cfg.Strategy.Qty))
		strat = b.Strategy
	}

	b.Sequencer = engine.NewSequencer(engine.Config{
		InboxSize:   cfg.Simulator.InboxSize,
		ClOrdIDBase: cfg.Strategy.ClOrdIDBase,
		Logger:      logger,
		Metrics:     b.Metrics,
	}, b.Clock, b.Simulator, strat)

	b.Simulator.SetSink(append(sinks, b.Sequencer))
	event.Warmup()
	return nil
}

// Summary describes a finished replay.
type Summary struct {
	RunID      string
	Events     uint64
	FeedErrors int
	Reports    uint64
	Metrics    infra.MetricsSnapshot
	Books      []BookSummary
	Position   int64
	Working    domain.Qty // Strategy shares still open
}

// BookSummary is the final top of book of one symbol.
type BookSummary struct {
	Symbol  string
	BestBid domain.Price
	BestAsk domain.Price
	Bids    int // Levels
	Asks    int
}

// ReplayFile replays the feed at path.
func (b *Bootstrap) ReplayFile(ctx context.Context, path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed: %w", err)
	}
	defer f.Close()

	if b.Journal != nil {
		if _, err := b.Journal.StartRun(&domain.RunRecord{
			Name:      b.Config.App.Name,
			FeedPath:  path,
			LatencyUS: b.Config.Simulator.LatencyUS,
			TickSize:  b.Config.Simulator.TickSize.String(),
		}); err != nil {
			return nil, err
		}
	}
	return b.Replay(ctx, f)
}

// Replay feeds every record of r through the sequencer, which runs on its
// own goroutine, and waits for the pending orders to drain. Malformed
// records are logged and skipped.
func (b *Bootstrap) Replay(ctx context.Context, r io.Reader) (*Summary, error) {
	reader := feed.NewReader(r, b.Parser)

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Sequencer.Run(ctx)
	}()

	feedErrors := 0
	inbox := b.Sequencer.Inbox()
	seq := uint64(0)
	var readErr error

produce:
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var fe *domain.FeedError
			if !errors.As(err, &fe) {
				readErr = err
				break
			}
			feedErrors++
			b.Metrics.RecordError()
			b.Logger.Warn("Skipping feed record", slog.Any("error", err))
			continue
		}

		seq++
		ev := toEvent(seq, &rec)
		select {
		case inbox <- ev:
		case <-ctx.Done():
			break produce
		}
	}
	close(inbox)
	<-done

	if readErr != nil {
		return nil, fmt.Errorf("feed read failed: %w", readErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.summarize(feedErrors), nil
}

func toEvent(seq uint64, rec *feed.Record) event.Event {
	switch rec.Kind {
	case feed.KindQuote:
		ev := event.AcquireQuoteEvent()
		ev.Seq = seq
		ev.Ts = rec.Quote.Time
		ev.Quote = rec.Quote
		return ev
	case feed.KindHeartbeat:
		ev := event.AcquireTickEvent()
		ev.Seq = seq
		ev.Ts = rec.At
		return ev
	}
	order := rec.Order
	return &event.OrderEvent{
		BaseEvent: event.BaseEvent{Seq: seq, Ts: order.TransactTime},
		Order:     &order,
	}
}

func (b *Bootstrap) summarize(feedErrors int) *Summary {
	s := &Summary{
		Events:     b.Sequencer.Processed(),
		FeedErrors: feedErrors,
		Reports:    b.reports,
		Metrics:    b.Metrics.Snapshot(),
	}
	if b.Journal != nil {
		s.RunID = b.Journal.RunID()
	}
	if b.Strategy != nil {
		s.Position = b.Strategy.Position()
		s.Working = b.Strategy.Working()
	}
	for _, book := range b.Simulator.Books() {
		s.Books = append(s.Books, BookSummary{
			Symbol:  book.Symbol(),
			BestBid: book.BestBid(),
			BestAsk: book.BestAsk(),
			Bids:    len(book.Depth(domain.Bid, 0)),
			Asks:    len(book.Depth(domain.Ask, 0)),
		})
	}
	return s
}

// Close finalizes the journal run and closes the database.
func (b *Bootstrap) Close() error {
	if b.Journal == nil {
		return nil
	}
	finishErr := b.Journal.FinishRun(b.Sequencer.Processed())
	return errors.Join(finishErr, b.Journal.Close())
}
