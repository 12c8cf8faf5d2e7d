package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"exchange_sim/internal/app"
	"exchange_sim/internal/domain"
	"exchange_sim/internal/feed"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration")
	feedPath := flag.String("feed", "", "feed file to replay (overrides feed.path)")
	flag.Parse()

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 2. Pprof Server (for performance profiling)
	if addr := cfg.Debug.PprofAddr; addr != "" {
		go func() {
			slog.Info("Pprof server started", slog.String("addr", addr))
			if err := http.ListenAndServe(addr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := cfg.Feed.Path
	if *feedPath != "" {
		path = *feedPath
	}
	if path == "" {
		slog.Error("No feed given; set feed.path or pass -feed")
		os.Exit(2)
	}

	// 4. Replay
	slog.InfoContext(ctx, "Replay started", slog.String("feed", path), slog.Duration("latency", cfg.Latency()))
	summary, err := bootstrap.ReplayFile(ctx, path)
	closeErr := bootstrap.Close()
	if err != nil {
		slog.Error("Replay failed", slog.Any("error", err))
		os.Exit(1)
	}
	if closeErr != nil {
		slog.Error("Journal close failed", slog.Any("error", closeErr))
	}

	printSummary(summary, bootstrap.Parser)
	slog.Info("Replay finished",
		slog.String("run", summary.RunID),
		slog.Uint64("events", summary.Events),
		slog.Uint64("reports", summary.Reports))
}

func printSummary(s *app.Summary, parser *feed.Parser) {
	fmt.Printf("events=%d feed_errors=%d reports=%d fills=%d rejects=%d quotes=%d/%d dropped\n",
		s.Events, s.FeedErrors, s.Reports,
		s.Metrics.Fills, s.Metrics.Rejects, s.Metrics.QuotesApplied, s.Metrics.QuotesDropped)
	if s.RunID != "" {
		fmt.Printf("run=%s\n", s.RunID)
	}
	for _, b := range s.Books {
		fmt.Printf("%-8s bid=%s ask=%s levels=%d/%d\n", b.Symbol, level(parser, b.BestBid, b.Bids), level(parser, b.BestAsk, b.Asks), b.Bids, b.Asks)
	}
	if s.Position != 0 || s.Working != 0 {
		fmt.Printf("strategy position=%d working=%d\n", s.Position, s.Working)
	}
}

func level(parser *feed.Parser, price domain.Price, depth int) string {
	if depth == 0 {
		return "-"
	}
	return parser.Decimal(price).String()
}
