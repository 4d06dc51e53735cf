package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"grid_go/internal/app"
	"grid_go/internal/infra"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()
	cfg := bootstrap.Config

	// 2. Pprof Server (opt-in)
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

	// 4. Price stream + durable counters
	if err := bootstrap.Start(ctx); err != nil {
		slog.Error("Failed to start price source", slog.Any("error", err))
		os.Exit(1)
	}

	slog.InfoContext(ctx, "Grid bot running. Press Ctrl+C to exit.",
		slog.String("pair", cfg.Trading.Pair),
		slog.String("grid_percentage", cfg.Trading.GridPercentage.String()),
		slog.String("stop_loss_percentage", cfg.Trading.StopLossPercentage.String()),
	)

	// 5. Runner (blocks until signal)
	bootstrap.Runner.Run(ctx)

	m := infra.GlobalMetrics.Snapshot()
	slog.Info("Shutting down gracefully...",
		slog.Uint64("ticks", m.TicksProcessed),
		slog.Uint64("missed_ticks", m.MissedTicks),
		slog.Uint64("buys", m.Buys),
		slog.Uint64("sells_loss", m.SellsLoss),
		slog.Uint64("sells_profit", m.SellsProfit),
		slog.Uint64("store_errors", m.StoreErrors),
		slog.String("realized_pnl", bootstrap.Paper.RealizedPnL().StringFixed(8)),
	)
}
