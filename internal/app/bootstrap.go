package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"grid_go/internal/domain"
	"grid_go/internal/engine"
	"grid_go/internal/execution"
	"grid_go/internal/infra"
	"grid_go/internal/infra/bitget"
	"grid_go/internal/infra/mexc"
	"grid_go/internal/infra/storage"
	"grid_go/internal/infra/upbit"
	"grid_go/internal/service"
	"grid_go/internal/strategy"

	"github.com/joho/godotenv"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Store   domain.CounterStore
	Source  domain.PriceSource
	Worker  domain.ExchangeWorker // Set only for streaming providers
	Counter *service.TradeCounter
	Paper   *execution.PaperExecution
	Runner  *engine.Runner
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration and wires every component. Nothing touches the network yet.
func (b *Bootstrap) Initialize() error {
	// 1. Environment (.env is optional)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	// 2. Load Config
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	// 3. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("Bootstrapping grid bot...",
		slog.String("provider", cfg.API.Provider),
		slog.String("storage", cfg.Storage.Driver),
	)

	// 4. Strategy
	cycle, err := strategy.NewGridCycle(strategy.Params{
		Pair:               cfg.Trading.Pair,
		Capital:            cfg.Trading.Capital,
		GridPercentage:     cfg.Trading.GridPercentage,
		StopLossPercentage: cfg.Trading.StopLossPercentage,
		EntryMargin:        cfg.Trading.EntryMargin,
	})
	if err != nil {
		return &domain.ConfigError{Field: "trading", Err: err}
	}

	// 5. Counter Store
	store, err := storage.Open(cfg)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("Counter store ready", slog.String("driver", cfg.Storage.Driver), slog.String("path", cfg.Storage.Path))

	// 6. Price Source
	source, worker, err := NewPriceSource(cfg)
	if err != nil {
		store.Close()
		return err
	}
	b.Source = source
	b.Worker = worker

	// 7. Runner
	b.Counter = service.NewTradeCounter(store, infra.GlobalMetrics)
	b.Paper = execution.NewPaperExecution(cfg.Trading.Pair, cfg.Trading.Capital)
	b.Runner = engine.NewRunner(cycle, source, b.Counter, b.Paper, infra.GlobalMetrics, cfg.PollInterval())

	return nil
}

// NewPriceSource builds the configured price source. worker is non-nil when
// the source needs Connect before use.
func NewPriceSource(cfg *infra.Config) (source domain.PriceSource, worker domain.ExchangeWorker, err error) {
	switch cfg.API.Provider {
	case infra.ProviderBitget:
		return bitget.NewClient(cfg), nil, nil
	case infra.ProviderBitgetWS:
		w, err := bitget.NewSpotWorker(cfg)
		if err != nil {
			return nil, nil, err
		}
		return w, w, nil
	case infra.ProviderUpbit:
		return upbit.NewClient(cfg), nil, nil
	case infra.ProviderMexc:
		return mexc.NewClient(cfg), nil, nil
	default:
		return nil, nil, &domain.ConfigError{Field: "api.provider", Err: fmt.Errorf("unknown provider %q", cfg.API.Provider)}
	}
}

// Start connects streaming sources and logs the durable counters.
func (b *Bootstrap) Start(ctx context.Context) error {
	if b.Worker != nil {
		if err := b.Worker.Connect(ctx); err != nil {
			return err
		}
		slog.Info("Price stream started", slog.String("provider", b.Config.API.Provider))
	}

	counts := b.Counter.Snapshot(ctx)
	slog.Info("Durable counters loaded", slog.Int64("buys", counts.Buys), slog.Int64("sells", counts.Sells))
	return nil
}

// Close releases the price stream and the counter store.
func (b *Bootstrap) Close() {
	if b.Worker != nil {
		b.Worker.Disconnect()
	}
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			slog.Error("Failed to close counter store", slog.Any("error", err))
		}
	}
}
