package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"grid_go/internal/domain"
	"grid_go/internal/execution"
	"grid_go/internal/infra"
	"grid_go/internal/service"
	"grid_go/internal/strategy"

	"github.com/shopspring/decimal"
)

const defaultDumpPath = "panic_dump.json"

// Runner is the single-goroutine poll loop: fetch, tick, dispatch, wait.
// Ticks are strictly sequential; dispatch completes before the next fetch.
type Runner struct {
	cycle    *strategy.GridCycle
	source   domain.PriceSource
	counter  *service.TradeCounter
	exec     *execution.PaperExecution
	metrics  *infra.Metrics
	pair     string
	interval time.Duration
	dumpPath string
	logger   *slog.Logger

	state     strategy.State
	lastPrice decimal.Decimal
	ticks     uint64

	mu sync.RWMutex // Used only for external reads
}

// NewRunner creates a Runner. exec may be nil to skip paper fills.
func NewRunner(
	cycle *strategy.GridCycle,
	source domain.PriceSource,
	counter *service.TradeCounter,
	exec *execution.PaperExecution,
	metrics *infra.Metrics,
	interval time.Duration,
) *Runner {
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	return &Runner{
		cycle:    cycle,
		source:   source,
		counter:  counter,
		exec:     exec,
		metrics:  metrics,
		pair:     cycle.Params().Pair,
		interval: interval,
		dumpPath: defaultDumpPath,
		logger:   slog.Default().With("module", "runner"),
	}
}

// SetDumpPath sets where DumpState writes on panic.
func (r *Runner) SetDumpPath(path string) {
	r.dumpPath = path
}

// Run loops until ctx is done. A normal tick or a failed fetch waits one
// poll interval; a tick that anchors a cycle or exits a position re-samples at once.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("Runner started",
		slog.String("pair", r.pair),
		slog.Duration("interval", r.interval),
	)

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", rec))
			r.DumpState(r.dumpPath)
			panic(fmt.Sprintf("HALTED: %v", rec))
		}
	}()

	timer := time.NewTimer(r.interval)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Runner stopping...")
			return
		default:
		}

		if !r.Step(ctx) {
			continue
		}

		timer.Reset(r.interval)
		select {
		case <-ctx.Done():
			r.logger.Info("Runner stopping...")
			return
		case <-timer.C:
		}
	}
}

// Step runs one fetch-tick-dispatch iteration and reports whether the caller
// should wait a poll interval before the next one.
func (r *Runner) Step(ctx context.Context) (wait bool) {
	start := time.Now()

	price, err := r.source.FetchLatestPrice(ctx, r.pair)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		r.logger.Warn("price fetch failed, skipping tick",
			slog.Any("error", err),
			slog.Bool("retriable", domain.IsRetriable(err)),
		)
		r.metrics.RecordMissedTick()
		return true
	}

	prev := r.state
	next, ev := r.cycle.Tick(prev, price)

	r.mu.Lock()
	r.state = next
	r.lastPrice = price
	r.ticks++
	r.mu.Unlock()

	r.logTick(prev, next, price)

	if ev != nil {
		r.dispatch(ctx, next, ev)
	}

	r.metrics.RecordTick(time.Since(start).Nanoseconds())

	anchored := !prev.Anchored
	exited := ev != nil && ev.Kind == strategy.EventSell
	return !(anchored || exited)
}

func (r *Runner) logTick(prev, next strategy.State, price decimal.Decimal) {
	if !prev.Anchored {
		r.logger.Info("grid anchored",
			slog.String("price", price.String()),
			slog.String("buy_level", next.BuyLevel.String()),
			slog.String("sell_level", next.SellLevel.String()),
		)
		return
	}
	if !r.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	r.logger.Debug("tick",
		slog.String("price", price.String()),
		slog.Bool("holding", next.Holding),
		slog.String("buy_level", next.BuyLevel.String()),
		slog.String("sell_level", next.SellLevel.String()),
		slog.String("distance_pct", strategy.DistanceFromBuyPct(price, next.BuyLevel).StringFixed(4)),
	)
}

func (r *Runner) dispatch(ctx context.Context, next strategy.State, ev *strategy.Event) {
	params := r.cycle.Params()

	switch ev.Kind {
	case strategy.EventBuy:
		if r.exec != nil {
			if _, err := r.exec.Buy(ctx, ev.Price, ev.PositionSize); err != nil {
				r.logger.Warn("paper buy rejected", slog.Any("error", err))
			}
		}
		n, _ := r.counter.Increment(ctx, domain.CounterBuy)
		r.metrics.RecordBuy()
		r.logger.Info("BUY",
			slog.String("price", ev.Price.String()),
			slog.String("size", ev.PositionSize.StringFixed(8)),
			slog.String("sell_level", next.SellLevel.String()),
			slog.String("stop_loss", next.StopLossPrice(params.StopLossPercentage).String()),
			slog.Int64("buys", n),
		)

	case strategy.EventSell:
		if r.exec != nil {
			if _, err := r.exec.Sell(ctx, ev.Price, string(ev.Reason)); err != nil {
				r.logger.Warn("paper sell rejected", slog.Any("error", err))
			}
		}
		n, _ := r.counter.Increment(ctx, domain.CounterSell)
		r.metrics.RecordSell(ev.Reason == strategy.ExitProfit)

		attrs := []any{
			slog.String("reason", string(ev.Reason)),
			slog.String("price", ev.Price.String()),
			slog.String("entry", ev.EntryPrice.String()),
			slog.Int64("sells", n),
		}
		if ev.Proceeds != nil {
			attrs = append(attrs, slog.String("proceeds", ev.Proceeds.StringFixed(8)))
		}
		r.logger.Info("SELL", attrs...)

	default:
		r.logger.Warn("Unknown event kind", slog.String("kind", ev.Kind.String()))
	}
}

// State returns a copy of the current state (external read).
func (r *Runner) State() strategy.State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.state
	if s.EntryPrice != nil {
		entry := *s.EntryPrice
		s.EntryPrice = &entry
	}
	return s
}

// LastPrice returns the most recent evaluated price.
func (r *Runner) LastPrice() decimal.Decimal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastPrice
}

// DumpState writes the runner state to a file (for post-mortem).
func (r *Runner) DumpState(filename string) {
	r.logger.Info("Dumping internal state...", slog.String("file", filename))

	r.mu.RLock()
	data := struct {
		Pair      string                `json:"pair"`
		Ticks     uint64                `json:"ticks"`
		LastPrice decimal.Decimal       `json:"last_price"`
		State     strategy.State        `json:"state"`
		Metrics   infra.MetricsSnapshot `json:"metrics"`
	}{
		Pair:      r.pair,
		Ticks:     r.ticks,
		LastPrice: r.lastPrice,
		State:     r.state,
		Metrics:   r.metrics.Snapshot(),
	}
	r.mu.RUnlock()

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		r.logger.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		r.logger.Error("Failed to write state dump", slog.Any("error", err))
	}
}
