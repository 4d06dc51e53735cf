package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fill sides
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

var (
	// ErrPositionOpen is returned by Buy while a position is held.
	ErrPositionOpen = errors.New("position already open")
	// ErrNoPosition is returned by Sell when flat.
	ErrNoPosition = errors.New("no open position")
)

// Fill represents a simulated order fill.
type Fill struct {
	ID       uuid.UUID       `json:"id"`
	Pair     string          `json:"pair"`
	Side     string          `json:"side"` // "BUY" or "SELL"
	Price    decimal.Decimal `json:"price"`
	Qty      decimal.Decimal `json:"qty"`
	Notional decimal.Decimal `json:"notional"`
	Reason   string          `json:"reason,omitempty"` // "loss" or "profit" on sells
	Time     time.Time       `json:"time"`
}

// Position is the open paper position, if any.
type Position struct {
	Open       bool
	Qty        decimal.Decimal
	EntryPrice decimal.Decimal
	Cost       decimal.Decimal
}

// PaperExecution simulates immediate full fills at the tick price.
// No fees, no slippage, no partial fills. One position at a time.
type PaperExecution struct {
	pair     string
	capital  decimal.Decimal
	position Position
	realized decimal.Decimal
	fills    []Fill
	mu       sync.Mutex
	now      func() time.Time
}

// NewPaperExecution creates a new paper trading executor for pair.
func NewPaperExecution(pair string, capital decimal.Decimal) *PaperExecution {
	return &PaperExecution{
		pair:    pair,
		capital: capital,
		fills:   make([]Fill, 0),
		now:     time.Now,
	}
}

// Buy opens a position of qty at price.
func (p *PaperExecution) Buy(ctx context.Context, price, qty decimal.Decimal) (Fill, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.position.Open {
		return Fill{}, ErrPositionOpen
	}
	if !price.IsPositive() || !qty.IsPositive() {
		return Fill{}, fmt.Errorf("invalid buy: price=%s qty=%s", price, qty)
	}

	notional := price.Mul(qty)
	p.position = Position{Open: true, Qty: qty, EntryPrice: price, Cost: notional}

	fill := p.record(SideBuy, price, qty, notional, "")
	slog.Info("PAPER EXECUTION: Buy Filled",
		slog.String("id", fill.ID.String()),
		slog.String("pair", p.pair),
		slog.String("price", price.String()),
		slog.String("qty", qty.String()))
	return fill, nil
}

// Sell closes the whole open position at price.
func (p *PaperExecution) Sell(ctx context.Context, price decimal.Decimal, reason string) (Fill, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.position.Open {
		return Fill{}, ErrNoPosition
	}
	if !price.IsPositive() {
		return Fill{}, fmt.Errorf("invalid sell: price=%s", price)
	}

	qty := p.position.Qty
	notional := price.Mul(qty)
	pnl := notional.Sub(p.position.Cost)
	p.realized = p.realized.Add(pnl)
	p.position = Position{}

	fill := p.record(SideSell, price, qty, notional, reason)
	slog.Info("PAPER EXECUTION: Sell Filled",
		slog.String("id", fill.ID.String()),
		slog.String("pair", p.pair),
		slog.String("price", price.String()),
		slog.String("qty", qty.String()),
		slog.String("reason", reason),
		slog.String("pnl", pnl.StringFixed(8)))
	return fill, nil
}

func (p *PaperExecution) record(side string, price, qty, notional decimal.Decimal, reason string) Fill {
	fill := Fill{
		ID:       uuid.New(),
		Pair:     p.pair,
		Side:     side,
		Price:    price,
		Qty:      qty,
		Notional: notional,
		Reason:   reason,
		Time:     p.now(),
	}
	p.fills = append(p.fills, fill)
	return fill
}

// GetPosition returns the current position.
func (p *PaperExecution) GetPosition() Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// RealizedPnL returns the sum of closed-cycle profit and loss in quote units.
func (p *PaperExecution) RealizedPnL() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.realized
}

// Equity returns starting capital plus realized PnL.
func (p *PaperExecution) Equity() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capital.Add(p.realized)
}

// GetFills returns a copy of all fills.
func (p *PaperExecution) GetFills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]Fill, len(p.fills))
	copy(result, p.fills)
	return result
}
