package strategy

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// EventKind defines the type of simulated trade
type EventKind int

const (
	EventBuy EventKind = iota + 1
	EventSell
)

// String returns the string representation of EventKind
func (k EventKind) String() string {
	switch k {
	case EventBuy:
		return "BUY"
	case EventSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// ExitReason tells why a held position was closed.
type ExitReason string

const (
	ExitLoss   ExitReason = "loss"
	ExitProfit ExitReason = "profit"
)

// Event is emitted by Tick on every state transition into or out of a position.
type Event struct {
	Kind         EventKind
	Price        decimal.Decimal
	PositionSize decimal.Decimal

	// Sell only
	Reason     ExitReason
	EntryPrice decimal.Decimal
	Proceeds   *decimal.Decimal // Set on profit exits only
}

// Params are the fixed knobs of a grid cycle.
type Params struct {
	Pair               string
	Capital            decimal.Decimal // Quote notional per entry
	GridPercentage     decimal.Decimal // Fraction, 0.0009 = 0.09%
	StopLossPercentage decimal.Decimal // Percent, 1 = 1%
	EntryMargin        decimal.Decimal // Absolute price units below the buy level
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if !p.Capital.IsPositive() {
		return errors.New("capital must be positive")
	}
	if !p.GridPercentage.IsPositive() || p.GridPercentage.GreaterThanOrEqual(one) {
		return fmt.Errorf("grid percentage must be in (0, 1), got %s", p.GridPercentage)
	}
	if p.StopLossPercentage.IsNegative() || p.StopLossPercentage.GreaterThanOrEqual(hundred) {
		return fmt.Errorf("stop loss percentage must be in [0, 100), got %s", p.StopLossPercentage)
	}
	if p.EntryMargin.IsNegative() {
		return fmt.Errorf("entry margin must not be negative, got %s", p.EntryMargin)
	}
	return nil
}

// State is the whole engine state. It is a value: Tick returns a new one.
// EntryPrice is non-nil iff Holding. Holding implies Anchored.
type State struct {
	Holding    bool             `json:"holding"`
	EntryPrice *decimal.Decimal `json:"entry_price,omitempty"`
	BuyLevel   decimal.Decimal  `json:"buy_level"`
	SellLevel  decimal.Decimal  `json:"sell_level"`

	// Anchored is false until the first sample of a cycle has set the levels.
	Anchored bool `json:"anchored"`
}

// StopLossPrice returns the current stop, or zero when flat.
func (s State) StopLossPrice(stopLossPct decimal.Decimal) decimal.Decimal {
	if s.EntryPrice == nil {
		return decimal.Zero
	}
	return StopLossPrice(*s.EntryPrice, stopLossPct)
}

// GridCycle evaluates the flat/holding state machine. It holds no mutable state.
type GridCycle struct {
	params Params
}

// NewGridCycle validates params and returns a GridCycle.
func NewGridCycle(params Params) (*GridCycle, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &GridCycle{params: params}, nil
}

// Params returns the cycle parameters.
func (g *GridCycle) Params() Params {
	return g.params
}

// Tick evaluates one price sample against state and returns the next state plus at most one event.
func (g *GridCycle) Tick(s State, price decimal.Decimal) (State, *Event) {
	// 1. Start of a cycle: the sample only anchors the levels
	if !s.Anchored {
		buy, sell := GridLevels(price, g.params.GridPercentage)
		return State{BuyLevel: buy, SellLevel: sell, Anchored: true}, nil
	}

	// 2. Flat: wait for the buy zone (BuyLevel - margin, BuyLevel]
	if !s.Holding {
		floor := s.BuyLevel.Sub(g.params.EntryMargin)
		if price.GreaterThan(floor) && price.LessThanOrEqual(s.BuyLevel) {
			entry := price
			_, sell := GridLevels(entry, g.params.GridPercentage)
			next := State{
				Holding:    true,
				EntryPrice: &entry,
				BuyLevel:   s.BuyLevel,
				SellLevel:  sell, // Re-targeted from the actual fill
				Anchored:   true,
			}
			return next, &Event{
				Kind:         EventBuy,
				Price:        price,
				PositionSize: PositionSize(g.params.Capital, entry),
			}
		}
		return s, nil
	}

	// 3. Holding: stop-loss wins over take-profit
	if s.EntryPrice == nil {
		panic(fmt.Sprintf("GRID_INVARIANT_HOLDING_WITHOUT_ENTRY: buy=%s sell=%s", s.BuyLevel, s.SellLevel))
	}
	entry := *s.EntryPrice
	size := PositionSize(g.params.Capital, entry)

	if price.LessThanOrEqual(StopLossPrice(entry, g.params.StopLossPercentage)) {
		return State{}, &Event{
			Kind:         EventSell,
			Price:        price,
			PositionSize: size,
			Reason:       ExitLoss,
			EntryPrice:   entry,
		}
	}

	if price.GreaterThanOrEqual(s.SellLevel) {
		proceeds := Proceeds(g.params.Capital, entry, price)
		return State{}, &Event{
			Kind:         EventSell,
			Price:        price,
			PositionSize: size,
			Reason:       ExitProfit,
			EntryPrice:   entry,
			Proceeds:     &proceeds,
		}
	}

	return s, nil
}
