package bitget

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"grid_go/internal/domain"
	"grid_go/internal/infra"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// SpotWorker streams the Bitget spot ticker channel for one pair and
// serves the most recent trade price as a domain.PriceSource.
type SpotWorker struct {
	wsURL      string
	pair       string
	instId     string
	staleAfter time.Duration
	now        func() time.Time

	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	priceMu   sync.RWMutex
	last      *domain.Ticker
	receiveAt time.Time
}

// NewSpotWorker factory
func NewSpotWorker(cfg *infra.Config) (*SpotWorker, error) {
	p, err := domain.ParsePair(cfg.Trading.Pair)
	if err != nil {
		return nil, err
	}
	return &SpotWorker{
		wsURL:      cfg.API.Bitget.WSURL,
		pair:       p.String(),
		instId:     p.Concat(),
		staleAfter: time.Duration(cfg.API.Bitget.StaleAfterSec) * time.Second,
		now:        time.Now,
	}, nil
}

func (w *SpotWorker) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
	return nil
}

func (w *SpotWorker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// FetchLatestPrice returns the cached price. It never blocks on the network.
func (w *SpotWorker) FetchLatestPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	p, err := domain.ParsePair(pair)
	if err != nil {
		return decimal.Zero, err
	}
	if p.String() != w.pair {
		return decimal.Zero, fmt.Errorf("%w: worker streams %s, asked for %s", domain.ErrInvalidSymbol, w.pair, p)
	}

	w.priceMu.RLock()
	defer w.priceMu.RUnlock()
	if w.last == nil {
		return decimal.Zero, domain.ErrNoPrice
	}
	if w.staleAfter > 0 {
		if age := w.now().Sub(w.receiveAt); age > w.staleAfter {
			return decimal.Zero, fmt.Errorf("%w: last update %s ago", domain.ErrStalePrice, age.Truncate(time.Millisecond))
		}
	}
	return w.last.Price, nil
}

func (w *SpotWorker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	defer w.closeConnection()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			slog.Warn("Bitget Spot connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(infra.CalculateBackoff(retryCount)):
			}
		} else {
			retryCount = 0
			w.readLoop(ctx)
		}
	}
}

func (w *SpotWorker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{"User-Agent": {infra.DefaultUserAgent}}
	conn, _, err := dialer.DialContext(ctx, w.wsURL, header)
	if err != nil {
		return domain.NewNetworkError("bitget dial", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()

	if err := w.subscribe(); err != nil {
		w.closeConnection()
		return err
	}

	go w.pingLoop(ctx, conn)
	slog.Info("Bitget Spot Connected", slog.String("inst_id", w.instId))
	return nil
}

func (w *SpotWorker) subscribe() error {
	req := subscribeRequest{
		Op:   "subscribe",
		Args: []subscribeArg{{InstType: "SPOT", Channel: "ticker", InstId: w.instId}},
	}
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return w.threadSafeWrite(websocket.TextMessage, b)
}

// pingLoop stops once conn is replaced or closed.
func (w *SpotWorker) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.RLock()
			current := w.conn
			w.mu.RUnlock()
			if current != conn {
				return
			}
			w.threadSafeWrite(websocket.TextMessage, []byte("ping"))
		}
	}
}

func (w *SpotWorker) threadSafeWrite(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.conn == nil {
		return fmt.Errorf("no conn")
	}
	return w.conn.WriteMessage(msgType, data)
}

func (w *SpotWorker) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn == nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			slog.Debug("Bitget Spot read failed", slog.Any("error", err))
			w.closeConnection()
			return
		}
		if string(msg) == "pong" {
			continue
		}
		w.handleMessage(msg)
	}
}

func (w *SpotWorker) handleMessage(msg []byte) {
	var resp tickerResponse
	if err := json.Unmarshal(msg, &resp); err != nil {
		return
	}
	if resp.Arg.Channel != "ticker" || len(resp.Data) == 0 {
		return
	}

	for _, data := range resp.Data {
		if data.InstId != w.instId {
			continue
		}
		t, err := toTicker(w.instId, data)
		if err != nil {
			slog.Warn("Bitget Spot dropped ticker", slog.Any("error", err))
			continue
		}

		w.priceMu.Lock()
		w.last = t
		w.receiveAt = w.now()
		w.priceMu.Unlock()
	}
}

func (w *SpotWorker) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	w.connected = false
}

func (w *SpotWorker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
}
