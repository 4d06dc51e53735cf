package bitget

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"grid_go/internal/domain"
	"grid_go/internal/infra"

	"github.com/gorilla/websocket"
)

// newTickerServer accepts one subscription and pushes each price as a ticker frame.
func newTickerServer(t *testing.T, prices []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub subscribeRequest
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		if sub.Op != "subscribe" || len(sub.Args) != 1 || sub.Args[0].InstId != "XRPUSDT" {
			t.Errorf("unexpected subscription: %+v", sub)
			return
		}

		for _, p := range prices {
			frame := tickerResponse{
				Action: "snapshot",
				Arg:    sub.Args[0],
				Data:   []tickerData{{InstId: "XRPUSDT", LastPr: p}},
				Ts:     time.Now().UnixMilli(),
			}
			b, _ := json.Marshal(frame)
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}

		// Hold the connection open until the client leaves
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestWorker(t *testing.T, wsURL string) *SpotWorker {
	t.Helper()
	cfg := infra.DefaultConfig()
	cfg.API.Bitget.WSURL = wsURL
	w, err := NewSpotWorker(cfg)
	if err != nil {
		t.Fatalf("NewSpotWorker: %v", err)
	}
	return w
}

func waitForPrice(t *testing.T, w *SpotWorker, want string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		p, err := w.FetchLatestPrice(context.Background(), "XRP/USDT")
		if err == nil && p.String() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("price %s never observed", want)
}

func TestSpotWorker_StreamsLastPrice(t *testing.T) {
	srv := newTickerServer(t, []string{"0.5000", "0.5010", "0.5020"})
	w := newTestWorker(t, "ws"+strings.TrimPrefix(srv.URL, "http"))

	if err := w.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer w.Disconnect()

	waitForPrice(t, w, "0.502")
	if !w.IsConnected() {
		t.Error("expected worker to report connected")
	}
}

func TestSpotWorker_Disconnect(t *testing.T) {
	srv := newTickerServer(t, []string{"0.5"})
	w := newTestWorker(t, "ws"+strings.TrimPrefix(srv.URL, "http"))

	w.Connect(context.Background())
	waitForPrice(t, w, "0.5")
	w.Disconnect()

	if w.IsConnected() {
		t.Error("expected worker to be disconnected")
	}
}

func TestSpotWorker_NoPriceYet(t *testing.T) {
	w := newTestWorker(t, "ws://127.0.0.1:1")

	_, err := w.FetchLatestPrice(context.Background(), "XRP/USDT")
	if !errors.Is(err, domain.ErrNoPrice) {
		t.Errorf("expected ErrNoPrice, got %v", err)
	}
}

func TestSpotWorker_StalePrice(t *testing.T) {
	w := newTestWorker(t, "ws://127.0.0.1:1")
	clock := time.Unix(1700000000, 0)
	w.now = func() time.Time { return clock }

	w.handleMessage([]byte(`{"action":"snapshot","arg":{"instType":"SPOT","channel":"ticker","instId":"XRPUSDT"},
		"data":[{"instId":"XRPUSDT","lastPr":"0.61"}]}`))

	if p, err := w.FetchLatestPrice(context.Background(), "XRP/USDT"); err != nil || p.String() != "0.61" {
		t.Fatalf("expected fresh 0.61, got %s (err=%v)", p, err)
	}

	clock = clock.Add(w.staleAfter + time.Second)
	if _, err := w.FetchLatestPrice(context.Background(), "XRP/USDT"); !errors.Is(err, domain.ErrStalePrice) {
		t.Errorf("expected ErrStalePrice, got %v", err)
	}
}

func TestSpotWorker_IgnoresForeignFrames(t *testing.T) {
	w := newTestWorker(t, "ws://127.0.0.1:1")

	w.handleMessage([]byte(`{"arg":{"channel":"ticker"},"data":[{"instId":"BTCUSDT","lastPr":"65000"}]}`))
	w.handleMessage([]byte(`{"arg":{"channel":"books"},"data":[{"instId":"XRPUSDT","lastPr":"0.5"}]}`))
	w.handleMessage([]byte(`{"arg":{"channel":"ticker"},"data":[{"instId":"XRPUSDT","lastPr":"-1"}]}`))
	w.handleMessage([]byte(`not json`))

	if _, err := w.FetchLatestPrice(context.Background(), "XRP/USDT"); !errors.Is(err, domain.ErrNoPrice) {
		t.Errorf("expected ErrNoPrice after foreign frames, got %v", err)
	}
}

func TestSpotWorker_WrongPair(t *testing.T) {
	w := newTestWorker(t, "ws://127.0.0.1:1")

	if _, err := w.FetchLatestPrice(context.Background(), "BTC/USDT"); !errors.Is(err, domain.ErrInvalidSymbol) {
		t.Errorf("expected ErrInvalidSymbol, got %v", err)
	}
}
