package upbit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"grid_go/internal/domain"
	"grid_go/internal/infra"

	"github.com/shopspring/decimal"
)

const (
	tickerPath   = "/v1/ticker"
	exchangeName = "UPBIT"
)

// tickerResponse is one element of the Upbit REST ticker array.
type tickerResponse struct {
	Market     string          `json:"market"` // KRW-XRP
	TradePrice decimal.Decimal `json:"trade_price"`
	Timestamp  int64           `json:"timestamp"`
}

// errorResponse is returned by Upbit on 4xx.
type errorResponse struct {
	Error struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client polls the Upbit public ticker endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Upbit REST client from cfg.API.
func NewClient(cfg *infra.Config) *Client {
	return &Client{
		baseURL:    cfg.API.Upbit.RestURL,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		logger:     slog.Default().With("module", "upbit_client"),
	}
}

// FetchLatestPrice implements domain.PriceSource.
func (c *Client) FetchLatestPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	t, err := c.FetchTicker(ctx, pair)
	if err != nil {
		return decimal.Zero, err
	}
	return t.Price, nil
}

// FetchTicker returns the last trade of pair. Upbit markets are quote-first ("KRW-XRP").
func (c *Client) FetchTicker(ctx context.Context, pair string) (*domain.Ticker, error) {
	p, err := domain.ParsePair(pair)
	if err != nil {
		return nil, err
	}
	market := p.QuoteFirst()

	reqURL := c.baseURL + tickerPath + "?markets=" + url.QueryEscape(market)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", infra.DefaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewNetworkError("upbit ticker", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewNetworkError("upbit ticker", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		var apiErr errorResponse
		json.Unmarshal(body, &apiErr)
		return nil, fmt.Errorf("%w: upbit %s: %s", domain.ErrInvalidSymbol, market, apiErr.Error.Message)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.NewNetworkError("upbit ticker", fmt.Errorf("status=%d", resp.StatusCode))
	default:
		return nil, domain.NewFatalNetworkError("upbit ticker", fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body)))
	}

	var tickers []tickerResponse
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: upbit returned no ticker for %s", domain.ErrInvalidSymbol, market)
	}

	tr := tickers[0]
	ts := time.Now()
	if tr.Timestamp > 0 {
		ts = time.UnixMilli(tr.Timestamp)
	}
	t := &domain.Ticker{
		Symbol:    tr.Market,
		Price:     tr.TradePrice,
		Exchange:  exchangeName,
		Precision: domain.DeterminePrecision(tr.TradePrice.String()),
		Time:      ts,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
