package bitget

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"grid_go/internal/domain"
	"grid_go/internal/infra"

	"github.com/shopspring/decimal"
)

// Client polls the Bitget V2 public spot ticker endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Bitget REST client from cfg.API.
func NewClient(cfg *infra.Config) *Client {
	return &Client{
		baseURL: cfg.API.Bitget.RestURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		logger: slog.Default().With("module", "bitget_client"),
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

// FetchTicker returns the last trade of pair ("XRP/USDT").
func (c *Client) FetchTicker(ctx context.Context, pair string) (*domain.Ticker, error) {
	p, err := domain.ParsePair(pair)
	if err != nil {
		return nil, err
	}
	symbol := p.Concat()

	reqURL := c.baseURL + tickerPath + "?symbol=" + url.QueryEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", infra.DefaultUserAgent)
	req.Header.Set("locale", "en-US")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewNetworkError("bitget ticker", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewNetworkError("bitget ticker", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, domain.NewNetworkError("bitget ticker", apiErr)
		}
		return nil, domain.NewFatalNetworkError("bitget ticker", apiErr)
	}

	var apiResp restResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResp.Code != successCode {
		return nil, fmt.Errorf("bitget business error: code=%s msg=%s", apiResp.Code, apiResp.Msg)
	}
	if len(apiResp.Data) == 0 {
		return nil, fmt.Errorf("%w: bitget returned no ticker for %s", domain.ErrInvalidSymbol, symbol)
	}

	return toTicker(symbol, apiResp.Data[0])
}

func toTicker(symbol string, data tickerData) (*domain.Ticker, error) {
	price, err := decimal.NewFromString(data.LastPr)
	if err != nil {
		return nil, fmt.Errorf("%w: bitget lastPr=%q", domain.ErrInvalidPrice, data.LastPr)
	}

	ts := time.Now()
	if ms, err := strconv.ParseInt(data.Ts, 10, 64); err == nil && ms > 0 {
		ts = time.UnixMilli(ms)
	}

	t := &domain.Ticker{
		Symbol:    symbol,
		Price:     price,
		Exchange:  exchangeName,
		Precision: domain.DeterminePrecision(data.LastPr),
		Time:      ts,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
