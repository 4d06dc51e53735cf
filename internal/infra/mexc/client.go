package mexc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"grid_go/internal/domain"
	"grid_go/internal/infra"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	tickerPath   = "/api/v3/ticker/price"
	exchangeName = "MEXC"

	// MEXC spot error code for an unknown symbol
	codeInvalidSymbol = -1121
)

type priceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type errorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Client polls the MEXC spot ticker price endpoint through resty with retries.
type Client struct {
	client *resty.Client
	logger *slog.Logger
}

// NewClient creates a new MEXC REST client from cfg.API.
func NewClient(cfg *infra.Config) *Client {
	host := strings.TrimSuffix(cfg.API.Mexc.RestURL, "/")

	client := resty.New().
		SetBaseURL(host).
		SetTimeout(cfg.Timeout()).
		SetRetryCount(cfg.API.Mexc.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("User-Agent", infra.DefaultUserAgent).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() >= http.StatusInternalServerError ||
				resp.StatusCode() == http.StatusTooManyRequests
		})

	return &Client{
		client: client,
		logger: slog.Default().With("module", "mexc_client"),
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

// FetchTicker returns the last trade of pair. MEXC does not report a trade time here,
// so Time is the receive time.
func (c *Client) FetchTicker(ctx context.Context, pair string) (*domain.Ticker, error) {
	p, err := domain.ParsePair(pair)
	if err != nil {
		return nil, err
	}
	symbol := p.Concat()

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		Get(tickerPath)
	if err != nil {
		return nil, domain.NewNetworkError("mexc ticker", err)
	}

	if !resp.IsSuccess() {
		var apiErr errorResponse
		_ = json.Unmarshal(resp.Body(), &apiErr)
		if apiErr.Code == codeInvalidSymbol {
			return nil, fmt.Errorf("%w: mexc %s: %s", domain.ErrInvalidSymbol, symbol, apiErr.Msg)
		}
		statusErr := fmt.Errorf("status=%d body=%s", resp.StatusCode(), resp.String())
		if resp.StatusCode() >= 500 || resp.StatusCode() == http.StatusTooManyRequests {
			return nil, domain.NewNetworkError("mexc ticker", statusErr)
		}
		return nil, domain.NewFatalNetworkError("mexc ticker", statusErr)
	}

	var pr priceResponse
	if err := json.Unmarshal(resp.Body(), &pr); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	price, err := decimal.NewFromString(pr.Price)
	if err != nil {
		return nil, fmt.Errorf("%w: mexc price=%q", domain.ErrInvalidPrice, pr.Price)
	}

	t := &domain.Ticker{
		Symbol:    symbol,
		Price:     price,
		Exchange:  exchangeName,
		Precision: domain.DeterminePrecision(pr.Price),
		Time:      time.Now(),
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
