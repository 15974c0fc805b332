package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"invest-signals/internal/api"
	"invest-signals/internal/trace"
	"invest-signals/internal/types"
)

// Client fetches market data from Yahoo Finance public endpoints.
type Client struct {
	httpClient  *api.Client
	chartBase   string
	siteBase    string
	maxArticles int
}

// New creates a Yahoo Finance client.
func New(timeout time.Duration, maxArticles int) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if maxArticles == 0 {
		maxArticles = 25
	}
	return &Client{
		httpClient:  api.NewClient(api.WithTimeout(timeout), api.WithLogging(true)),
		chartBase:   "https://query1.finance.yahoo.com",
		siteBase:    "https://finance.yahoo.com",
		maxArticles: maxArticles,
	}
}

func (c *Client) Name() string { return "yahoo" }

// chartResponse mirrors the part of the v8 chart payload we consume.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency       string `json:"currency"`
				Symbol         string `json:"symbol"`
				InstrumentType string `json:"instrumentType"`
				ExchangeName   string `json:"exchangeName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
				Adjclose []struct {
					Adjclose []float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchPrices pulls daily candles from the chart API.
func (c *Client) FetchPrices(ctx context.Context, ticker string, start, end time.Time) ([]types.PricePoint, error) {
	ctx, span := trace.StartSpan(ctx, "yahoo.FetchPrices")
	defer span.End()

	url := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div%%2Csplit",
		c.chartBase, ticker, start.Unix(), end.Unix())

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("yahoo chart decode: %w", err)
	}
	if cr.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart error: %s (%s)", cr.Chart.Error.Description, cr.Chart.Error.Code)
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo chart: no data for %s", ticker)
	}

	res := cr.Chart.Result[0]
	quote := res.Indicators.Quote[0]
	var adj []float64
	if len(res.Indicators.Adjclose) > 0 {
		adj = res.Indicators.Adjclose[0].Adjclose
	}

	prices := make([]types.PricePoint, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == 0 {
			continue
		}
		p := types.PricePoint{
			Ticker:         ticker,
			Market:         res.Meta.ExchangeName,
			InstrumentType: res.Meta.InstrumentType,
			Date:           time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Close:          quote.Close[i],
			Currency:       res.Meta.Currency,
		}
		if i < len(quote.Open) {
			p.Open = quote.Open[i]
		}
		if i < len(quote.High) {
			p.High = quote.High[i]
		}
		if i < len(quote.Low) {
			p.Low = quote.Low[i]
		}
		if i < len(quote.Volume) {
			p.Volume = quote.Volume[i]
		}
		if i < len(adj) {
			p.AdjustedClose = adj[i]
		}
		prices = append(prices, p)
	}
	return prices, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req := api.NewRequest(http.MethodGet, url).WithContext(ctx)
	for key, value := range api.YahooFinanceHeaders() {
		req.WithHeader(key, value)
	}
	resp, err := c.httpClient.DoWithRetry(req, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
