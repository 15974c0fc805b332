package provider

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"invest-signals/internal/interfaces"
	"invest-signals/internal/logger"
	"invest-signals/internal/types"
)

// limitedProvider wraps a DataProvider with token-bucket rate limiting and
// bounded retry. Throttling lives here rather than inside the fetcher so
// every provider gets the same treatment.
type limitedProvider struct {
	inner      interfaces.DataProvider
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
}

var _ interfaces.DataProvider = (*limitedProvider)(nil)

// WithRateLimit decorates a provider with rate limiting and retry.
func WithRateLimit(inner interfaces.DataProvider, rps float64, burst, maxRetries int) interfaces.DataProvider {
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 1
	}
	return &limitedProvider{
		inner:      inner,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		maxRetries: maxRetries,
		baseDelay:  500 * time.Millisecond,
	}
}

func (l *limitedProvider) Name() string { return l.inner.Name() }

func (l *limitedProvider) FetchPrices(ctx context.Context, ticker string, start, end time.Time) ([]types.PricePoint, error) {
	return call(ctx, l, "prices", ticker, func() ([]types.PricePoint, error) {
		return l.inner.FetchPrices(ctx, ticker, start, end)
	})
}

func (l *limitedProvider) FetchFundamentals(ctx context.Context, ticker string) ([]types.FinancialStatement, error) {
	return call(ctx, l, "fundamentals", ticker, func() ([]types.FinancialStatement, error) {
		return l.inner.FetchFundamentals(ctx, ticker)
	})
}

func (l *limitedProvider) FetchNews(ctx context.Context, ticker string, start, end time.Time, limit int) ([]types.NewsArticle, error) {
	return call(ctx, l, "news", ticker, func() ([]types.NewsArticle, error) {
		return l.inner.FetchNews(ctx, ticker, start, end, limit)
	})
}

func (l *limitedProvider) FetchRatings(ctx context.Context, ticker string) ([]types.AnalystRating, error) {
	return call(ctx, l, "ratings", ticker, func() ([]types.AnalystRating, error) {
		return l.inner.FetchRatings(ctx, ticker)
	})
}

// call applies the rate limit, then retries the fetch with doubling delay.
func call[T any](ctx context.Context, l *limitedProvider, kind, ticker string, fn func() ([]T, error)) ([]T, error) {
	var lastErr error
	delay := l.baseDelay

	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt < l.maxRetries {
			logger.Warn(ctx, "Provider fetch failed, retrying",
				"provider", l.inner.Name(), "kind", kind, "ticker", ticker,
				"attempt", attempt+1, "error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return nil, lastErr
}
