package interfaces

import (
	"context"
	"time"

	"invest-signals/internal/types"
)

// DataProvider fetches raw market data from an external source. Providers
// return whatever they have; temporal filtering happens in the fetcher.
type DataProvider interface {
	Name() string
	FetchPrices(ctx context.Context, ticker string, start, end time.Time) ([]types.PricePoint, error)
	FetchFundamentals(ctx context.Context, ticker string) ([]types.FinancialStatement, error)
	FetchNews(ctx context.Context, ticker string, start, end time.Time, limit int) ([]types.NewsArticle, error)
	FetchRatings(ctx context.Context, ticker string) ([]types.AnalystRating, error)
}
