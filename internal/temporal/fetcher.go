package temporal

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"invest-signals/internal/cache"
	"invest-signals/internal/interfaces"
	"invest-signals/internal/logger"
	"invest-signals/internal/types"
)

// Fetcher assembles a point-in-time data context for a ticker. Every record
// it returns was publicly known on or before the as-of date, whether the
// record came from the provider or from cache.
type Fetcher struct {
	provider        interfaces.DataProvider
	store           *cache.Store
	sparseThreshold float64
	now             func() time.Time
}

// NewFetcher creates a temporal fetcher. store may be nil to disable caching.
// sparseThreshold is the fraction of expected trading days below which a
// sparse-data warning is attached.
func NewFetcher(provider interfaces.DataProvider, store *cache.Store, sparseThreshold float64) *Fetcher {
	if sparseThreshold <= 0 {
		sparseThreshold = 0.4
	}
	return &Fetcher{
		provider:        provider,
		store:           store,
		sparseThreshold: sparseThreshold,
		now:             time.Now,
	}
}

// FetchAsOfDate builds the AsOfContext for ticker as of asOf, looking back
// lookbackDays. Individual data types fail soft: an error fetching one type
// becomes a warning, and the remaining types still load. The only hard
// failure is context cancellation.
func (f *Fetcher) FetchAsOfDate(ctx context.Context, ticker string, asOf time.Time, lookbackDays int) (*types.AsOfContext, error) {
	timer := logger.StartOperation(ctx, "temporal.FetchAsOfDate",
		"ticker", ticker, "as_of", asOf.Format("2006-01-02"), "lookback_days", lookbackDays)
	ctx = timer.GetContext()

	if lookbackDays <= 0 {
		lookbackDays = 365
	}
	start := asOf.AddDate(0, 0, -lookbackDays)
	historical := beforeToday(asOf, f.now())

	out := &types.AsOfContext{
		Ticker:       ticker,
		AsOfDate:     asOf,
		LookbackDays: lookbackDays,
		RetrievedAt:  f.now(),
	}

	var mu sync.Mutex
	warn := func(format string, args ...any) {
		mu.Lock()
		out.Warnings = append(out.Warnings, fmt.Sprintf(format, args...))
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		prices, err := fetchTyped(ctx, f, cache.TypePrices, ticker, asOf, historical, func() ([]types.PricePoint, error) {
			return f.provider.FetchPrices(ctx, ticker, start, asOf)
		})
		if err != nil {
			warn("price data unavailable: %v", err)
			return
		}
		mu.Lock()
		out.Prices = prices
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		stmts, err := fetchTyped(ctx, f, cache.TypeStatements, ticker, asOf, historical, func() ([]types.FinancialStatement, error) {
			return f.provider.FetchFundamentals(ctx, ticker)
		})
		if err != nil {
			warn("fundamental data unavailable: %v", err)
			return
		}
		mu.Lock()
		out.Fundamentals = stmts
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		news, err := fetchTyped(ctx, f, cache.TypeNews, ticker, asOf, historical, func() ([]types.NewsArticle, error) {
			return f.provider.FetchNews(ctx, ticker, start, asOf, 0)
		})
		if err != nil {
			warn("news data unavailable: %v", err)
			return
		}
		mu.Lock()
		out.News = news
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		ratings, err := fetchTyped(ctx, f, cache.TypeRatings, ticker, asOf, historical, func() ([]types.AnalystRating, error) {
			return f.provider.FetchRatings(ctx, ticker)
		})
		if err != nil {
			warn("analyst rating data unavailable: %v", err)
			return
		}
		mu.Lock()
		out.Ratings = ratings
		mu.Unlock()
	}()

	wg.Wait()

	if err := ctx.Err(); err != nil {
		timer.EndWithError(err)
		return nil, err
	}

	out.DataAvailable = len(out.Prices) > 0
	if !out.DataAvailable {
		out.Warnings = append(out.Warnings, "no price data on or before as-of date")
	} else if sparse(len(out.Prices), lookbackDays, f.sparseThreshold) {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("sparse price history: %d records for %d-day lookback", len(out.Prices), lookbackDays))
	}

	timer.End("prices", len(out.Prices), "news", len(out.News),
		"fundamentals", len(out.Fundamentals), "warnings", len(out.Warnings))
	return out, nil
}

// fetchTyped resolves one data type, cache first. The as-of filter is applied
// to everything, cached or fresh: cache entries written by a newer run may
// contain records from after this run's as-of date.
func fetchTyped[T types.TemporalRecord](ctx context.Context, f *Fetcher, dt cache.DataType, ticker string, asOf time.Time, historical bool, fetch func() ([]T, error)) ([]T, error) {
	if recs, ok := readCache[T](f, dt, ticker, asOf, historical); ok {
		return prepare(recs, asOf), nil
	}

	recs, err := fetch()
	if err != nil {
		return nil, err
	}
	recs = prepare(recs, asOf)

	f.writeCache(dt, ticker, asOf, historical, recs)
	return recs, nil
}

func readCache[T types.TemporalRecord](f *Fetcher, dt cache.DataType, ticker string, asOf time.Time, historical bool) ([]T, bool) {
	if f.store == nil {
		return nil, false
	}

	var raw []byte
	var ok bool
	if historical {
		raw, _, ok = f.store.GetAsOf(dt, ticker, asOf)
	} else {
		raw, ok = f.store.Get(dt, ticker)
	}
	if !ok {
		return nil, false
	}

	var recs []T
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, false
	}
	return recs, true
}

// writeCache stores the fetched records. Cache failures are deliberately
// swallowed: a broken cache must never fail a fetch.
func (f *Fetcher) writeCache(dt cache.DataType, ticker string, asOf time.Time, historical bool, recs any) {
	if f.store == nil {
		return
	}
	raw, err := json.Marshal(recs)
	if err != nil {
		return
	}
	if historical {
		f.store.SetAsOf(dt, ticker, asOf, raw)
	} else {
		f.store.Set(dt, ticker, raw)
	}
}

// prepare drops records effective after the as-of date and sorts the rest
// chronologically.
func prepare[T types.TemporalRecord](recs []T, asOf time.Time) []T {
	kept := make([]T, 0, len(recs))
	for _, r := range recs {
		if types.SameOrBeforeDay(r.EffectiveDate(), asOf) {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].EffectiveDate().Before(kept[j].EffectiveDate())
	})
	return kept
}

// sparse reports whether the price count is below the threshold fraction of
// the expected trading-day count for the lookback window.
func sparse(got, lookbackDays int, threshold float64) bool {
	expected := float64(lookbackDays) * 5.0 / 7.0
	return float64(got) < expected*threshold
}

// beforeToday reports whether asOf falls on an earlier calendar date than now.
func beforeToday(asOf, now time.Time) bool {
	return types.SameOrBeforeDay(asOf, now.AddDate(0, 0, -1))
}
