package mock

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"invest-signals/internal/types"
)

// Provider generates deterministic synthetic market data. The same ticker
// always produces the same series, which makes offline runs and tests
// reproducible.
type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Name() string { return "mock" }

func seedFor(ticker string) int64 {
	h := fnv.New64a()
	h.Write([]byte(ticker))
	return int64(h.Sum64() & math.MaxInt64)
}

// FetchPrices emits one price per weekday in [start, end] following a random
// walk with a ticker-specific drift.
func (p *Provider) FetchPrices(ctx context.Context, ticker string, start, end time.Time) ([]types.PricePoint, error) {
	rng := rand.New(rand.NewSource(seedFor(ticker)))
	base := 50.0 + rng.Float64()*250.0
	drift := (rng.Float64() - 0.45) * 0.004

	var prices []types.PricePoint
	price := base
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		change := drift + (rng.Float64()-0.5)*0.03
		open := price
		price = price * (1 + change)
		high := math.Max(open, price) * (1 + rng.Float64()*0.01)
		low := math.Min(open, price) * (1 - rng.Float64()*0.01)
		prices = append(prices, types.PricePoint{
			Ticker:        ticker,
			Date:          time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
			Open:          round2(open),
			High:          round2(high),
			Low:           round2(low),
			Close:         round2(price),
			Volume:        float64(1_000_000 + rng.Intn(9_000_000)),
			AdjustedClose: round2(price),
			Currency:      "USD",
		})
	}
	return prices, nil
}

// FetchFundamentals emits four quarters of income and balance metrics, each
// dated ~45 days after the quarter it covers.
func (p *Provider) FetchFundamentals(ctx context.Context, ticker string) ([]types.FinancialStatement, error) {
	rng := rand.New(rand.NewSource(seedFor(ticker) + 1))
	revenue := 1e9 + rng.Float64()*9e9
	marginPct := 5 + rng.Float64()*25
	debtEquity := 0.2 + rng.Float64()*2.2
	growth := 1 + (rng.Float64()-0.3)*0.1

	now := time.Now().UTC()
	var out []types.FinancialStatement
	for q := 0; q < 4; q++ {
		reportDate := now.AddDate(0, -3*q, -45)
		fy, fq := fiscalFor(reportDate)
		rev := revenue / math.Pow(growth, float64(q))
		netIncome := rev * marginPct / 100
		out = append(out,
			stmt(ticker, "income", fy, fq, reportDate, "revenue", rev),
			stmt(ticker, "income", fy, fq, reportDate, "net_income", netIncome),
			stmt(ticker, "income", fy, fq, reportDate, "eps", netIncome/1e8),
			stmt(ticker, "balance", fy, fq, reportDate, "debt_to_equity", debtEquity),
			stmt(ticker, "balance", fy, fq, reportDate, "current_ratio", 0.8+rng.Float64()*2),
			stmt(ticker, "income", fy, fq, reportDate, "pe_ratio", 8+rng.Float64()*40),
		)
	}
	return out, nil
}

// FetchNews emits a handful of dated headlines with synthetic sentiment.
func (p *Provider) FetchNews(ctx context.Context, ticker string, start, end time.Time, limit int) ([]types.NewsArticle, error) {
	rng := rand.New(rand.NewSource(seedFor(ticker) + 2))
	headlines := []struct {
		title string
		tone  float64
	}{
		{"reports quarterly results above expectations", 0.6},
		{"announces new product line", 0.4},
		{"faces supply chain pressure", -0.3},
		{"upgraded by sell-side analysts", 0.7},
		{"executives sell shares", -0.2},
		{"expands into new markets", 0.5},
		{"regulatory inquiry disclosed", -0.6},
		{"raises full-year guidance", 0.8},
	}

	span := end.Sub(start)
	if span <= 0 {
		span = 24 * time.Hour
	}
	n := len(headlines)
	if limit > 0 && limit < n {
		n = limit
	}

	var articles []types.NewsArticle
	for i := 0; i < n; i++ {
		h := headlines[rng.Intn(len(headlines))]
		pub := start.Add(time.Duration(rng.Int63n(int64(span))))
		score := h.tone + (rng.Float64()-0.5)*0.2
		articles = append(articles, types.NewsArticle{
			Ticker:         ticker,
			Title:          ticker + " " + h.title,
			Source:         "mockwire",
			PublishedDate:  pub,
			Sentiment:      labelFor(score),
			SentimentScore: clamp(score, -1, 1),
			Importance:     0.3 + rng.Float64()*0.7,
		})
	}
	return articles, nil
}

// FetchRatings emits a single consensus snapshot dated yesterday.
func (p *Provider) FetchRatings(ctx context.Context, ticker string) ([]types.AnalystRating, error) {
	rng := rand.New(rand.NewSource(seedFor(ticker) + 3))
	consensus := []string{"strong_buy", "buy", "hold", "sell"}[rng.Intn(4)]
	return []types.AnalystRating{{
		Ticker:      ticker,
		RatingDate:  time.Now().UTC().AddDate(0, 0, -1),
		Rating:      consensus,
		PriceTarget: 50 + rng.Float64()*300,
		NumAnalysts: 5 + rng.Intn(30),
		Consensus:   consensus,
	}}, nil
}

func stmt(ticker, st string, fy, fq int, date time.Time, metric string, value float64) types.FinancialStatement {
	return types.FinancialStatement{
		Ticker:        ticker,
		StatementType: st,
		FiscalYear:    fy,
		FiscalQuarter: fq,
		ReportDate:    date,
		Metric:        metric,
		Value:         value,
		Unit:          "USD",
	}
}

func fiscalFor(t time.Time) (year, quarter int) {
	return t.Year(), int(t.Month()-1)/3 + 1
}

func labelFor(score float64) string {
	switch {
	case score > 0.1:
		return "positive"
	case score < -0.1:
		return "negative"
	default:
		return "neutral"
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
