package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"invest-signals/internal/analysis"
	"invest-signals/internal/llm"
	"invest-signals/internal/risk"
	"invest-signals/internal/signal"
	"invest-signals/internal/signallog"
	"invest-signals/internal/store"
	"invest-signals/internal/temporal"
	"invest-signals/internal/types"
)

type stubProvider struct {
	prices map[string][]types.PricePoint
	fail   map[string]error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) FetchPrices(_ context.Context, ticker string, _, _ time.Time) ([]types.PricePoint, error) {
	if err := s.fail[ticker]; err != nil {
		return nil, err
	}
	return s.prices[ticker], nil
}

func (s *stubProvider) FetchFundamentals(_ context.Context, ticker string) ([]types.FinancialStatement, error) {
	return []types.FinancialStatement{
		{Ticker: ticker, Metric: "revenue", Value: 5e9, ReportDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{Ticker: ticker, Metric: "net_income", Value: 8e8, ReportDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}, nil
}

func (s *stubProvider) FetchNews(_ context.Context, _ string, _, _ time.Time, _ int) ([]types.NewsArticle, error) {
	return nil, nil
}

func (s *stubProvider) FetchRatings(_ context.Context, _ string) ([]types.AnalystRating, error) {
	return nil, nil
}

type brokenChat struct{}

func (brokenChat) Provider() string { return "broken" }
func (brokenChat) Complete(context.Context, string, string) (string, error) {
	return "no json in this reply", nil
}

func risingPrices(ticker string, end time.Time, n int) []types.PricePoint {
	out := make([]types.PricePoint, 0, n)
	for i := n - 1; i >= 0; i-- {
		d := end.AddDate(0, 0, -i)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		out = append(out, types.PricePoint{
			Ticker: ticker,
			Date:   d,
			Close:  100 + 0.4*float64(n-i),
			Volume: 1_000_000,
		})
	}
	return out
}

func testConfig(mode string) *store.Config {
	cfg := &store.Config{}
	cfg.Mode = mode
	cfg.Analysis.LookbackDays = 120
	cfg.Analysis.MaxConcurrency = 2
	cfg.Analysis.SparseThreshold = 0.4
	cfg.Risk.VolatilityHighPct = 3
	cfg.Risk.VolatilityVeryHighPct = 5
	cfg.Risk.MaxDebtEquity = 2
	return cfg
}

func newTestPipeline(t *testing.T, cfg *store.Config, provider *stubProvider, chat llm.Chat) *Pipeline {
	t.Helper()
	var llmAnalyzer *llm.Analyzer
	if chat != nil {
		llmAnalyzer = llm.NewAnalyzer(chat, "test system prompt")
	}
	return New(
		cfg,
		temporal.NewFetcher(provider, nil, cfg.Analysis.SparseThreshold),
		analysis.NewAnalyzer(),
		llmAnalyzer,
		risk.NewAssessor(cfg),
		signal.NewCreator(),
		signallog.New(t.TempDir()),
	)
}

func TestAnalyzeTickerRuleBased(t *testing.T) {
	asOf := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	provider := &stubProvider{prices: map[string][]types.PricePoint{
		"AAPL": risingPrices("AAPL", asOf, 160),
	}}
	p := newTestPipeline(t, testConfig("RULE_BASED"), provider, nil)

	sig, err := p.AnalyzeTicker(context.Background(), "AAPL", asOf)
	if err != nil {
		t.Fatalf("AnalyzeTicker: %v", err)
	}
	if sig.Mode != "rule_based" {
		t.Errorf("mode = %q", sig.Mode)
	}
	if sig.FinalScore < 0 || sig.FinalScore > 100 {
		t.Errorf("final score out of range: %v", sig.FinalScore)
	}
	if sig.CurrentPrice <= 0 {
		t.Errorf("price must be positive: %v", sig.CurrentPrice)
	}
}

func TestAnalyzeTickerNoData(t *testing.T) {
	asOf := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	provider := &stubProvider{prices: map[string][]types.PricePoint{}}
	p := newTestPipeline(t, testConfig("RULE_BASED"), provider, nil)

	if _, err := p.AnalyzeTicker(context.Background(), "EMPTY", asOf); !errors.Is(err, ErrNoUsableData) {
		t.Fatalf("expected ErrNoUsableData, got %v", err)
	}
}

func TestInsufficientDataClassifiedAsSkip(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"no usable data", ErrNoUsableData, true},
		{"no price", signal.ErrNoPriceData, true},
		{"wrapped no usable data", fmt.Errorf("ticker EMPTY: %w", ErrNoUsableData), true},
		{"provider failure", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		if got := insufficientData(tc.err); got != tc.want {
			t.Errorf("%s: insufficientData = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestLLMModeFallsBackOnMismatch(t *testing.T) {
	asOf := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	provider := &stubProvider{prices: map[string][]types.PricePoint{
		"AAPL": risingPrices("AAPL", asOf, 160),
	}}
	// brokenChat never yields parseable JSON, so every component stays
	// unparsed and normalization must reject the LLM output.
	p := newTestPipeline(t, testConfig("LLM"), provider, brokenChat{})

	sig, err := p.AnalyzeTicker(context.Background(), "AAPL", asOf)
	if err != nil {
		t.Fatalf("AnalyzeTicker: %v", err)
	}
	if sig.Mode != "rule_based" {
		t.Errorf("unusable LLM output should fall back to rule-based, got mode %q", sig.Mode)
	}
}

func TestAnalyzeBatchIsolatesFailures(t *testing.T) {
	asOf := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	provider := &stubProvider{
		prices: map[string][]types.PricePoint{
			"AAPL": risingPrices("AAPL", asOf, 160),
			"MSFT": risingPrices("MSFT", asOf, 160),
		},
		fail: map[string]error{"BAD": errors.New("provider exploded")},
	}
	p := newTestPipeline(t, testConfig("RULE_BASED"), provider, nil)

	signals, err := p.AnalyzeBatch(context.Background(), []string{"AAPL", "BAD", "MSFT"}, asOf)
	if err != nil {
		t.Fatalf("AnalyzeBatch: %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(signals))
	}
	for i := 1; i < len(signals); i++ {
		if signals[i].Confidence > signals[i-1].Confidence {
			t.Errorf("signals not sorted by confidence desc: %v then %v",
				signals[i-1].Confidence, signals[i].Confidence)
		}
	}
}

func TestAnalyzeBatchCancelled(t *testing.T) {
	asOf := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	provider := &stubProvider{prices: map[string][]types.PricePoint{
		"AAPL": risingPrices("AAPL", asOf, 160),
	}}
	p := newTestPipeline(t, testConfig("RULE_BASED"), provider, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.AnalyzeBatch(ctx, []string{"AAPL"}, asOf); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
