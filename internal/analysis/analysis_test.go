package analysis

import (
	"context"
	"testing"
	"time"

	"invest-signals/internal/types"
)

func trendingContext(t *testing.T, up bool, bars int) *types.AsOfContext {
	t.Helper()
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	prices := make([]types.PricePoint, 0, bars)
	price := 100.0
	for i := 0; i < bars; i++ {
		if up {
			price *= 1.004
		} else {
			price *= 0.996
		}
		prices = append(prices, types.PricePoint{
			Ticker: "TEST",
			Date:   asOf.AddDate(0, 0, -(bars - i)),
			Open:   price * 0.995,
			High:   price * 1.005,
			Low:    price * 0.99,
			Close:  price,
			Volume: 1_000_000,
		})
	}
	return &types.AsOfContext{
		Ticker:        "TEST",
		AsOfDate:      asOf,
		Prices:        prices,
		DataAvailable: true,
	}
}

func TestTechnicalUptrendBeatsDowntrend(t *testing.T) {
	s := NewTechnicalScorer()

	upRes, err := s.Score(context.Background(), trendingContext(t, true, 80))
	if err != nil {
		t.Fatal(err)
	}
	downRes, err := s.Score(context.Background(), trendingContext(t, false, 80))
	if err != nil {
		t.Fatal(err)
	}

	if upRes.Score <= downRes.Score {
		t.Errorf("Expected uptrend score %.1f > downtrend score %.1f", upRes.Score, downRes.Score)
	}
	if upRes.Score < 0 || upRes.Score > 100 {
		t.Errorf("Score out of bounds: %f", upRes.Score)
	}
	if upRes.Breakdown["trend"] == 0 {
		t.Error("Expected trend points in breakdown")
	}
}

func TestTechnicalInsufficientDataIsNeutral(t *testing.T) {
	s := NewTechnicalScorer()
	res, err := s.Score(context.Background(), trendingContext(t, true, 5))
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 50 {
		t.Errorf("Expected neutral 50 with 5 bars, got %f", res.Score)
	}
	if res.Confidence >= 50 {
		t.Errorf("Expected low confidence, got %f", res.Confidence)
	}
}

func stmts(metric string, values ...float64) []types.FinancialStatement {
	out := make([]types.FinancialStatement, 0, len(values))
	base := time.Date(2023, 1, 30, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		out = append(out, types.FinancialStatement{
			Ticker:        "TEST",
			StatementType: "income",
			Metric:        metric,
			Value:         v,
			ReportDate:    base.AddDate(0, 3*i, 0),
		})
	}
	return out
}

func TestFundamentalStrongVsWeak(t *testing.T) {
	s := NewFundamentalScorer()

	strong := &types.AsOfContext{Ticker: "TEST"}
	strong.Fundamentals = append(strong.Fundamentals, stmts("revenue", 1e9, 1.1e9, 1.2e9, 1.3e9)...)
	strong.Fundamentals = append(strong.Fundamentals, stmts("net_margin", 22)...)
	strong.Fundamentals = append(strong.Fundamentals, stmts("debt_to_equity", 0.3)...)
	strong.Fundamentals = append(strong.Fundamentals, stmts("current_ratio", 2.1)...)
	strong.Fundamentals = append(strong.Fundamentals, stmts("pe_ratio", 18)...)

	weak := &types.AsOfContext{Ticker: "TEST"}
	weak.Fundamentals = append(weak.Fundamentals, stmts("revenue", 1e9, 0.9e9, 0.85e9, 0.8e9)...)
	weak.Fundamentals = append(weak.Fundamentals, stmts("net_margin", -4)...)
	weak.Fundamentals = append(weak.Fundamentals, stmts("debt_to_equity", 3.5)...)
	weak.Fundamentals = append(weak.Fundamentals, stmts("pe_ratio", 60)...)

	strongRes, err := s.Score(context.Background(), strong)
	if err != nil {
		t.Fatal(err)
	}
	weakRes, err := s.Score(context.Background(), weak)
	if err != nil {
		t.Fatal(err)
	}

	if strongRes.Score <= weakRes.Score {
		t.Errorf("Expected strong %.1f > weak %.1f", strongRes.Score, weakRes.Score)
	}
	if strongRes.Score < 70 {
		t.Errorf("Expected strong fundamentals above 70, got %.1f", strongRes.Score)
	}
	if weakRes.Score > 40 {
		t.Errorf("Expected weak fundamentals below 40, got %.1f", weakRes.Score)
	}
}

func TestFundamentalNoDataIsNeutral(t *testing.T) {
	s := NewFundamentalScorer()
	res, err := s.Score(context.Background(), &types.AsOfContext{Ticker: "TEST"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 50 {
		t.Errorf("Expected neutral 50, got %f", res.Score)
	}
}

func TestSentimentNoNewsIsNeutral(t *testing.T) {
	s := NewSentimentScorer()
	res, err := s.Score(context.Background(), &types.AsOfContext{Ticker: "TEST"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 50 {
		t.Errorf("Expected neutral 50 with no inputs, got %f", res.Score)
	}
}

func TestSentimentDirections(t *testing.T) {
	s := NewSentimentScorer()
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	positive := &types.AsOfContext{Ticker: "TEST", AsOfDate: asOf}
	negative := &types.AsOfContext{Ticker: "TEST", AsOfDate: asOf}
	for i := 0; i < 6; i++ {
		d := asOf.AddDate(0, 0, -i)
		positive.News = append(positive.News, types.NewsArticle{
			Ticker: "TEST", Title: "good", PublishedDate: d, SentimentScore: 0.7, Importance: 0.8,
		})
		negative.News = append(negative.News, types.NewsArticle{
			Ticker: "TEST", Title: "bad", PublishedDate: d, SentimentScore: -0.7, Importance: 0.8,
		})
	}
	positive.Ratings = []types.AnalystRating{{Ticker: "TEST", Consensus: "strong_buy", RatingDate: asOf}}
	negative.Ratings = []types.AnalystRating{{Ticker: "TEST", Consensus: "sell", RatingDate: asOf}}

	posRes, err := s.Score(context.Background(), positive)
	if err != nil {
		t.Fatal(err)
	}
	negRes, err := s.Score(context.Background(), negative)
	if err != nil {
		t.Fatal(err)
	}

	if posRes.Score <= 60 {
		t.Errorf("Expected positive sentiment above 60, got %.1f", posRes.Score)
	}
	if negRes.Score >= 40 {
		t.Errorf("Expected negative sentiment below 40, got %.1f", negRes.Score)
	}
}

func TestAnalyzerProducesAllComponents(t *testing.T) {
	data := trendingContext(t, true, 80)
	data.Fundamentals = stmts("revenue", 1e9, 1.1e9)
	data.Warnings = []string{"sparse price history: example"}

	report, err := NewAnalyzer().Analyze(context.Background(), data)
	if err != nil {
		t.Fatal(err)
	}

	for _, c := range []types.ComponentResult{
		report.Analysis.Technical,
		report.Analysis.Fundamental,
		report.Analysis.Sentiment,
	} {
		if c.Name == "" {
			t.Error("Expected all components populated")
		}
		if c.Score < 0 || c.Score > 100 {
			t.Errorf("Component %s score out of bounds: %f", c.Name, c.Score)
		}
	}
	if len(report.Warnings) != 1 {
		t.Errorf("Expected context warnings carried into report, got %v", report.Warnings)
	}
}
