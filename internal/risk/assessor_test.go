package risk

import (
	"testing"
	"time"

	"invest-signals/internal/store"
	"invest-signals/internal/types"
)

func testAssessor(t *testing.T) *Assessor {
	t.Helper()
	cfg := &store.Config{}
	cfg.Risk.VolatilityHighPct = 3.0
	cfg.Risk.VolatilityVeryHighPct = 5.0
	cfg.Risk.MaxDebtEquity = 2.0
	return NewAssessor(cfg)
}

func pricesWithCloses(closes []float64) []types.PricePoint {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]types.PricePoint, len(closes))
	for i, c := range closes {
		out[i] = types.PricePoint{Ticker: "TEST", Date: day.AddDate(0, 0, i), Close: c}
	}
	return out
}

func swingingCloses(n int, base, ampPct float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = base * (1 + ampPct/100)
		} else {
			closes[i] = base * (1 - ampPct/100)
		}
	}
	return closes
}

// steadyCloses cycles through tiny ups and downs so volatility stays near
// zero and RSI stays near 50.
func steadyCloses(n int, base float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = base + 0.05*float64(i%3)
	}
	return closes
}

func TestCalmStockNoFlags(t *testing.T) {
	a := testAssessor(t)
	data := &types.AsOfContext{
		Ticker: "CALM",
		Prices: pricesWithCloses(steadyCloses(60, 100)),
	}
	got := a.Assess(&types.UnifiedAnalysisResult{Ticker: "CALM"}, data)
	if len(got.Flags) != 0 {
		t.Errorf("expected no flags, got %+v", got.Flags)
	}
	if got.Level != "low" {
		t.Errorf("level = %q", got.Level)
	}
}

func TestExtremeVolatilityHighSeverity(t *testing.T) {
	a := testAssessor(t)
	data := &types.AsOfContext{
		Ticker: "WILD",
		Prices: pricesWithCloses(swingingCloses(60, 100, 8)),
	}
	got := a.Assess(&types.UnifiedAnalysisResult{Ticker: "WILD"}, data)
	if !got.HasHighSeverity() {
		t.Fatalf("expected a high severity flag, got %+v", got.Flags)
	}
	if got.Level != "high" {
		t.Errorf("level = %q", got.Level)
	}
	found := false
	for _, f := range got.Flags {
		if f.Name == "high_volatility" && f.Severity == "high" {
			found = true
		}
	}
	if !found {
		t.Errorf("high_volatility flag missing: %+v", got.Flags)
	}
}

func TestModerateVolatilityMediumSeverity(t *testing.T) {
	a := testAssessor(t)
	data := &types.AsOfContext{
		Ticker: "CHOP",
		Prices: pricesWithCloses(swingingCloses(60, 100, 2)),
	}
	got := a.Assess(&types.UnifiedAnalysisResult{Ticker: "CHOP"}, data)
	for _, f := range got.Flags {
		if f.Name == "high_volatility" {
			if f.Severity != "medium" {
				t.Errorf("severity = %q", f.Severity)
			}
			return
		}
	}
	t.Errorf("expected a medium volatility flag, got %+v", got.Flags)
}

func TestLeverageAndLossFlags(t *testing.T) {
	a := testAssessor(t)
	rd := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	data := &types.AsOfContext{
		Ticker: "DEBT",
		Fundamentals: []types.FinancialStatement{
			{Ticker: "DEBT", Metric: "debt_to_equity", Value: 3.4, ReportDate: rd},
			{Ticker: "DEBT", Metric: "net_income", Value: -125000000, ReportDate: rd},
		},
	}
	got := a.Assess(&types.UnifiedAnalysisResult{Ticker: "DEBT"}, data)
	names := map[string]bool{}
	for _, f := range got.Flags {
		names[f.Name] = true
	}
	if !names["excessive_leverage"] {
		t.Errorf("leverage flag missing: %+v", got.Flags)
	}
	if !names["negative_net_income"] {
		t.Errorf("net income flag missing: %+v", got.Flags)
	}
	if got.Level != "elevated" {
		t.Errorf("medium-only flags should yield elevated, got %q", got.Level)
	}
}

func TestNegativeMarginOnlyWhenIncomeAbsent(t *testing.T) {
	a := testAssessor(t)
	rd := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	data := &types.AsOfContext{
		Ticker: "THIN",
		Fundamentals: []types.FinancialStatement{
			{Ticker: "THIN", Metric: "net_margin", Value: -4.2, ReportDate: rd},
		},
	}
	got := a.Assess(&types.UnifiedAnalysisResult{Ticker: "THIN"}, data)
	if len(got.Flags) != 1 || got.Flags[0].Name != "negative_margin" {
		t.Errorf("expected only negative_margin, got %+v", got.Flags)
	}
}

func TestOverboughtFlag(t *testing.T) {
	a := testAssessor(t)
	// Strictly rising closes push RSI to 100 while staying below the
	// volatility thresholds.
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + 0.5*float64(i)
	}
	data := &types.AsOfContext{Ticker: "HOT", Prices: pricesWithCloses(closes)}
	got := a.Assess(&types.UnifiedAnalysisResult{Ticker: "HOT"}, data)
	found := false
	for _, f := range got.Flags {
		if f.Name == "overbought" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected overbought flag, got %+v", got.Flags)
	}
}

func TestShortHistoryNoVolatilityFlag(t *testing.T) {
	a := testAssessor(t)
	data := &types.AsOfContext{
		Ticker: "NEW",
		Prices: pricesWithCloses(swingingCloses(5, 100, 8)),
	}
	got := a.Assess(&types.UnifiedAnalysisResult{Ticker: "NEW"}, data)
	for _, f := range got.Flags {
		if f.Name == "high_volatility" {
			t.Errorf("volatility flag needs %d points: %+v", volatilityWindow+1, f)
		}
	}
}
