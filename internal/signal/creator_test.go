package signal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"invest-signals/internal/types"
)

func fixedCreator(at time.Time) *Creator {
	return &Creator{now: func() time.Time { return at }}
}

func unifiedResult(ticker string, tech, fund, sent float64) *types.UnifiedAnalysisResult {
	return &types.UnifiedAnalysisResult{
		Ticker:       ticker,
		AnalysisDate: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Mode:         "rule_based",
		Technical:    types.ComponentResult{Name: "technical", Score: tech, Confidence: 70},
		Fundamental:  types.ComponentResult{Name: "fundamental", Score: fund, Confidence: 70},
		Sentiment:    types.ComponentResult{Name: "sentiment", Score: sent, Confidence: 70},
	}
}

func contextWithPrice(ticker string, date time.Time, close float64) *types.AsOfContext {
	return &types.AsOfContext{
		Ticker:        ticker,
		AsOfDate:      date,
		Prices:        []types.PricePoint{{Ticker: ticker, Date: date, Close: close}},
		DataAvailable: true,
	}
}

func TestWeightedFinalScore(t *testing.T) {
	result := unifiedResult("AAPL", 80, 60, 70)
	data := contextWithPrice("AAPL", result.AnalysisDate, 195.5)

	sig, err := fixedCreator(result.AnalysisDate).Create(
		context.Background(), result, data, types.RiskAssessment{Level: "low"}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sig.FinalScore != 70.0 {
		t.Errorf("final score = %v, want 70.0", sig.FinalScore)
	}
	if sig.CurrentPrice != 195.5 {
		t.Errorf("current price = %v", sig.CurrentPrice)
	}
}

func TestNoPriceReturnsNilSignal(t *testing.T) {
	result := unifiedResult("AAPL", 80, 60, 70)
	data := &types.AsOfContext{Ticker: "AAPL", AsOfDate: result.AnalysisDate}

	sig, err := fixedCreator(result.AnalysisDate).Create(
		context.Background(), result, data, types.RiskAssessment{}, nil)
	if !errors.Is(err, ErrNoPriceData) {
		t.Fatalf("expected ErrNoPriceData, got %v", err)
	}
	if sig != nil {
		t.Errorf("signal must be nil without a price, got %+v", sig)
	}
}

func TestHistoricalPriceResolution(t *testing.T) {
	analysisDate := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	result := unifiedResult("MSFT", 80, 80, 80)
	result.AnalysisDate = analysisDate
	data := &types.AsOfContext{
		Ticker:   "MSFT",
		AsOfDate: analysisDate,
		Prices: []types.PricePoint{
			{Ticker: "MSFT", Date: time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC), Close: 410},
			{Ticker: "MSFT", Date: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), Close: 415},
		},
		DataAvailable: true,
	}

	sig, err := fixedCreator(time.Now()).Create(
		context.Background(), result, data, types.RiskAssessment{}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sig.CurrentPrice != 415 {
		t.Errorf("price should be latest on or before the analysis date, got %v", sig.CurrentPrice)
	}
}

func TestRecommendationLadder(t *testing.T) {
	cases := []struct {
		name             string
		tech, fund, sent float64
		warnings         []string
		want             string
	}{
		{"strong and confident", 85, 80, 82, nil, "buy"},
		{"strong but noisy data", 85, 80, 82, []string{"w1", "w2", "w3", "w4", "w5", "w6", "w7", "w8"}, "hold_bullish"},
		{"mildly positive", 62, 60, 58, nil, "hold_bullish"},
		{"mildly negative", 45, 48, 44, nil, "hold_bearish"},
		{"weak", 30, 32, 25, nil, "sell"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := unifiedResult("TEST", tc.tech, tc.fund, tc.sent)
			result.Warnings = tc.warnings
			data := contextWithPrice("TEST", result.AnalysisDate, 100)
			sig, err := fixedCreator(result.AnalysisDate).Create(
				context.Background(), result, data, types.RiskAssessment{}, nil)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if sig.Recommendation != tc.want {
				t.Errorf("recommendation = %q, want %q (score %v conf %v)",
					sig.Recommendation, tc.want, sig.FinalScore, sig.Confidence)
			}
		})
	}
}

func TestHighSeverityRiskOverridesBuy(t *testing.T) {
	result := unifiedResult("WILD", 90, 88, 85)
	data := contextWithPrice("WILD", result.AnalysisDate, 50)
	riskAssessment := types.RiskAssessment{
		Ticker: "WILD",
		Level:  "high",
		Flags:  []types.RiskFlag{{Name: "high_volatility", Severity: "high"}},
	}

	sig, err := fixedCreator(result.AnalysisDate).Create(
		context.Background(), result, data, riskAssessment, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sig.Recommendation != "avoid" {
		t.Errorf("high severity risk must override buy, got %q", sig.Recommendation)
	}
	if len(sig.RiskFlags) != 1 {
		t.Errorf("risk flags should be carried on the signal: %+v", sig.RiskFlags)
	}
}

func TestConfidenceRewardsAgreement(t *testing.T) {
	agree := unifiedResult("A", 70, 70, 70)
	disagree := unifiedResult("B", 95, 30, 60)
	dataA := contextWithPrice("A", agree.AnalysisDate, 100)
	dataB := contextWithPrice("B", disagree.AnalysisDate, 100)

	sigA, err := fixedCreator(agree.AnalysisDate).Create(context.Background(), agree, dataA, types.RiskAssessment{}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sigB, err := fixedCreator(disagree.AnalysisDate).Create(context.Background(), disagree, dataB, types.RiskAssessment{}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sigA.Confidence != 100 {
		t.Errorf("perfect agreement should score 100 confidence, got %v", sigA.Confidence)
	}
	if sigB.Confidence >= sigA.Confidence {
		t.Errorf("disagreement should lower confidence: %v vs %v", sigB.Confidence, sigA.Confidence)
	}
}

func TestWarningsLowerConfidence(t *testing.T) {
	clean := unifiedResult("A", 70, 70, 70)
	warned := unifiedResult("A", 70, 70, 70)
	warned.Warnings = []string{"sparse price history", "news data unavailable"}
	data := contextWithPrice("A", clean.AnalysisDate, 100)

	sigClean, err := fixedCreator(clean.AnalysisDate).Create(context.Background(), clean, data, types.RiskAssessment{}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sigWarned, err := fixedCreator(warned.AnalysisDate).Create(context.Background(), warned, data, types.RiskAssessment{}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sigWarned.Confidence != sigClean.Confidence-2*warningPenalty {
		t.Errorf("each warning should cost %v confidence: %v vs %v",
			warningPenalty, sigWarned.Confidence, sigClean.Confidence)
	}
	if len(sigWarned.Warnings) != 2 {
		t.Errorf("warnings should propagate to the signal: %v", sigWarned.Warnings)
	}
}

func TestExpectedReturnBandOrdering(t *testing.T) {
	result := unifiedResult("A", 80, 75, 70)
	data := contextWithPrice("A", result.AnalysisDate, 100)
	sig, err := fixedCreator(result.AnalysisDate).Create(context.Background(), result, data, types.RiskAssessment{}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sig.ExpectedReturnLow >= sig.ExpectedReturnHi {
		t.Errorf("return band inverted: [%v, %v]", sig.ExpectedReturnLow, sig.ExpectedReturnHi)
	}
	if sig.ExpectedReturnHi <= 0 {
		t.Errorf("bullish score should imply positive upper bound, got %v", sig.ExpectedReturnHi)
	}
}

func TestKeyReasonsOrderedAndJoinedIntoRationale(t *testing.T) {
	result := unifiedResult("AAPL", 80, 60, 70)
	result.Technical.Rationale = "uptrend intact"
	result.Sentiment.Rationale = "coverage mixed"
	data := contextWithPrice("AAPL", result.AnalysisDate, 195.5)
	riskAssessment := types.RiskAssessment{
		Level: "elevated",
		Flags: []types.RiskFlag{{Name: "excessive_leverage", Severity: "medium"}},
	}

	sig, err := fixedCreator(result.AnalysisDate).Create(
		context.Background(), result, data, riskAssessment, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := []string{
		"hold_bullish: technical 80, fundamental 60, sentiment 70",
		"technical: uptrend intact",
		"sentiment: coverage mixed",
		"risk(medium): excessive_leverage",
	}
	if len(sig.KeyReasons) != len(want) {
		t.Fatalf("key reasons = %v, want %v", sig.KeyReasons, want)
	}
	for i, r := range want {
		if sig.KeyReasons[i] != r {
			t.Errorf("key reason %d = %q, want %q", i, sig.KeyReasons[i], r)
		}
	}
	if sig.Rationale != strings.Join(want, "; ") {
		t.Errorf("rationale should join the key reasons: %q", sig.Rationale)
	}
}

func TestPortfolioHoldingMentionedInRationale(t *testing.T) {
	result := unifiedResult("AAPL", 70, 70, 70)
	data := contextWithPrice("AAPL", result.AnalysisDate, 100)
	portfolio := &types.PortfolioContext{Holdings: map[string]float64{"AAPL": 0.12}}

	sig, err := fixedCreator(result.AnalysisDate).Create(context.Background(), result, data, types.RiskAssessment{}, portfolio)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.Contains(sig.Rationale, "already held") {
		t.Errorf("rationale should mention the existing holding: %q", sig.Rationale)
	}
}
