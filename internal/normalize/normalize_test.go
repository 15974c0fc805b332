package normalize

import (
	"errors"
	"testing"
	"time"

	"invest-signals/internal/analysis"
	"invest-signals/internal/llm"
	"invest-signals/internal/types"
)

func TestFromRuleBased(t *testing.T) {
	report := &analysis.Report{
		Ticker:       "AAPL",
		AnalysisDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Warnings:     []string{"sparse price history: 12 of 260 expected points"},
	}
	report.Analysis.Technical = types.ComponentResult{Name: "technical", Score: 78, Confidence: 80, Breakdown: map[string]float64{"rsi": 61}}
	report.Analysis.Fundamental = types.ComponentResult{Name: "fundamental", Score: 64, Confidence: 70}
	report.Analysis.Sentiment = types.ComponentResult{Name: "sentiment", Score: 55, Confidence: 50}

	got, err := FromRuleBased(report)
	if err != nil {
		t.Fatalf("FromRuleBased: %v", err)
	}
	if got.Mode != ModeRuleBased {
		t.Errorf("mode = %q", got.Mode)
	}
	if got.Technical.Score != 78 || got.Fundamental.Score != 64 || got.Sentiment.Score != 55 {
		t.Errorf("component scores not carried: %+v", got)
	}
	if got.Technical.Breakdown["rsi"] != 61 {
		t.Error("breakdown detail lost in normalization")
	}
	if len(got.Warnings) != 1 {
		t.Errorf("warnings not carried: %v", got.Warnings)
	}
}

func TestFromLLMScoresFromSynthesisDetailFromComponents(t *testing.T) {
	// The technical task reply carries only an indicator, no score of its
	// own. The aggregate scores live on the synthesis payload.
	out := &llm.Output{
		Ticker:       "MSFT",
		AnalysisDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Components: map[string]llm.ComponentScore{
			"technical":   {Component: "technical", Confidence: 70, Factors: map[string]float64{"rsi": 58.5}, Rationale: "uptrend", Parsed: true},
			"fundamental": {Component: "fundamental", Confidence: 60, Parsed: true},
			"sentiment":   {Component: "sentiment", Confidence: 55, Parsed: true},
		},
		Synthesis: llm.Synthesis{TechnicalScore: 75, FundamentalScore: 62, SentimentScore: 58, Recommendation: "buy"},
	}

	got, err := FromLLM(out)
	if err != nil {
		t.Fatalf("FromLLM: %v", err)
	}
	if got.Mode != ModeLLM {
		t.Errorf("mode = %q", got.Mode)
	}
	if got.Technical.Score != 75 || got.Fundamental.Score != 62 || got.Sentiment.Score != 58 {
		t.Errorf("scores should come from the synthesis payload, got %v/%v/%v",
			got.Technical.Score, got.Fundamental.Score, got.Sentiment.Score)
	}
	if got.Technical.Breakdown["rsi"] != 58.5 {
		t.Error("indicator detail should come from the component task")
	}
	if got.Technical.Rationale != "uptrend" || got.Technical.Confidence != 70 {
		t.Errorf("component detail lost: %+v", got.Technical)
	}
}

func TestFromLLMMissingComponentMismatch(t *testing.T) {
	out := &llm.Output{
		Ticker: "TSLA",
		Components: map[string]llm.ComponentScore{
			"technical": {Component: "technical", Score: 75, Confidence: 70, Parsed: true},
			"sentiment": {Component: "sentiment", Score: 58, Confidence: 55, Parsed: true},
		},
	}
	if _, err := FromLLM(out); !errors.Is(err, ErrNormalizationMismatch) {
		t.Fatalf("expected ErrNormalizationMismatch, got %v", err)
	}
}

func TestFromLLMUnparsedComponentMismatch(t *testing.T) {
	out := &llm.Output{
		Ticker: "TSLA",
		Components: map[string]llm.ComponentScore{
			"technical":   {Component: "technical", Score: 75, Confidence: 70, Parsed: true},
			"fundamental": {Component: "fundamental", Score: 50, Rationale: "unable_to_parse_llm_output", Parsed: false},
			"sentiment":   {Component: "sentiment", Score: 58, Confidence: 55, Parsed: true},
		},
	}
	if _, err := FromLLM(out); !errors.Is(err, ErrNormalizationMismatch) {
		t.Fatalf("expected ErrNormalizationMismatch, got %v", err)
	}
}

func TestClampOutOfRangeScores(t *testing.T) {
	out := &llm.Output{
		Ticker: "NVDA",
		Components: map[string]llm.ComponentScore{
			"technical":   {Confidence: 70, Parsed: true},
			"fundamental": {Confidence: 60, Parsed: true},
			"sentiment":   {Confidence: 130, Parsed: true},
		},
		Synthesis: llm.Synthesis{TechnicalScore: 140, FundamentalScore: -10, SentimentScore: 58},
	}
	got, err := FromLLM(out)
	if err != nil {
		t.Fatalf("FromLLM: %v", err)
	}
	if got.Technical.Score != 100 {
		t.Errorf("score above range should clamp to 100, got %v", got.Technical.Score)
	}
	if got.Fundamental.Score != 0 {
		t.Errorf("score below range should clamp to 0, got %v", got.Fundamental.Score)
	}
	if got.Sentiment.Confidence != 100 {
		t.Errorf("confidence should clamp to 100, got %v", got.Sentiment.Confidence)
	}
}
