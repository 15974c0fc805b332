package normalize

import (
	"errors"
	"fmt"

	"invest-signals/internal/analysis"
	"invest-signals/internal/llm"
	"invest-signals/internal/types"
)

// Mode labels stamped onto normalized results.
const (
	ModeRuleBased = "rule_based"
	ModeLLM       = "llm"
)

// ErrNormalizationMismatch is returned when an LLM output cannot be mapped
// onto the unified shape, typically because a component reply never parsed.
var ErrNormalizationMismatch = errors.New("llm output does not fit unified schema")

// FromRuleBased maps a rule-based report onto the unified shape. The report
// already carries the three components, so this is a direct restructuring.
func FromRuleBased(report *analysis.Report) (*types.UnifiedAnalysisResult, error) {
	if report == nil {
		return nil, errors.New("nil rule-based report")
	}
	return &types.UnifiedAnalysisResult{
		Ticker:       report.Ticker,
		AnalysisDate: report.AnalysisDate,
		Mode:         ModeRuleBased,
		Technical:    clampComponent(report.Analysis.Technical),
		Fundamental:  clampComponent(report.Analysis.Fundamental),
		Sentiment:    clampComponent(report.Analysis.Sentiment),
		Warnings:     append([]string(nil), report.Warnings...),
	}, nil
}

// FromLLM maps an LLM output onto the unified shape. The synthesis payload
// supplies the aggregate component scores; it is deliberately minimal and
// never carries factor detail, so breakdowns, rationales, and confidence are
// recovered from the per-component task results.
func FromLLM(out *llm.Output) (*types.UnifiedAnalysisResult, error) {
	if out == nil {
		return nil, errors.New("nil llm output")
	}

	result := &types.UnifiedAnalysisResult{
		Ticker:       out.Ticker,
		AnalysisDate: out.AnalysisDate,
		Mode:         ModeLLM,
		Warnings:     append([]string(nil), out.Warnings...),
	}

	for _, src := range []struct {
		name  string
		score float64
		dst   *types.ComponentResult
	}{
		{"technical", out.Synthesis.TechnicalScore, &result.Technical},
		{"fundamental", out.Synthesis.FundamentalScore, &result.Fundamental},
		{"sentiment", out.Synthesis.SentimentScore, &result.Sentiment},
	} {
		cs, ok := out.Components[src.name]
		if !ok || !cs.Parsed {
			return nil, fmt.Errorf("%w: component %q missing or unparsed", ErrNormalizationMismatch, src.name)
		}
		*src.dst = clampComponent(types.ComponentResult{
			Name:       src.name,
			Score:      src.score,
			Confidence: cs.Confidence,
			Breakdown:  cs.Factors,
			Rationale:  cs.Rationale,
		})
	}
	return result, nil
}

func clampComponent(cr types.ComponentResult) types.ComponentResult {
	cr.Score = clamp100(cr.Score)
	cr.Confidence = clamp100(cr.Confidence)
	return cr
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
