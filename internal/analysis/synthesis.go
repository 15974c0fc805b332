package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"invest-signals/internal/interfaces"
	"invest-signals/internal/logger"
	"invest-signals/internal/types"
)

// Report is the native rule-based output: a nested structure where each
// component already carries its score plus the detailed indicator breakdown.
type Report struct {
	Ticker       string    `json:"ticker"`
	AnalysisDate time.Time `json:"analysis_date"`
	Analysis     struct {
		Technical   types.ComponentResult `json:"technical"`
		Fundamental types.ComponentResult `json:"fundamental"`
		Sentiment   types.ComponentResult `json:"sentiment"`
	} `json:"analysis"`
	Warnings []string `json:"warnings,omitempty"`
}

// Analyzer runs the three rule-based component scorers over a shared
// read-only context.
type Analyzer struct {
	technical   interfaces.ComponentScorer
	fundamental interfaces.ComponentScorer
	sentiment   interfaces.ComponentScorer
}

// NewAnalyzer wires the default rule-based scorers.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		technical:   NewTechnicalScorer(),
		fundamental: NewFundamentalScorer(),
		sentiment:   NewSentimentScorer(),
	}
}

// NewAnalyzerWith allows substituting individual scorers.
func NewAnalyzerWith(technical, fundamental, sentiment interfaces.ComponentScorer) *Analyzer {
	return &Analyzer{technical: technical, fundamental: fundamental, sentiment: sentiment}
}

// Analyze scores all three components concurrently. A scorer error fails the
// whole analysis: partial component sets cannot be synthesized.
func (a *Analyzer) Analyze(ctx context.Context, data *types.AsOfContext) (*Report, error) {
	timer := logger.StartOperation(ctx, "analysis.Analyze", "ticker", data.Ticker)
	ctx = timer.GetContext()

	report := &Report{
		Ticker:       data.Ticker,
		AnalysisDate: data.AsOfDate,
		Warnings:     append([]string(nil), data.Warnings...),
	}

	scorers := []struct {
		scorer interfaces.ComponentScorer
		slot   *types.ComponentResult
	}{
		{a.technical, &report.Analysis.Technical},
		{a.fundamental, &report.Analysis.Fundamental},
		{a.sentiment, &report.Analysis.Sentiment},
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, sc := range scorers {
		wg.Add(1)
		go func(scorer interfaces.ComponentScorer, slot *types.ComponentResult) {
			defer wg.Done()
			res, err := scorer.Score(ctx, data)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("%s scorer: %w", scorer.Name(), err)
				}
				return
			}
			*slot = res
		}(sc.scorer, sc.slot)
	}
	wg.Wait()

	if firstErr != nil {
		timer.EndWithError(firstErr)
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		timer.EndWithError(err)
		return nil, err
	}

	timer.End(
		"technical", report.Analysis.Technical.Score,
		"fundamental", report.Analysis.Fundamental.Score,
		"sentiment", report.Analysis.Sentiment.Score,
	)
	return report, nil
}
