package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"invest-signals/internal/analysis"
	"invest-signals/internal/interfaces"
	"invest-signals/internal/llm"
	"invest-signals/internal/logger"
	"invest-signals/internal/normalize"
	"invest-signals/internal/signal"
	"invest-signals/internal/signallog"
	"invest-signals/internal/store"
	"invest-signals/internal/temporal"
	"invest-signals/internal/types"
)

// ErrNoUsableData is returned when a ticker's context has no price data and
// therefore cannot be scored.
var ErrNoUsableData = errors.New("context has no usable price data")

// Pipeline wires fetching, analysis, normalization, risk and signal creation
// into one per-ticker flow.
type Pipeline struct {
	cfg          *store.Config
	fetcher      *temporal.Fetcher
	ruleAnalyzer *analysis.Analyzer
	llmAnalyzer  *llm.Analyzer
	assessor     interfaces.RiskAssessor
	creator      *signal.Creator
	log          *signallog.Log
	portfolio    *types.PortfolioContext
}

func New(
	cfg *store.Config,
	fetcher *temporal.Fetcher,
	ruleAnalyzer *analysis.Analyzer,
	llmAnalyzer *llm.Analyzer,
	assessor interfaces.RiskAssessor,
	creator *signal.Creator,
	log *signallog.Log,
) *Pipeline {
	return &Pipeline{
		cfg:          cfg,
		fetcher:      fetcher,
		ruleAnalyzer: ruleAnalyzer,
		llmAnalyzer:  llmAnalyzer,
		assessor:     assessor,
		creator:      creator,
		log:          log,
	}
}

// SetPortfolio attaches holdings context used for signal rationale.
func (p *Pipeline) SetPortfolio(pc *types.PortfolioContext) { p.portfolio = pc }

// AnalyzeTicker runs the full flow for one ticker as of the given date.
func (p *Pipeline) AnalyzeTicker(ctx context.Context, ticker string, asOf time.Time) (*types.InvestmentSignal, error) {
	timer := logger.StartOperation(ctx, "pipeline.AnalyzeTicker",
		"ticker", ticker, "as_of", asOf.Format("2006-01-02"), "mode", p.cfg.Mode)
	ctx = timer.GetContext()

	data, err := p.fetcher.FetchAsOfDate(ctx, ticker, asOf, p.cfg.Analysis.LookbackDays)
	if err != nil {
		timer.EndWithError(err)
		return nil, err
	}
	if !data.DataAvailable {
		err := fmt.Errorf("%w: %s", ErrNoUsableData, ticker)
		timer.EndWithError(err)
		return nil, err
	}

	unified, err := p.analyze(ctx, data)
	if err != nil {
		timer.EndWithError(err)
		return nil, err
	}

	riskAssessment := p.assessor.Assess(unified, data)

	sig, err := p.creator.Create(ctx, unified, data, riskAssessment, p.portfolio)
	if err != nil {
		timer.EndWithError(err)
		return nil, err
	}

	if p.log != nil {
		if err := p.log.Append(sig); err != nil {
			// Persistence is best effort; the signal is still returned.
			logger.Warn(ctx, "Failed to persist signal", "ticker", ticker, "error", err.Error())
		}
	}

	timer.End("recommendation", sig.Recommendation, "final_score", sig.FinalScore)
	return sig, nil
}

// analyze produces a unified result via the configured mode. An LLM output
// that does not fit the unified schema falls back to the rule-based path.
func (p *Pipeline) analyze(ctx context.Context, data *types.AsOfContext) (*types.UnifiedAnalysisResult, error) {
	if p.cfg.Mode == "LLM" && p.llmAnalyzer != nil {
		out, err := p.llmAnalyzer.Analyze(ctx, data)
		if err == nil {
			unified, nerr := normalize.FromLLM(out)
			if nerr == nil {
				return unified, nil
			}
			if !errors.Is(nerr, normalize.ErrNormalizationMismatch) {
				return nil, nerr
			}
			logger.Warn(ctx, "LLM output unusable, falling back to rule-based analysis",
				"ticker", data.Ticker, "error", nerr.Error())
		} else {
			if ctx.Err() != nil {
				return nil, err
			}
			logger.ErrorWithErr(ctx, "LLM analysis failed, falling back to rule-based analysis", err,
				"ticker", data.Ticker)
		}
	}

	report, err := p.ruleAnalyzer.Analyze(ctx, data)
	if err != nil {
		return nil, err
	}
	return normalize.FromRuleBased(report)
}

// AnalyzeBatch runs the universe with bounded concurrency. A failing ticker
// never aborts the batch; its error is logged and the rest continue. Results
// come back sorted by confidence, highest first.
func (p *Pipeline) AnalyzeBatch(ctx context.Context, tickers []string, asOf time.Time) ([]*types.InvestmentSignal, error) {
	timer := logger.StartOperation(ctx, "pipeline.AnalyzeBatch",
		"tickers", len(tickers), "as_of", asOf.Format("2006-01-02"))
	ctx = timer.GetContext()

	maxConcurrency := p.cfg.Analysis.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		signals []*types.InvestmentSignal
		failed  int
	)
	sem := make(chan struct{}, maxConcurrency)

	for _, ticker := range tickers {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			sig, err := p.AnalyzeTicker(ctx, ticker, asOf)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				if ctx.Err() == nil {
					if insufficientData(err) {
						logger.Warn(ctx, "Ticker skipped: insufficient data", "ticker", ticker, "reason", err.Error())
					} else {
						logger.Warn(ctx, "Ticker analysis failed", "ticker", ticker, "error", err.Error())
					}
				}
				return
			}
			signals = append(signals, sig)
		}(ticker)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		timer.EndWithError(err)
		return signals, err
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Confidence > signals[j].Confidence
	})

	timer.End("succeeded", len(signals), "failed", failed)
	return signals, nil
}

// insufficientData distinguishes a missing-data skip from a real failure.
// Skips are a normal outcome for thin or delisted tickers.
func insufficientData(err error) bool {
	return errors.Is(err, ErrNoUsableData) || errors.Is(err, signal.ErrNoPriceData)
}
