package signal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"invest-signals/internal/logger"
	"invest-signals/internal/types"
)

// Component weights for the final score. Technical and fundamental carry
// equal weight; sentiment slightly less.
const (
	WeightTechnical   = 0.35
	WeightFundamental = 0.35
	WeightSentiment   = 0.30
)

// Confidence penalty applied per data-quality warning.
const warningPenalty = 5.0

// ErrNoPriceData is returned when no price on or before the analysis date
// exists. A signal is never emitted with a zero price.
var ErrNoPriceData = errors.New("no price available on or before analysis date")

// Creator synthesizes investment signals from normalized analysis results.
type Creator struct {
	now func() time.Time
}

func NewCreator() *Creator {
	return &Creator{now: time.Now}
}

// Create combines the component scores into one recommendation. The result
// is never mutated. When no price resolves for the analysis date the signal
// is nil and ErrNoPriceData is returned.
func (c *Creator) Create(
	ctx context.Context,
	result *types.UnifiedAnalysisResult,
	data *types.AsOfContext,
	riskAssessment types.RiskAssessment,
	portfolio *types.PortfolioContext,
) (*types.InvestmentSignal, error) {
	analysisDate := result.AnalysisDate
	if analysisDate.IsZero() {
		analysisDate = c.now()
	}

	price, ok := data.LatestPrice(analysisDate)
	if !ok || price.Close <= 0 {
		logger.Warn(ctx, "No resolvable price, refusing to emit signal",
			"ticker", result.Ticker, "analysis_date", analysisDate.Format("2006-01-02"))
		return nil, ErrNoPriceData
	}

	tech := clamp100(result.Technical.Score)
	fund := clamp100(result.Fundamental.Score)
	sent := clamp100(result.Sentiment.Score)

	finalScore := WeightTechnical*tech + WeightFundamental*fund + WeightSentiment*sent
	confidence := c.confidence(tech, fund, sent, result.Warnings)
	recommendation := recommend(finalScore, confidence, riskAssessment)
	retLow, retHi := expectedReturn(finalScore, confidence)

	sig := &types.InvestmentSignal{
		Ticker:            result.Ticker,
		AnalysisDate:      analysisDate,
		GeneratedAt:       c.now(),
		Mode:              result.Mode,
		Recommendation:    recommendation,
		FinalScore:        round2(finalScore),
		Confidence:        round2(confidence),
		CurrentPrice:      price.Close,
		ExpectedReturnLow: round2(retLow),
		ExpectedReturnHi:  round2(retHi),
		ComponentScores: map[string]float64{
			"technical":   tech,
			"fundamental": fund,
			"sentiment":   sent,
		},
		RiskFlags: riskAssessment.Flags,
		Warnings:  append([]string(nil), result.Warnings...),
	}
	sig.KeyReasons = keyReasons(result, recommendation, riskAssessment, portfolio)
	sig.Rationale = strings.Join(sig.KeyReasons, "; ")

	logger.Signal(ctx, sig.Ticker, sig.Recommendation, sig.FinalScore, sig.Confidence,
		"mode", sig.Mode,
		"price", sig.CurrentPrice,
		"risk_level", riskAssessment.Level,
	)
	return sig, nil
}

// confidence rewards agreement across the components and penalizes
// data-quality warnings.
func (c *Creator) confidence(tech, fund, sent float64, warnings []string) float64 {
	maxScore := max3(tech, fund, sent)
	minScore := min3(tech, fund, sent)

	agreement := 100 - (maxScore-minScore)*0.5
	if agreement < 0 {
		agreement = 0
	}
	return clamp100(agreement - warningPenalty*float64(len(warnings)))
}

// recommend maps score and confidence onto the recommendation ladder. A high
// severity risk flag caps the label at avoid regardless of score.
func recommend(finalScore, confidence float64, riskAssessment types.RiskAssessment) string {
	if riskAssessment.HasHighSeverity() {
		return "avoid"
	}
	switch {
	case finalScore > 70 && confidence > 60:
		return "buy"
	case finalScore > 70:
		// Strong score with weak conviction downgrades to a bullish hold.
		return "hold_bullish"
	case finalScore >= 55:
		return "hold_bullish"
	case finalScore >= 40:
		return "hold_bearish"
	default:
		return "sell"
	}
}

// expectedReturn derives an indicative 12-month return band. The midpoint
// scales with how far the score sits from neutral; the band widens as
// confidence drops.
func expectedReturn(finalScore, confidence float64) (float64, float64) {
	mid := (finalScore - 50) * 0.3
	spread := 5 + (100-confidence)*0.1
	return mid - spread, mid + spread
}

// keyReasons builds the ordered reason list backing the signal: the score
// summary first, then component rationales, risk flags, and any holding note.
func keyReasons(
	result *types.UnifiedAnalysisResult,
	recommendation string,
	riskAssessment types.RiskAssessment,
	portfolio *types.PortfolioContext,
) []string {
	reasons := []string{fmt.Sprintf("%s: technical %.0f, fundamental %.0f, sentiment %.0f",
		recommendation, result.Technical.Score, result.Fundamental.Score, result.Sentiment.Score)}

	for _, cr := range result.Components() {
		if cr.Rationale != "" {
			reasons = append(reasons, fmt.Sprintf("%s: %s", cr.Name, cr.Rationale))
		}
	}
	for _, f := range riskAssessment.Flags {
		reasons = append(reasons, fmt.Sprintf("risk(%s): %s", f.Severity, f.Name))
	}
	if portfolio != nil {
		if weight, held := portfolio.Holdings[result.Ticker]; held {
			reasons = append(reasons, fmt.Sprintf("already held at %.1f%% weight", weight*100))
		}
	}
	return reasons
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

func round2(v float64) float64 {
	if v < 0 {
		return float64(int(v*100-0.5)) / 100
	}
	return float64(int(v*100+0.5)) / 100
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
