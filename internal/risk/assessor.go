package risk

import (
	"context"
	"fmt"
	"math"

	"invest-signals/internal/interfaces"
	"invest-signals/internal/logger"
	"invest-signals/internal/store"
	"invest-signals/internal/ta"
	"invest-signals/internal/types"
)

const volatilityWindow = 20

// Assessor derives risk flags from the point-in-time data and the normalized
// analysis. Thresholds come from config so they can be tuned per deployment.
type Assessor struct {
	volHighPct     float64
	volVeryHighPct float64
	maxDebtEquity  float64
}

var _ interfaces.RiskAssessor = (*Assessor)(nil)

func NewAssessor(cfg *store.Config) *Assessor {
	return &Assessor{
		volHighPct:     cfg.Risk.VolatilityHighPct,
		volVeryHighPct: cfg.Risk.VolatilityVeryHighPct,
		maxDebtEquity:  cfg.Risk.MaxDebtEquity,
	}
}

// Assess inspects prices and fundamentals for risk conditions. Flags only
// record what was observed; acting on them is the signal layer's job.
func (a *Assessor) Assess(result *types.UnifiedAnalysisResult, data *types.AsOfContext) types.RiskAssessment {
	assessment := types.RiskAssessment{Ticker: data.Ticker, Level: "low"}

	a.checkVolatility(&assessment, data)
	a.checkLeverage(&assessment, data)
	a.checkProfitability(&assessment, data)
	a.checkMomentumExtremes(&assessment, data)

	switch {
	case assessment.HasHighSeverity():
		assessment.Level = "high"
	case len(assessment.Flags) > 0:
		assessment.Level = "elevated"
	}

	for _, f := range assessment.Flags {
		logger.Risk(context.Background(), data.Ticker, f.Name, "severity", f.Severity, "detail", f.Detail)
	}
	return assessment
}

func (a *Assessor) checkVolatility(out *types.RiskAssessment, data *types.AsOfContext) {
	closes := closesOf(data.Prices)
	vol := ta.DailyReturnStdDevPct(closes, volatilityWindow)
	if math.IsNaN(vol) || vol <= a.volHighPct {
		return
	}
	severity := "medium"
	if vol > a.volVeryHighPct {
		severity = "high"
	}
	out.Flags = append(out.Flags, types.RiskFlag{
		Name:     "high_volatility",
		Severity: severity,
		Detail:   fmt.Sprintf("20d daily return stddev %.2f%%", vol),
	})
}

func (a *Assessor) checkLeverage(out *types.RiskAssessment, data *types.AsOfContext) {
	de, ok := latestMetric(data, "debt_to_equity")
	if !ok || de <= a.maxDebtEquity {
		return
	}
	out.Flags = append(out.Flags, types.RiskFlag{
		Name:     "excessive_leverage",
		Severity: "medium",
		Detail:   fmt.Sprintf("debt/equity %.2f exceeds %.1f", de, a.maxDebtEquity),
	})
}

func (a *Assessor) checkProfitability(out *types.RiskAssessment, data *types.AsOfContext) {
	if ni, ok := latestMetric(data, "net_income"); ok && ni < 0 {
		out.Flags = append(out.Flags, types.RiskFlag{
			Name:     "negative_net_income",
			Severity: "medium",
			Detail:   fmt.Sprintf("latest net income %.0f", ni),
		})
		return
	}
	if margin, ok := latestMetric(data, "net_margin"); ok && margin < 0 {
		out.Flags = append(out.Flags, types.RiskFlag{
			Name:     "negative_margin",
			Severity: "medium",
			Detail:   fmt.Sprintf("net margin %.2f%%", margin),
		})
	}
}

func (a *Assessor) checkMomentumExtremes(out *types.RiskAssessment, data *types.AsOfContext) {
	closes := closesOf(data.Prices)
	rsi := ta.RSI(closes, 14)
	if math.IsNaN(rsi) {
		return
	}
	if rsi > 80 {
		out.Flags = append(out.Flags, types.RiskFlag{
			Name:     "overbought",
			Severity: "medium",
			Detail:   fmt.Sprintf("RSI %.1f", rsi),
		})
	} else if rsi < 20 {
		out.Flags = append(out.Flags, types.RiskFlag{
			Name:     "oversold",
			Severity: "medium",
			Detail:   fmt.Sprintf("RSI %.1f", rsi),
		})
	}
}

func closesOf(prices []types.PricePoint) []float64 {
	closes := make([]float64, 0, len(prices))
	for _, p := range prices {
		closes = append(closes, p.Close)
	}
	return closes
}

// latestMetric returns the most recent value of a named fundamental metric.
// Records arrive sorted chronologically, so the last match wins.
func latestMetric(data *types.AsOfContext, metric string) (float64, bool) {
	var v float64
	found := false
	for _, s := range data.Fundamentals {
		if s.Metric == metric {
			v = s.Value
			found = true
		}
	}
	return v, found
}
