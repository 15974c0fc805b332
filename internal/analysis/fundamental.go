package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"

	"invest-signals/internal/types"
)

// FundamentalScorer scores reported financials on a 0-100 scale: growth 25
// points, margins 25, balance-sheet health 25, valuation 25.
type FundamentalScorer struct{}

func NewFundamentalScorer() *FundamentalScorer { return &FundamentalScorer{} }

func (s *FundamentalScorer) Name() string { return "fundamental" }

// metricSeries groups statement values per metric, sorted oldest first.
type metricSeries map[string][]types.FinancialStatement

func buildSeries(stmts []types.FinancialStatement) metricSeries {
	ms := metricSeries{}
	for _, st := range stmts {
		ms[st.Metric] = append(ms[st.Metric], st)
	}
	for k := range ms {
		sort.SliceStable(ms[k], func(i, j int) bool {
			return ms[k][i].ReportDate.Before(ms[k][j].ReportDate)
		})
	}
	return ms
}

// latest returns the most recent value for a metric.
func (ms metricSeries) latest(metric string) (float64, bool) {
	vals := ms[metric]
	if len(vals) == 0 {
		return 0, false
	}
	return vals[len(vals)-1].Value, true
}

// yoyGrowthPct computes percent growth between the oldest and newest values
// of a metric, as a rough year-over-year proxy for quarterly series.
func (ms metricSeries) yoyGrowthPct(metric string) (float64, bool) {
	vals := ms[metric]
	if len(vals) < 2 {
		return 0, false
	}
	first, last := vals[0].Value, vals[len(vals)-1].Value
	if first == 0 {
		return 0, false
	}
	return (last - first) / math.Abs(first) * 100, true
}

func (s *FundamentalScorer) Score(ctx context.Context, data *types.AsOfContext) (types.ComponentResult, error) {
	if len(data.Fundamentals) == 0 {
		return types.ComponentResult{
			Name:       s.Name(),
			Score:      50,
			Confidence: 15,
			Rationale:  "no fundamental data available, defaulting to neutral",
		}, nil
	}

	ms := buildSeries(data.Fundamentals)

	growth, growthDetail := scoreGrowth(ms)
	margins, marginPct := scoreMargins(ms)
	health, de := scoreHealth(ms)
	valuation, pe := scoreValuation(ms)

	score := clamp100(growth + margins + health + valuation)

	breakdown := map[string]float64{
		"growth":    growth,
		"margins":   margins,
		"health":    health,
		"valuation": valuation,
	}
	if !math.IsNaN(growthDetail) {
		breakdown["revenue_growth_pct"] = growthDetail
	}
	if !math.IsNaN(marginPct) {
		breakdown["net_margin_pct"] = marginPct
	}
	if !math.IsNaN(de) {
		breakdown["debt_to_equity"] = de
	}
	if !math.IsNaN(pe) {
		breakdown["pe_ratio"] = pe
	}

	return types.ComponentResult{
		Name:       s.Name(),
		Score:      score,
		Confidence: fundamentalConfidence(ms),
		Breakdown:  breakdown,
		Rationale:  fundamentalCommentary(growthDetail, marginPct, de, score),
	}, nil
}

// scoreGrowth awards up to 25 points for revenue growth.
func scoreGrowth(ms metricSeries) (float64, float64) {
	growth, ok := ms.yoyGrowthPct("revenue")
	if !ok {
		// A pre-computed growth metric from a snapshot provider.
		if g, ok2 := ms.latest("revenue_growth"); ok2 {
			growth, ok = g, true
		}
	}
	if !ok {
		return 12, math.NaN()
	}

	switch {
	case growth < 0:
		return math.Max(0, 10+growth*0.5), growth
	case growth <= 10:
		return 12 + growth*0.8, growth
	case growth <= 30:
		return 20 + (growth-10)*0.25, growth
	default:
		return 25, growth
	}
}

// scoreMargins awards up to 25 points for profitability.
func scoreMargins(ms metricSeries) (float64, float64) {
	margin, ok := ms.latest("net_margin")
	if !ok {
		ni, okN := ms.latest("net_income")
		rev, okR := ms.latest("revenue")
		if okN && okR && rev != 0 {
			margin, ok = ni/rev*100, true
		}
	}
	if !ok {
		return 12, math.NaN()
	}

	switch {
	case margin < 0:
		return 0, margin
	case margin < 5:
		return 6 + margin, margin
	case margin < 15:
		return 11 + (margin-5)*0.9, margin
	default:
		return math.Min(25, 20+(margin-15)*0.25), margin
	}
}

// scoreHealth awards up to 25 points for balance-sheet strength.
func scoreHealth(ms metricSeries) (float64, float64) {
	de, okDE := ms.latest("debt_to_equity")
	cr, okCR := ms.latest("current_ratio")

	points := 0.0
	if okDE {
		switch {
		case de < 0.5:
			points += 15
		case de < 1.0:
			points += 12
		case de < 2.0:
			points += 7
		default:
			points += 2
		}
	} else {
		points += 8
		de = math.NaN()
	}

	if okCR {
		switch {
		case cr >= 1.5:
			points += 10
		case cr >= 1.0:
			points += 7
		default:
			points += 2
		}
	} else {
		points += 5
	}
	return math.Min(points, 25), de
}

// scoreValuation awards up to 25 points, favoring reasonable multiples.
func scoreValuation(ms metricSeries) (float64, float64) {
	pe, ok := ms.latest("pe_ratio")
	if !ok || pe <= 0 {
		return 12, math.NaN()
	}
	switch {
	case pe < 10:
		return 20, pe // cheap, possibly for a reason
	case pe <= 20:
		return 25, pe
	case pe <= 35:
		return 15, pe
	default:
		return 6, pe
	}
}

func fundamentalConfidence(ms metricSeries) float64 {
	metrics := 0
	depth := 0
	for _, vals := range ms {
		metrics++
		if len(vals) > depth {
			depth = len(vals)
		}
	}
	conf := 30.0 + float64(metrics)*8
	if depth >= 4 {
		conf += 15
	}
	return math.Min(conf, 90)
}

func fundamentalCommentary(growth, margin, de, score float64) string {
	c := ""
	if !math.IsNaN(growth) {
		if growth > 10 {
			c += fmt.Sprintf("Revenue growing %.1f%%. ", growth)
		} else if growth < 0 {
			c += fmt.Sprintf("Revenue declining %.1f%% is a concern. ", growth)
		}
	}
	if !math.IsNaN(margin) {
		if margin < 0 {
			c += "Company is unprofitable. "
		} else if margin > 15 {
			c += fmt.Sprintf("Strong net margin of %.1f%%. ", margin)
		}
	}
	if !math.IsNaN(de) && de > 2.0 {
		c += fmt.Sprintf("High leverage with debt/equity at %.1f. ", de)
	}
	c += fmt.Sprintf("Fundamental score: %.1f.", score)
	return c
}
