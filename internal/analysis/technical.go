package analysis

import (
	"context"
	"fmt"
	"math"

	"invest-signals/internal/ta"
	"invest-signals/internal/types"
)

// TechnicalScorer scores price action on a 0-100 scale: trend 30 points,
// momentum 30, volatility 20, volume 20.
type TechnicalScorer struct{}

func NewTechnicalScorer() *TechnicalScorer { return &TechnicalScorer{} }

func (s *TechnicalScorer) Name() string { return "technical" }

func (s *TechnicalScorer) Score(ctx context.Context, data *types.AsOfContext) (types.ComponentResult, error) {
	closes := make([]float64, 0, len(data.Prices))
	highs := make([]float64, 0, len(data.Prices))
	lows := make([]float64, 0, len(data.Prices))
	volumes := make([]float64, 0, len(data.Prices))
	for _, p := range data.Prices {
		closes = append(closes, p.Close)
		highs = append(highs, p.High)
		lows = append(lows, p.Low)
		volumes = append(volumes, p.Volume)
	}

	if len(closes) < 21 {
		return types.ComponentResult{
			Name:       s.Name(),
			Score:      50,
			Confidence: 20,
			Rationale:  fmt.Sprintf("insufficient price history (%d bars), defaulting to neutral", len(closes)),
		}, nil
	}

	last := closes[len(closes)-1]
	sma20 := ta.SMA(closes, 20)
	sma50 := ta.SMA(closes, 50)
	rsi := ta.RSI(closes, 14)
	_, _, macdHist := ta.MACD(closes, 12, 26, 9)
	volPct := ta.DailyReturnStdDevPct(closes, 20)
	volRatio := ta.VolumeRatio(volumes, 20)
	atr := ta.ATR(highs, lows, closes, 14)

	trend := scoreTrend(last, sma20, sma50)
	momentum := scoreMomentum(rsi, macdHist)
	volatility := scoreVolatility(volPct)
	volume := scoreVolume(volRatio, closes)

	score := clamp100(trend + momentum + volatility + volume)
	confidence := technicalConfidence(len(closes))

	breakdown := map[string]float64{
		"trend":        trend,
		"momentum":     momentum,
		"volatility":   volatility,
		"volume":       volume,
		"sma_20":       sma20,
		"rsi_14":       rsi,
		"macd_hist":    macdHist,
		"daily_vol":    volPct,
		"volume_ratio": volRatio,
		"last_close":   last,
	}
	if !math.IsNaN(sma50) {
		breakdown["sma_50"] = sma50
	}
	if !math.IsNaN(atr) {
		breakdown["atr_14"] = atr
	}

	return types.ComponentResult{
		Name:       s.Name(),
		Score:      score,
		Confidence: confidence,
		Breakdown:  breakdown,
		Rationale:  technicalCommentary(last, sma20, rsi, volPct, score),
	}, nil
}

// scoreTrend awards up to 30 points for price position relative to moving
// averages.
func scoreTrend(last, sma20, sma50 float64) float64 {
	points := 0.0
	if !math.IsNaN(sma20) {
		if last > sma20 {
			points += 14
		} else {
			points += 4
		}
	}
	if !math.IsNaN(sma50) {
		if last > sma50 {
			points += 8
		}
		if !math.IsNaN(sma20) && sma20 > sma50 {
			points += 8
		}
	} else if !math.IsNaN(sma20) {
		// No long average: extend the short-average signal.
		if last > sma20 {
			points += 10
		}
	}
	return math.Min(points, 30)
}

// scoreMomentum awards up to 30 points for RSI posture and MACD direction.
func scoreMomentum(rsi, macdHist float64) float64 {
	points := 0.0
	switch {
	case math.IsNaN(rsi):
		points += 9
	case rsi >= 50 && rsi <= 70:
		points += 18 // healthy momentum without froth
	case rsi > 70 && rsi <= 80:
		points += 12
	case rsi >= 40 && rsi < 50:
		points += 10
	case rsi > 80:
		points += 4 // overbought
	case rsi < 30:
		points += 3 // oversold
	default:
		points += 6
	}
	if !math.IsNaN(macdHist) && macdHist > 0 {
		points += 12
	} else if !math.IsNaN(macdHist) {
		points += 3
	}
	return math.Min(points, 30)
}

// scoreVolatility awards up to 20 points, favoring calm price action.
// 1% daily volatility or less earns full points, decaying to 0 at 5%+.
func scoreVolatility(volPct float64) float64 {
	if math.IsNaN(volPct) {
		return 10
	}
	if volPct <= 1.0 {
		return 20
	}
	if volPct >= 5.0 {
		return 0
	}
	return 20 * (5.0 - volPct) / 4.0
}

// scoreVolume awards up to 20 points for volume confirming the move.
func scoreVolume(volRatio float64, closes []float64) float64 {
	if math.IsNaN(volRatio) {
		return 10
	}
	rising := len(closes) >= 2 && closes[len(closes)-1] >= closes[len(closes)-2]
	switch {
	case volRatio >= 1.5 && rising:
		return 20
	case volRatio >= 1.5:
		return 6 // heavy volume into a down move
	case volRatio >= 0.8:
		return 12
	default:
		return 6 // thin participation
	}
}

func technicalConfidence(bars int) float64 {
	switch {
	case bars >= 120:
		return 90
	case bars >= 60:
		return 80
	case bars >= 35:
		return 65
	default:
		return 45
	}
}

func technicalCommentary(last, sma20, rsi, volPct, score float64) string {
	c := ""
	if !math.IsNaN(sma20) && last > sma20 {
		c += "Price trading above its 20-day average. "
	} else if !math.IsNaN(sma20) {
		c += "Price below its 20-day average. "
	}
	if !math.IsNaN(rsi) {
		if rsi > 70 {
			c += fmt.Sprintf("RSI %.0f signals overbought conditions. ", rsi)
		} else if rsi < 30 {
			c += fmt.Sprintf("RSI %.0f signals oversold conditions. ", rsi)
		} else {
			c += fmt.Sprintf("RSI %.0f in a constructive range. ", rsi)
		}
	}
	if !math.IsNaN(volPct) && volPct > 3 {
		c += fmt.Sprintf("Elevated volatility at %.1f%% daily. ", volPct)
	}
	c += fmt.Sprintf("Technical score: %.1f.", score)
	return c
}

func clamp100(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
