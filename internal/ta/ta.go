package ta

import "math"

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n)
}
func EMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	k := 2.0 / (float64(n) + 1.0)
	ema := SMA(closes[:n], n)
	for i := n; i < len(closes); i++ {
		ema = closes[i]*k + ema*(1.0-k)
	}
	return ema
}
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100.0 - (100.0 / (1.0 + rs))
}

// MACD returns the MACD line (EMA12-EMA26), signal line (EMA9 of MACD) and
// histogram. Needs at least slow+signal closes.
func MACD(closes []float64, fast, slow, signal int) (macd, sig, hist float64) {
	if len(closes) < slow+signal || fast <= 0 || slow <= fast || signal <= 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	series := make([]float64, 0, len(closes)-slow+1)
	for i := slow; i <= len(closes); i++ {
		series = append(series, EMA(closes[:i], fast)-EMA(closes[:i], slow))
	}
	macd = series[len(series)-1]
	sig = EMA(series, signal)
	hist = macd - sig
	return
}
func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}
func Bollinger(closes []float64, n int, k float64) (mid, up, low float64) {
	mid = SMA(closes, n)
	sd := StdDev(closes, n)
	up = mid + k*sd
	low = mid - k*sd
	return
}
func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return math.NaN()
	}
	n := period
	if len(closes) < n+1 {
		return math.NaN()
	}
	trs := make([]float64, 0, n)
	for i := len(closes) - n; i < len(closes); i++ {
		tr1 := highs[i] - lows[i]
		tr2 := math.Abs(highs[i] - closes[i-1])
		tr3 := math.Abs(lows[i] - closes[i-1])
		tr := math.Max(tr1, math.Max(tr2, tr3))
		trs = append(trs, tr)
	}
	sum := 0.0
	for _, v := range trs {
		sum += v
	}
	return sum / float64(n)
}

// VolumeRatio compares the latest volume to the n-day average volume.
func VolumeRatio(volumes []float64, n int) float64 {
	if len(volumes) < n+1 || n <= 0 {
		return math.NaN()
	}
	avg := SMA(volumes[:len(volumes)-1], n)
	if avg == 0 {
		return math.NaN()
	}
	return volumes[len(volumes)-1] / avg
}

// DailyReturnStdDevPct is the standard deviation of daily percent returns
// over the last n returns, used as a volatility gauge.
func DailyReturnStdDevPct(closes []float64, n int) float64 {
	if len(closes) < n+1 || n <= 0 {
		return math.NaN()
	}
	rets := make([]float64, 0, n)
	for i := len(closes) - n; i < len(closes); i++ {
		if closes[i-1] == 0 {
			return math.NaN()
		}
		rets = append(rets, (closes[i]-closes[i-1])/closes[i-1]*100.0)
	}
	return StdDev(rets, n)
}
