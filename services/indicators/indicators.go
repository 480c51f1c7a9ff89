// Package indicators computes the fixed per-candle indicator set consumed by
// the entry-signal evaluator and the position simulator.
package indicators

import (
	"math"

	"github.com/montanaflynn/stats"

	"backtest-sim/services/market"
)

const (
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
	bollingerPeriod  = 20
	bollingerStdDevs = 2.0
	volumeMaPeriod   = 20
	volatilityPeriod = 10
	volatilityMaLen  = 20
)

// Config holds the tunable lookbacks. The MACD, Bollinger and volume windows
// are fixed; only the EMA pair and RSI period vary per strategy.
type Config struct {
	EmaFastPeriod int
	EmaSlowPeriod int
	RsiPeriod     int
}

// Frame is one candle's indicator snapshot. Every field is guaranteed finite
// after the sanitation pass; downstream thresholds rely on that.
type Frame struct {
	Timestamp     int64
	Close         float64
	EmaFast       float64
	EmaSlow       float64
	Rsi           float64
	MacdDiff      float64
	BBUpper       float64
	BBMid         float64
	BBLower       float64
	VolumeMa      float64
	VolumeRatio   float64
	Volatility    float64
	VolatilityMa  float64
	TrendStrength float64
}

// FrameSet aligns tradable frames with their source candles. Candles[i]
// produced Frames[i]; the first Warmup candles of the series are not
// tradable and carry no frame.
type FrameSet struct {
	Frames  []Frame
	Candles []market.Candle
	Warmup  int
}

// WarmupBars returns the number of leading candles that can never be traded.
func (c Config) WarmupBars() int {
	w := c.EmaSlowPeriod
	if c.RsiPeriod > w {
		w = c.RsiPeriod
	}
	if bollingerPeriod > w {
		w = bollingerPeriod
	}
	return w
}

// Compute derives the full indicator set for a series. Rows lacking lookback
// are dropped from the tradable set; an undersized series yields an empty
// (but valid) FrameSet rather than an error.
func Compute(series *market.Series, cfg Config) *FrameSet {
	n := len(series.Candles)
	warmup := cfg.WarmupBars()
	out := &FrameSet{Warmup: warmup}
	if n <= warmup {
		return out
	}

	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range series.Candles {
		closes[i] = c.Close.InexactFloat64()
		volumes[i] = c.Volume.InexactFloat64()
	}

	emaFast := ema(closes, cfg.EmaFastPeriod)
	emaSlow := ema(closes, cfg.EmaSlowPeriod)
	rsi := wilderRsi(closes, cfg.RsiPeriod)

	// The MACD line is undefined until the slow EMA seeds, and the signal
	// EMA must seed over defined line values only. Anything earlier stays
	// NaN so the sanitation pass zeroes it instead of leaking price-scale
	// residue into early tradable frames.
	macdLine := nanSlice(n)
	macdSignal := nanSlice(n)
	if n >= macdSlowPeriod {
		macdFast := ema(closes, macdFastPeriod)
		macdSlow := ema(closes, macdSlowPeriod)
		for i := macdSlowPeriod - 1; i < n; i++ {
			macdLine[i] = macdFast[i] - macdSlow[i]
		}
		copy(macdSignal[macdSlowPeriod-1:], ema(macdLine[macdSlowPeriod-1:], macdSignalPeriod))
	}

	volMa := rollingMean(volumes, volumeMaPeriod)

	returns := nanSlice(n)
	for i := 1; i < n; i++ {
		if closes[i-1] != 0 {
			returns[i] = closes[i]/closes[i-1] - 1
		}
	}
	volatility := rollingStdDev(returns, volatilityPeriod)
	volatilityMa := rollingMean(volatility, volatilityMaLen)

	out.Frames = make([]Frame, 0, n-warmup)
	out.Candles = series.Candles[warmup:]
	for i := warmup; i < n; i++ {
		f := Frame{
			Timestamp: series.Candles[i].Timestamp,
			Close:     closes[i],
			EmaFast:   emaFast[i],
			EmaSlow:   emaSlow[i],
			Rsi:       rsi[i],
			MacdDiff:  macdLine[i] - macdSignal[i],
			VolumeMa:  volMa[i],
		}

		window := closes[i-bollingerPeriod+1 : i+1]
		mid, _ := stats.Mean(window)
		sd, _ := stats.StandardDeviation(window)
		f.BBMid = mid
		f.BBUpper = mid + bollingerStdDevs*sd
		f.BBLower = mid - bollingerStdDevs*sd

		if volMa[i] > 0 && volumes[i] > 0 {
			f.VolumeRatio = volumes[i] / volMa[i]
		} else {
			f.VolumeRatio = 1.0
		}

		f.Volatility = volatility[i]
		f.VolatilityMa = volatilityMa[i]

		if emaSlow[i] != 0 {
			f.TrendStrength = math.Abs(emaFast[i]-emaSlow[i]) / emaSlow[i] * 100
		}

		sanitize(&f)
		out.Frames = append(out.Frames, f)
	}
	return out
}

// sanitize replaces non-finite values with documented fallbacks: the candle
// close for price-level indicators, 50 for RSI, 1.0 for ratios, 0 otherwise.
// Signal thresholds assume finite inputs, so this is a hard guarantee.
func sanitize(f *Frame) {
	for _, p := range []*float64{&f.EmaFast, &f.EmaSlow, &f.BBUpper, &f.BBMid, &f.BBLower} {
		if !isFinite(*p) {
			*p = f.Close
		}
	}
	if !isFinite(f.Rsi) {
		f.Rsi = 50
	}
	if !isFinite(f.VolumeRatio) {
		f.VolumeRatio = 1.0
	}
	for _, p := range []*float64{&f.MacdDiff, &f.VolumeMa, &f.Volatility, &f.VolatilityMa, &f.TrendStrength} {
		if !isFinite(*p) {
			*p = 0
		}
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// nanSlice returns a slice with every entry marked undefined.
func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// ema seeds with the SMA of the first N values, then applies k = 2/(N+1)
// smoothing. Entries before the seed index are NaN (undefined), which the
// sanitation pass maps to the documented fallbacks.
func ema(values []float64, period int) []float64 {
	result := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return result
	}

	var sma float64
	for i := 0; i < period; i++ {
		sma += values[i]
	}
	sma /= float64(period)
	result[period-1] = sma

	alpha := 2.0 / float64(period+1)
	oneMinusAlpha := 1.0 - alpha
	for i := period; i < len(values); i++ {
		result[i] = values[i]*alpha + result[i-1]*oneMinusAlpha
	}
	return result
}

// wilderRsi computes Wilder-smoothed RSI, seeded with the simple average of
// the first N gains/losses.
func wilderRsi(closes []float64, period int) []float64 {
	result := nanSlice(len(closes))
	if period <= 0 || len(closes) <= period {
		return result
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss += -delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	result[period] = rsiFromAverages(avgGain, avgLoss)

	pm1 := float64(period - 1)
	pf := float64(period)
	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*pm1 + gain) / pf
		avgLoss = (avgLoss*pm1 + loss) / pf
		result[i] = rsiFromAverages(avgGain, avgLoss)
	}
	return result
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// rollingMean yields NaN until the window is full AND free of undefined
// entries; averaging undefined leading values in would bias the early
// windows toward zero.
func rollingMean(values []float64, period int) []float64 {
	result := nanSlice(len(values))
	if period <= 0 {
		return result
	}
	var sum float64
	undefined := 0
	for i, v := range values {
		if math.IsNaN(v) {
			undefined++
		} else {
			sum += v
		}
		if i >= period {
			if old := values[i-period]; math.IsNaN(old) {
				undefined--
			} else {
				sum -= old
			}
		}
		if i >= period-1 && undefined == 0 {
			result[i] = sum / float64(period)
		}
	}
	return result
}

// rollingStdDev yields NaN for windows that are short or contain undefined
// entries.
func rollingStdDev(values []float64, period int) []float64 {
	result := nanSlice(len(values))
	if period <= 0 {
		return result
	}
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		if hasNaN(window) {
			continue
		}
		sd, err := stats.StandardDeviation(window)
		if err == nil {
			result[i] = sd
		}
	}
	return result
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
