// Package signal decides whether a pair of consecutive indicator frames
// constitutes a long entry. The strategy is a voting scheme, not a single
// crossover: at least 3 of 5 primary conditions AND at least 2 of 7
// confirmation conditions must hold.
package signal

import (
	"math"

	"backtest-sim/services/indicators"
)

const (
	// minimum volume surge relative to its 20-period average
	volumeSurgeRatio = 1.2
	// minimum candle-over-candle gain counted as momentum
	momentumThreshold = 0.0005
	// minimum EMA separation (in percent of the slow EMA) counted as a trend
	trendStrengthFloor = 0.2

	primaryVotesRequired    = 3
	confirmingVotesRequired = 2
)

// Evaluate reports whether the current frame fires a long entry given its
// predecessor. Any non-finite input fails closed.
func Evaluate(cur, prev indicators.Frame, rsiOversold, rsiOverbought float64) bool {
	if !finiteFrames(cur, prev) || prev.Close <= 0 {
		return false
	}

	primary := 0
	if cur.Close > cur.EmaFast && cur.EmaFast > cur.EmaSlow {
		primary++
	}
	if cur.Rsi > rsiOversold && cur.Rsi < rsiOverbought {
		primary++
	}
	if cur.MacdDiff > 0 {
		primary++
	}
	if cur.Close < cur.BBUpper && cur.Close > cur.BBMid {
		primary++
	}
	if cur.VolumeRatio > volumeSurgeRatio {
		primary++
	}
	if primary < primaryVotesRequired {
		return false
	}

	confirming := 0
	if cur.EmaFast-cur.EmaSlow > prev.EmaFast-prev.EmaSlow {
		confirming++
	}
	if cur.Rsi > prev.Rsi {
		confirming++
	}
	if cur.MacdDiff > prev.MacdDiff {
		confirming++
	}
	if cur.BBUpper-cur.BBLower > prev.BBUpper-prev.BBLower {
		confirming++
	}
	if cur.Close/prev.Close-1 >= momentumThreshold {
		confirming++
	}
	if cur.TrendStrength > trendStrengthFloor {
		confirming++
	}
	if cur.Volatility < cur.VolatilityMa {
		confirming++
	}
	return confirming >= confirmingVotesRequired
}

func finiteFrames(frames ...indicators.Frame) bool {
	for _, f := range frames {
		for _, v := range []float64{
			f.Close, f.EmaFast, f.EmaSlow, f.Rsi, f.MacdDiff,
			f.BBUpper, f.BBMid, f.BBLower, f.VolumeRatio,
			f.Volatility, f.VolatilityMa, f.TrendStrength,
		} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
