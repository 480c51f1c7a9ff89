package signal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"backtest-sim/services/indicators"
)

// firingPair builds a frame pair with exactly 3 primary and 2 confirming
// conditions true: trend-up, RSI in band, positive MACD histogram
// (primaries), EMA gap widening and RSI rising (confirmations).
func firingPair() (cur, prev indicators.Frame) {
	// prev carries a narrower EMA gap and lower RSI than cur (the two
	// confirmations), a larger MACD histogram and a wider band (so MACD
	// rising and band widening do not confirm).
	prev = indicators.Frame{
		Close:         101,
		EmaFast:       100.3,
		EmaSlow:       100,
		Rsi:           45,
		MacdDiff:      0.6,
		BBUpper:       104,
		BBMid:         102,
		BBLower:       100,
		VolumeRatio:   1.0,
		Volatility:    0.5,
		VolatilityMa:  0.4,
		TrendStrength: 0.1,
	}
	// cur fails the remaining votes: flat close (no momentum), close below
	// the Bollinger midline, no volume surge, volatility above its MA,
	// trend strength under the floor, MACD histogram shrinking.
	cur = indicators.Frame{
		Close:         101,
		EmaFast:       100.5,
		EmaSlow:       100,
		Rsi:           50,
		MacdDiff:      0.5,
		BBUpper:       103,
		BBMid:         102,
		BBLower:       101,
		VolumeRatio:   1.0,
		Volatility:    0.5,
		VolatilityMa:  0.4,
		TrendStrength: 0.1,
	}
	return cur, prev
}

func TestEvaluateFires(t *testing.T) {
	cur, prev := firingPair()
	assert.True(t, Evaluate(cur, prev, 35, 65))
}

func TestEvaluateNeedsThreePrimaries(t *testing.T) {
	cur, prev := firingPair()
	cur.MacdDiff = -0.1 // down to 2 of 5
	assert.False(t, Evaluate(cur, prev, 35, 65))
}

func TestEvaluateNeedsTwoConfirmations(t *testing.T) {
	cur, prev := firingPair()
	prev.Rsi = 55 // RSI no longer rising: down to 1 of 7
	assert.False(t, Evaluate(cur, prev, 35, 65))
}

func TestEvaluateRsiBandIsExclusive(t *testing.T) {
	cur, prev := firingPair()
	cur.Rsi = 65 // at the overbought bound: primary 2 fails, 2 of 5 left
	prev.Rsi = 60
	assert.False(t, Evaluate(cur, prev, 35, 65))
}

func TestEvaluateVolumeSurgeThreshold(t *testing.T) {
	cur, prev := firingPair()
	cur.MacdDiff = -0.1 // drop one primary
	cur.VolumeRatio = 1.21
	// the volume surge regains the third vote
	assert.True(t, Evaluate(cur, prev, 35, 65))

	cur.VolumeRatio = 1.2 // exactly at the threshold does not count
	assert.False(t, Evaluate(cur, prev, 35, 65))
}

func TestEvaluateMomentumThreshold(t *testing.T) {
	cur, prev := firingPair()
	prev.Rsi = 55 // remove the RSI confirmation
	cur.Close = prev.Close * 1.0006
	// the momentum gain replaces it
	assert.True(t, Evaluate(cur, prev, 35, 65))
}

func TestEvaluateFailsClosedOnNonFinite(t *testing.T) {
	cur, prev := firingPair()
	cur.MacdDiff = math.NaN()
	assert.False(t, Evaluate(cur, prev, 35, 65))

	cur, prev = firingPair()
	prev.BBLower = math.Inf(-1)
	assert.False(t, Evaluate(cur, prev, 35, 65))

	cur, prev = firingPair()
	prev.Close = 0
	assert.False(t, Evaluate(cur, prev, 35, 65))
}
