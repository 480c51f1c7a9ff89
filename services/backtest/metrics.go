package backtest

import (
	"math"

	"github.com/montanaflynn/stats"
)

const tradingDaysPerYear = 252

// attachMetrics post-processes the daily series into risk/return metrics
// and freezes them on the run. All metrics are lenient: bad or empty inputs
// produce the documented 0 / +Inf sentinels, never an error.
func attachMetrics(run *Run, spanDays float64) {
	returns := make([]float64, len(run.DailyResults))
	equity := make([]float64, len(run.DailyResults))
	for i, d := range run.DailyResults {
		returns[i] = d.PnlPct / 100
		equity[i] = d.CapitalEnd.InexactFloat64()
	}

	run.MaxDrawdown = MaxDrawdown(run.InitialCapital.InexactFloat64(), equity)
	run.Sharpe = SharpeRatio(returns)
	run.Sortino = SortinoRatio(returns)
	run.ProfitFactor = ProfitFactor(returns)
	run.Cagr = Cagr(run.InitialCapital.InexactFloat64(), run.FinalCapital.InexactFloat64(), spanDays)
}

// MaxDrawdown returns the most negative percentage decline from the running
// equity peak, seeded with the initial capital. 0 means the curve never went
// underwater.
func MaxDrawdown(initial float64, equity []float64) float64 {
	peak := initial
	dd := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			d := (v - peak) / peak * 100
			if d < dd {
				dd = d
			}
		}
	}
	return dd
}

// SharpeRatio annualizes mean daily return over sample standard deviation.
// Returns 0 with no data or zero dispersion.
func SharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, err := stats.Mean(returns)
	if err != nil {
		return 0
	}
	sd, err := stats.StandardDeviationSample(returns)
	if err != nil || sd == 0 {
		return 0
	}
	return mean * tradingDaysPerYear / (sd * math.Sqrt(tradingDaysPerYear))
}

// SortinoRatio is Sharpe with the denominator restricted to downside
// (negative) returns.
func SortinoRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, err := stats.Mean(returns)
	if err != nil {
		return 0
	}
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) < 2 {
		return 0
	}
	sd, err := stats.StandardDeviationSample(downside)
	if err != nil || sd == 0 {
		return 0
	}
	return mean * tradingDaysPerYear / (sd * math.Sqrt(tradingDaysPerYear))
}

// ProfitFactor is the sum of positive returns over the magnitude of negative
// returns: +Inf with gains and no losses, 0 with no data. Callers must
// handle the +Inf sentinel.
func ProfitFactor(returns []float64) float64 {
	var gains, losses float64
	for _, r := range returns {
		if r > 0 {
			gains += r
		} else {
			losses += -r
		}
	}
	if losses == 0 {
		if gains > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return gains / losses
}

// Cagr is the compound annual growth rate over the backtest span. 0 when
// the span or initial capital is degenerate.
func Cagr(initial, final, spanDays float64) float64 {
	if spanDays <= 0 || initial <= 0 {
		return 0
	}
	return math.Pow(final/initial, 365.25/spanDays) - 1
}
