// Package backtest replays a trading strategy candle-by-candle over a
// validated series and produces a deterministic run record: trade ledger,
// daily and monthly aggregates, and performance metrics.
package backtest

import (
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"backtest-sim/services/fees"
	"backtest-sim/services/indicators"
	"backtest-sim/services/market"
	"backtest-sim/services/risk"
	"backtest-sim/services/signal"
)

// SignalFunc decides whether a frame pair fires an entry. Overridable for
// tests; defaults to the production voting evaluator.
type SignalFunc func(cur, prev indicators.Frame, rsiOversold, rsiOverbought float64) bool

// Engine owns the running capital and the ledger for the duration of one
// run. It is single-threaded and performs no I/O; run many engines in
// parallel from the caller side for sweeps.
type Engine struct {
	params Parameters
	Signal SignalFunc
}

// NewEngine builds an engine for one market type. Parameters are normalized
// (clamped) once here.
func NewEngine(p Parameters, mt market.MarketType) *Engine {
	return &Engine{
		params: p.Normalize(mt),
		Signal: signal.Evaluate,
	}
}

// Parameters returns the normalized parameter set the engine runs with.
func (e *Engine) Parameters() Parameters { return e.params }

// dayContext is the immutable per-day view the fold works on: a half-open
// frame index range plus the capital the day started with.
type dayContext struct {
	date         string
	start, end   int
	startCapital decimal.Decimal
}

// Run replays the strategy over the series. A series shorter than the
// indicator warm-up yields a valid, trade-less run. The only error case is
// a malformed series.
func (e *Engine) Run(series *market.Series) (*Run, error) {
	// Re-validate ordering: the engine fails fast rather than repairing.
	if _, err := market.NewSeries(series.Symbol, series.Market, series.Candles); err != nil {
		return nil, err
	}

	p := e.params
	frameSet := indicators.Compute(series, indicators.Config{
		EmaFastPeriod: p.EmaFastPeriod,
		EmaSlowPeriod: p.EmaSlowPeriod,
		RsiPeriod:     p.RsiPeriod,
	})

	feeModel := fees.NewModel(series.Market, p.MakerFeeRate, p.TakerFeeRate, p.SlippageBps)
	feeModel.EntryRole = p.EntryFeeRole
	feeModel.ExitRole = p.ExitFeeRole
	sim := newPositionSimulator(p, series.Market, feeModel)
	limiter := risk.NewDailyLimiter(p.MaxDailyTrades, p.MaxDailyLossPct, p.DailyTargetPct)

	run := &Run{
		Symbol:         series.Symbol,
		Market:         string(series.Market),
		InitialCapital: p.initialCapital(),
		MonthlyResults: make(map[string]*MonthlyResult),
	}

	capital := run.InitialCapital
	var netPnlSum, feeSum decimal.Decimal
	var winning, losing, total int

	for _, day := range groupByDay(frameSet.Frames) {
		ctx := dayContext{
			date:         day.date,
			start:        day.start,
			end:          day.end,
			startCapital: capital,
		}
		limiter.StartDay()

		for i := ctx.start; i < ctx.end; i++ {
			if i == 0 {
				continue // the first tradable frame has no predecessor
			}
			if !limiter.AllowsEntry() {
				break
			}
			if !e.Signal(frameSet.Frames[i], frameSet.Frames[i-1], p.RsiOversold, p.RsiOverbought) {
				continue
			}

			trade, exitIdx, ok := sim.simulateTrade(frameSet.Candles, i, ctx.end, capital)
			if !ok {
				continue
			}

			capital = trade.CapitalAfter
			netPnlSum = netPnlSum.Add(trade.NetPnl)
			feeSum = feeSum.Add(trade.FeeEntry).Add(trade.FeeExit)
			total++
			if trade.NetPnl.GreaterThan(decimal.Zero) {
				winning++
			} else {
				losing++
			}
			if p.CollectTrades {
				run.TradeLog = append(run.TradeLog, trade)
			}

			limiter.RecordTrade(dayRelativePct(trade.NetPnl, ctx.startCapital))

			// The position was resolved scanning forward; resume entry
			// evaluation after its exit candle.
			i = exitIdx
		}

		if limiter.TradeCount() > 0 {
			daily := DailyResult{
				Date:       ctx.date,
				PnlPct:     dayRelativePct(capital.Sub(ctx.startCapital), ctx.startCapital),
				TradeCount: limiter.TradeCount(),
				CapitalEnd: capital,
			}
			run.DailyResults = append(run.DailyResults, daily)

			monthKey := ctx.date[:7] // YYYY-MM
			m := run.MonthlyResults[monthKey]
			if m == nil {
				m = &MonthlyResult{}
				run.MonthlyResults[monthKey] = m
			}
			m.PnlPctSum += daily.PnlPct
			m.TradeCountSum += daily.TradeCount
		}
	}

	run.FinalCapital = capital
	run.TotalTrades = total
	run.WinningTrades = winning
	run.LosingTrades = losing
	run.TotalFees = feeSum
	if total > 0 {
		run.WinRatePct = float64(winning) / float64(total) * 100
		run.AvgProfit = netPnlSum.Div(decimal.NewFromInt(int64(total)))
	}
	if run.InitialCapital.GreaterThan(decimal.Zero) {
		run.TotalReturnPct = dayRelativePct(capital.Sub(run.InitialCapital), run.InitialCapital)
	}

	attachMetrics(run, series.SpanDays())

	log.WithFields(log.Fields{
		"symbol":  series.Symbol,
		"market":  series.Market,
		"trades":  run.TotalTrades,
		"capital": run.FinalCapital,
	}).Info("backtest finished")

	return run, nil
}

type dayRange struct {
	date       string
	start, end int
}

// groupByDay splits the frame sequence into contiguous UTC-date ranges.
func groupByDay(frames []indicators.Frame) []dayRange {
	var days []dayRange
	for i := 0; i < len(frames); {
		date := dateOfMillis(frames[i].Timestamp)
		j := i + 1
		for j < len(frames) && dateOfMillis(frames[j].Timestamp) == date {
			j++
		}
		days = append(days, dayRange{date: date, start: i, end: j})
		i = j
	}
	return days
}

func dateOfMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}

func timeFromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// dayRelativePct expresses a capital delta as a percentage of a base.
func dayRelativePct(delta, base decimal.Decimal) float64 {
	if base.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	return delta.Div(base).Mul(dHundred).InexactFloat64()
}
