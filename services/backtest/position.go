package backtest

import (
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"backtest-sim/services/fees"
	"backtest-sim/services/market"
)

var (
	dOne     = decimal.NewFromInt(1)
	dHundred = decimal.NewFromInt(100)
	dUsage   = decimal.NewFromFloat(capitalUsageLimit)
)

// position is the transient state of one open trade. It exists only between
// entry and exit inside a single simulateTrade call.
type position struct {
	entryPrice   decimal.Decimal
	entryTime    int64
	units        decimal.Decimal
	notional     decimal.Decimal
	marginOrCost decimal.Decimal
	entryFee     decimal.Decimal
	stopLoss     decimal.Decimal
	takeProfit   decimal.Decimal
	trailingStop decimal.Decimal
	maxPriceSeen decimal.Decimal
}

// positionSimulator owns entry sizing and the intrabar exit scan for one
// position at a time.
type positionSimulator struct {
	market   market.MarketType
	fees     *fees.Model
	leverage decimal.Decimal

	riskPerTrade decimal.Decimal // fraction of capital risked per entry
	stopLossFrac decimal.Decimal
	takeProfFrac decimal.Decimal
	trailingFrac decimal.Decimal

	leverageInt int
}

func newPositionSimulator(p Parameters, mt market.MarketType, fm *fees.Model) *positionSimulator {
	return &positionSimulator{
		market:       mt,
		fees:         fm,
		leverage:     decimal.NewFromInt(int64(p.Leverage)),
		leverageInt:  p.Leverage,
		riskPerTrade: decimal.NewFromFloat(p.RiskPerTradePct).Div(dHundred),
		stopLossFrac: decimal.NewFromFloat(p.StopLossPct).Div(dHundred),
		takeProfFrac: decimal.NewFromFloat(p.TakeProfitPct).Div(dHundred),
		trailingFrac: decimal.NewFromFloat(p.TrailingStopPct).Div(dHundred),
	}
}

// simulateTrade opens a position at the entry candle's close and resolves it
// against the remaining candles of the same day. It returns the closed
// trade, the index of the exit candle, and false when the signal had to be
// skipped (undersized position or insufficient capital) — a frequent,
// non-error outcome under tight risk settings.
//
// candles[entryIdx:dayEnd] all belong to one trading day; a position never
// survives past dayEnd.
func (ps *positionSimulator) simulateTrade(candles []market.Candle, entryIdx, dayEnd int, capital decimal.Decimal) (Trade, int, bool) {
	pos, ok := ps.enter(candles[entryIdx], capital)
	if !ok {
		return Trade{}, entryIdx, false
	}

	exitIdx := dayEnd - 1
	exitPrice := candles[exitIdx].Close
	reason := ExitEndOfDay

	for j := entryIdx + 1; j < dayEnd; j++ {
		c := candles[j]

		if c.High.GreaterThan(pos.maxPriceSeen) {
			pos.maxPriceSeen = c.High
		}
		pos.trailingStop = pos.maxPriceSeen.Mul(dOne.Sub(ps.trailingFrac))

		// Take-profit is checked before the stop: when one candle's range
		// spans both levels, TP wins. Documented source behavior; do not
		// reorder without product sign-off.
		if c.High.GreaterThanOrEqual(pos.takeProfit) {
			exitIdx, exitPrice, reason = j, pos.takeProfit, ExitTakeProfit
			break
		}
		effectiveStop := decimal.Min(pos.stopLoss, pos.trailingStop)
		if c.Low.LessThanOrEqual(effectiveStop) {
			exitIdx, exitPrice, reason = j, decimal.Max(pos.stopLoss, pos.trailingStop), ExitStopLoss
			break
		}
	}

	return ps.close(pos, candles[exitIdx], exitPrice, reason, capital), exitIdx, true
}

// enter sizes and opens a position at the candle close. Position size is
// risk-budget over stop distance; the committed capital (full cost on spot,
// notional/leverage on futures) is capped at 95% of capital by scaling the
// position down rather than rejecting it.
func (ps *positionSimulator) enter(c market.Candle, capital decimal.Decimal) (*position, bool) {
	entryPrice := c.Close
	if entryPrice.LessThanOrEqual(decimal.Zero) {
		return nil, false
	}

	stopDistance := entryPrice.Mul(ps.stopLossFrac)
	if stopDistance.LessThanOrEqual(decimal.Zero) {
		return nil, false
	}

	riskBudget := capital.Mul(ps.riskPerTrade)
	units := riskBudget.Div(stopDistance)
	notional := units.Mul(entryPrice)

	commitment := notional
	if ps.market == market.Futures {
		commitment = notional.Div(ps.leverage)
	}

	maxCommitment := capital.Mul(dUsage)
	if commitment.GreaterThan(maxCommitment) {
		scale := maxCommitment.Div(commitment)
		units = units.Mul(scale)
		notional = notional.Mul(scale)
		commitment = maxCommitment
	}

	entryFee := ps.fees.EntryCost(notional)
	if units.LessThanOrEqual(decimal.Zero) || commitment.Add(entryFee).GreaterThan(capital) {
		log.WithFields(log.Fields{
			"time":    c.Time(),
			"capital": capital,
		}).Debug("entry skipped: scaled position cannot clear entry cost")
		return nil, false
	}

	return &position{
		entryPrice:   entryPrice,
		entryTime:    c.Timestamp,
		units:        units,
		notional:     notional,
		marginOrCost: commitment,
		entryFee:     entryFee,
		stopLoss:     entryPrice.Mul(dOne.Sub(ps.stopLossFrac)),
		takeProfit:   entryPrice.Mul(dOne.Add(ps.takeProfFrac)),
		trailingStop: entryPrice.Mul(dOne.Sub(ps.trailingFrac)),
		maxPriceSeen: entryPrice,
	}, true
}

// close converts an open position into a Trade record. Exit fees are
// charged on the gross proceeds.
func (ps *positionSimulator) close(pos *position, exitCandle market.Candle, exitPrice decimal.Decimal, reason ExitReason, capitalBefore decimal.Decimal) Trade {
	exitNotional := pos.units.Mul(exitPrice)
	exitFee := ps.fees.ExitCost(exitNotional)
	grossPnl := exitPrice.Sub(pos.entryPrice).Mul(pos.units)

	var netPnl decimal.Decimal
	if ps.market == market.Futures {
		netPnl = grossPnl.Sub(pos.entryFee).Sub(exitFee)
	} else {
		netPnl = exitNotional.Sub(exitFee).Sub(pos.marginOrCost.Add(pos.entryFee))
	}

	pnlPct := decimal.Zero
	if pos.marginOrCost.GreaterThan(decimal.Zero) {
		pnlPct = netPnl.Div(pos.marginOrCost).Mul(dHundred)
	}

	return Trade{
		Date:         exitCandle.Date(),
		Side:         "long",
		EntryTime:    timeFromMillis(pos.entryTime),
		ExitTime:     exitCandle.Time(),
		EntryPrice:   pos.entryPrice,
		ExitPrice:    exitPrice,
		Units:        pos.units,
		GrossPnl:     grossPnl,
		NetPnl:       netPnl,
		PnlPct:       pnlPct,
		FeeEntry:     pos.entryFee,
		FeeExit:      exitFee,
		CapitalAfter: capitalBefore.Add(netPnl),
		Leverage:     ps.leverageInt,
		ExitReason:   reason,
	}
}
