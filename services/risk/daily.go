// Package risk caps intraday activity: a trade-count ceiling, a same-day
// loss stop, and a "take today's win and stop" target.
package risk

// DailyLimiter tracks one trading day at a time. Reset it at each day
// boundary with StartDay.
type DailyLimiter struct {
	maxTrades  int
	maxLossPct float64
	targetPct  float64

	tradeCount int
	pnlPct     float64
	targetHit  bool
}

func NewDailyLimiter(maxTrades int, maxLossPct, targetPct float64) *DailyLimiter {
	return &DailyLimiter{
		maxTrades:  maxTrades,
		maxLossPct: maxLossPct,
		targetPct:  targetPct,
	}
}

// StartDay resets all per-day state.
func (l *DailyLimiter) StartDay() {
	l.tradeCount = 0
	l.pnlPct = 0
	l.targetHit = false
}

// AllowsEntry reports whether a new entry may be evaluated. Entries stop for
// the day once the trade cap is reached, the loss stop triggers, or the
// daily target has latched.
func (l *DailyLimiter) AllowsEntry() bool {
	if l.tradeCount >= l.maxTrades {
		return false
	}
	if l.pnlPct <= -l.maxLossPct {
		return false
	}
	return !l.targetHit
}

// RecordTrade accumulates a closed trade's day-relative pnl percentage. The
// target stop is only evaluated here, after a close — never intra-trade.
func (l *DailyLimiter) RecordTrade(pnlPct float64) {
	l.tradeCount++
	l.pnlPct += pnlPct
	if l.pnlPct >= l.targetPct {
		l.targetHit = true
	}
}

// TradeCount returns the number of trades closed so far today.
func (l *DailyLimiter) TradeCount() int { return l.tradeCount }

// PnlPct returns today's accumulated pnl percentage.
func (l *DailyLimiter) PnlPct() float64 { return l.pnlPct }
