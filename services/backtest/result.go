package backtest

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitTakeProfit ExitReason = "TP"
	ExitStopLoss   ExitReason = "SL"
	ExitEndOfDay   ExitReason = "EOD"
)

// Trade is the immutable record of a closed position.
type Trade struct {
	Date       string
	Side       string
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	Units      decimal.Decimal
	GrossPnl   decimal.Decimal
	NetPnl     decimal.Decimal
	PnlPct     decimal.Decimal // relative to committed margin/cost
	FeeEntry   decimal.Decimal
	FeeExit    decimal.Decimal
	// CapitalAfter is the account capital immediately after the close.
	CapitalAfter decimal.Decimal
	Leverage     int
	ExitReason   ExitReason
}

// DailyResult summarizes one trading day that had at least one trade.
type DailyResult struct {
	Date       string
	PnlPct     float64
	TradeCount int
	CapitalEnd decimal.Decimal
}

// MonthlyResult aggregates daily results by calendar month.
type MonthlyResult struct {
	PnlPctSum     float64
	TradeCountSum int
}

// Run is the aggregate result of one simulation. It is mutated only by the
// engine during the single pass and frozen once metrics are attached.
type Run struct {
	Symbol string
	Market string

	InitialCapital decimal.Decimal
	FinalCapital   decimal.Decimal
	TotalReturnPct float64

	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRatePct    float64
	TotalFees     decimal.Decimal
	AvgProfit     decimal.Decimal

	DailyResults   []DailyResult
	MonthlyResults map[string]*MonthlyResult

	MaxDrawdown  float64
	Sharpe       float64
	Sortino      float64
	ProfitFactor float64
	Cagr         float64

	// TradeLog is populated only when Parameters.CollectTrades is set.
	TradeLog []Trade
}
