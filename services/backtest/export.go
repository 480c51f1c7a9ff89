package backtest

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const timeLayout = "2006-01-02T15:04:05.000Z"

// TradeRow is the flat, export-ready projection of a Trade.
type TradeRow struct {
	Date       string `csv:"date"`
	Side       string `csv:"side"`
	EntryTime  string `csv:"entry_time"`
	ExitTime   string `csv:"exit_time"`
	EntryPrice string `csv:"entry_price"`
	ExitPrice  string `csv:"exit_price"`
	Units      string `csv:"units"`
	PnlUsdt    string `csv:"pnl_usdt"`
	PnlPct     string `csv:"pnl_pct"`
	FeesEntry  string `csv:"fees_entry"`
	FeesExit   string `csv:"fees_exit"`
	CapAfter   string `csv:"capital_after"`
	Leverage   int    `csv:"leverage"`
	ExitReason string `csv:"exit_reason"`
}

// TradeRows projects the run's trade log into export rows.
func TradeRows(run *Run) []*TradeRow {
	rows := make([]*TradeRow, 0, len(run.TradeLog))
	for _, t := range run.TradeLog {
		rows = append(rows, &TradeRow{
			Date:       t.Date,
			Side:       t.Side,
			EntryTime:  t.EntryTime.Format(timeLayout),
			ExitTime:   t.ExitTime.Format(timeLayout),
			EntryPrice: t.EntryPrice.StringFixed(8),
			ExitPrice:  t.ExitPrice.StringFixed(8),
			Units:      t.Units.StringFixed(8),
			PnlUsdt:    t.NetPnl.StringFixed(8),
			PnlPct:     t.PnlPct.StringFixed(4),
			FeesEntry:  t.FeeEntry.StringFixed(8),
			FeesExit:   t.FeeExit.StringFixed(8),
			CapAfter:   t.CapitalAfter.StringFixed(8),
			Leverage:   t.Leverage,
			ExitReason: string(t.ExitReason),
		})
	}
	return rows
}

// WriteTradeLogCSV writes the trade ledger as CSV. The run must have been
// produced with CollectTrades set.
func WriteTradeLogCSV(run *Run, w io.Writer) error {
	if err := gocsv.Marshal(TradeRows(run), w); err != nil {
		return fmt.Errorf("failed to write trade log: %w", err)
	}
	return nil
}

// RenderSummary prints the run's headline numbers as a two-column table.
func RenderSummary(run *Run, w io.Writer) {
	p := message.NewPrinter(language.English)

	table := tablewriter.NewWriter(w)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnSeparator("")

	pf := "inf"
	if !math.IsInf(run.ProfitFactor, 1) {
		pf = p.Sprintf("%.2f", run.ProfitFactor)
	}

	rows := [][]string{
		{"Symbol", fmt.Sprintf("%s (%s)", run.Symbol, run.Market)},
		{"Initial capital", p.Sprintf("%.2f", run.InitialCapital.InexactFloat64())},
		{"Final capital", p.Sprintf("%.2f", run.FinalCapital.InexactFloat64())},
		{"Total return", p.Sprintf("%.2f%%", run.TotalReturnPct)},
		{"Trades", p.Sprintf("%d (%d W / %d L)", run.TotalTrades, run.WinningTrades, run.LosingTrades)},
		{"Win rate", p.Sprintf("%.1f%%", run.WinRatePct)},
		{"Total fees", p.Sprintf("%.4f", run.TotalFees.InexactFloat64())},
		{"Avg profit", p.Sprintf("%.4f", run.AvgProfit.InexactFloat64())},
		{"Max drawdown", p.Sprintf("%.2f%%", run.MaxDrawdown)},
		{"Sharpe", p.Sprintf("%.3f", run.Sharpe)},
		{"Sortino", p.Sprintf("%.3f", run.Sortino)},
		{"Profit factor", pf},
		{"CAGR", p.Sprintf("%.2f%%", run.Cagr*100)},
	}
	for _, r := range rows {
		table.Append(r)
	}
	table.Render()
}

// RenderMonthly prints the monthly aggregates sorted by month for
// deterministic output.
func RenderMonthly(run *Run, w io.Writer) {
	months := make([]string, 0, len(run.MonthlyResults))
	for m := range run.MonthlyResults {
		months = append(months, m)
	}
	sort.Strings(months)

	p := message.NewPrinter(language.English)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Month", "PnL %", "Trades"})
	for _, m := range months {
		agg := run.MonthlyResults[m]
		table.Append([]string{m, p.Sprintf("%.2f", agg.PnlPctSum), p.Sprintf("%d", agg.TradeCountSum)})
	}
	table.Render()
}

// RenderTradeLog prints the trade ledger as a table.
func RenderTradeLog(run *Run, w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Date", "Side", "Entry", "Exit", "Units", "PnL", "PnL %", "Reason"})
	for _, t := range run.TradeLog {
		table.Append([]string{
			t.Date,
			t.Side,
			t.EntryPrice.StringFixed(2),
			t.ExitPrice.StringFixed(2),
			t.Units.StringFixed(6),
			t.NetPnl.StringFixed(4),
			t.PnlPct.StringFixed(2),
			string(t.ExitReason),
		})
	}
	table.Render()
}
