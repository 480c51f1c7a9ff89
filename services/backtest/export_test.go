package backtest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-sim/services/market"
)

func collectedRun(t *testing.T) *Run {
	t.Helper()
	p := DefaultParameters(market.Futures)
	p.CollectTrades = true
	eng := NewEngine(p, market.Futures)
	eng.Signal = fireAt(tsOf(22))

	run, err := eng.Run(tpSeries(t, market.Futures))
	require.NoError(t, err)
	require.Len(t, run.TradeLog, 1)
	return run
}

func TestWriteTradeLogCSV(t *testing.T) {
	run := collectedRun(t)

	var buf bytes.Buffer
	require.NoError(t, WriteTradeLogCSV(run, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, "header plus one trade")
	assert.Equal(t,
		"date,side,entry_time,exit_time,entry_price,exit_price,units,pnl_usdt,pnl_pct,fees_entry,fees_exit,capital_after,leverage,exit_reason",
		strings.TrimSpace(lines[0]))

	row := lines[1]
	assert.Contains(t, row, "2024-03-01")
	assert.Contains(t, row, "long")
	assert.Contains(t, row, "101.50000000")
	assert.Contains(t, row, ",TP")
}

func TestRenderSummary(t *testing.T) {
	run := collectedRun(t)

	var buf bytes.Buffer
	RenderSummary(run, &buf)

	out := buf.String()
	assert.Contains(t, out, "BTCUSDT (futures)")
	assert.Contains(t, out, "1,057.19")
	assert.Contains(t, out, "Profit factor")
	assert.Contains(t, out, "inf", "single winning day has no losses")
}

func TestRenderMonthly(t *testing.T) {
	run := collectedRun(t)

	var buf bytes.Buffer
	RenderMonthly(run, &buf)
	assert.Contains(t, buf.String(), "2024-03")
}
