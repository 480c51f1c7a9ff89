package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTradeCountCeiling(t *testing.T) {
	l := NewDailyLimiter(2, 1.0, 3.0)
	l.StartDay()

	assert.True(t, l.AllowsEntry())
	l.RecordTrade(0.1)
	assert.True(t, l.AllowsEntry())
	l.RecordTrade(0.1)
	assert.False(t, l.AllowsEntry())
	assert.Equal(t, 2, l.TradeCount())
}

func TestLossStop(t *testing.T) {
	l := NewDailyLimiter(10, 1.0, 3.0)
	l.StartDay()

	l.RecordTrade(-0.5)
	assert.True(t, l.AllowsEntry())
	l.RecordTrade(-0.5) // cumulative exactly -1.0 hits the stop
	assert.False(t, l.AllowsEntry())
	assert.InDelta(t, -1.0, l.PnlPct(), 1e-9)
}

func TestTargetLatchesOnClose(t *testing.T) {
	l := NewDailyLimiter(10, 1.0, 3.0)
	l.StartDay()

	l.RecordTrade(2.9)
	assert.True(t, l.AllowsEntry())
	l.RecordTrade(0.2)
	assert.False(t, l.AllowsEntry())

	// a later loss does not un-latch the target
	l.RecordTrade(-2.0)
	assert.False(t, l.AllowsEntry())
}

func TestStartDayResets(t *testing.T) {
	l := NewDailyLimiter(1, 1.0, 3.0)
	l.StartDay()
	l.RecordTrade(3.5)
	assert.False(t, l.AllowsEntry())

	l.StartDay()
	assert.True(t, l.AllowsEntry())
	assert.Equal(t, 0, l.TradeCount())
	assert.Zero(t, l.PnlPct())
}
