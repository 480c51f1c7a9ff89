package fees

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-sim/services/market"
)

func TestNewModelDefaults(t *testing.T) {
	t.Run("spot", func(t *testing.T) {
		m := NewModel(market.Spot, 0, 0, 0)
		assert.True(t, m.MakerRate.Equal(decimal.NewFromFloat(0.0002)))
		assert.True(t, m.TakerRate.Equal(decimal.NewFromFloat(0.0004)))
		assert.True(t, m.SlippageRate.Equal(decimal.NewFromFloat(0.0001)))
		assert.Equal(t, Taker, m.EntryRole)
		assert.Equal(t, Maker, m.ExitRole)
	})

	t.Run("futures", func(t *testing.T) {
		m := NewModel(market.Futures, 0, 0, 0)
		assert.True(t, m.MakerRate.Equal(decimal.NewFromFloat(0.0001)))
		assert.True(t, m.TakerRate.Equal(decimal.NewFromFloat(0.0004)))
	})
}

func TestNewModelOverrides(t *testing.T) {
	m := NewModel(market.Futures, 0.001, 0.002, 5)
	assert.True(t, m.MakerRate.Equal(decimal.NewFromFloat(0.001)))
	assert.True(t, m.TakerRate.Equal(decimal.NewFromFloat(0.002)))
	// slippage override passed in basis points
	assert.True(t, m.SlippageRate.Equal(decimal.NewFromFloat(0.0005)),
		"got %s", m.SlippageRate)
}

func TestLegCosts(t *testing.T) {
	m := NewModel(market.Futures, 0, 0, 0)
	notional := decimal.NewFromInt(10_000)

	// entry is taker: (0.0004 + 0.0001) * 10000 = 5
	entry := m.EntryCost(notional)
	require.True(t, entry.Equal(decimal.NewFromInt(5)), "got %s", entry)

	// exit is maker: (0.0001 + 0.0001) * 10000 = 2
	exit := m.ExitCost(notional)
	require.True(t, exit.Equal(decimal.NewFromInt(2)), "got %s", exit)
}

func TestRolesAreConfigurable(t *testing.T) {
	m := NewModel(market.Futures, 0, 0, 0)
	m.EntryRole = Maker
	m.ExitRole = Taker
	notional := decimal.NewFromInt(10_000)

	assert.True(t, m.EntryCost(notional).Equal(decimal.NewFromInt(2)))
	assert.True(t, m.ExitCost(notional).Equal(decimal.NewFromInt(5)))
}
