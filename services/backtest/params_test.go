package backtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-sim/services/fees"
	"backtest-sim/services/market"
)

func TestDefaultParameters(t *testing.T) {
	spot := DefaultParameters(market.Spot)
	assert.Equal(t, 1, spot.Leverage)
	assert.Equal(t, 1000.0, spot.InitialCapital)
	assert.Equal(t, 5, spot.MaxDailyTrades)

	futures := DefaultParameters(market.Futures)
	assert.Equal(t, 10, futures.Leverage)
}

func TestNormalizeClampsRanges(t *testing.T) {
	t.Run("futures leverage", func(t *testing.T) {
		p := DefaultParameters(market.Futures)
		p.Leverage = 0
		assert.Equal(t, 1, p.Normalize(market.Futures).Leverage)

		p.Leverage = 200
		assert.Equal(t, 125, p.Normalize(market.Futures).Leverage)
	})

	t.Run("spot leverage is forced to 1", func(t *testing.T) {
		p := DefaultParameters(market.Spot)
		p.Leverage = 25
		assert.Equal(t, 1, p.Normalize(market.Spot).Leverage)
	})

	t.Run("daily trade cap", func(t *testing.T) {
		p := DefaultParameters(market.Futures)
		p.MaxDailyTrades = 0
		assert.Equal(t, 1, p.Normalize(market.Futures).MaxDailyTrades)

		p.MaxDailyTrades = 99
		assert.Equal(t, 50, p.Normalize(market.Futures).MaxDailyTrades)
	})

	t.Run("fee roles default to taker entry, maker exit", func(t *testing.T) {
		p := Parameters{}.Normalize(market.Futures)
		assert.Equal(t, fees.Taker, p.EntryFeeRole)
		assert.Equal(t, fees.Maker, p.ExitFeeRole)
	})
}

func TestLoadParameters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"initial_capital: 5000\nstop_loss: 0.8\nleverage: 300\nentry_fee_role: maker\n",
	), 0o644))

	p, err := LoadParameters(path, market.Futures)
	require.NoError(t, err)

	assert.Equal(t, 5000.0, p.InitialCapital)
	assert.Equal(t, 0.8, p.StopLossPct)
	assert.Equal(t, 125, p.Leverage, "normalized on load")
	assert.Equal(t, fees.Role("maker"), p.EntryFeeRole)
	// untouched keys keep their defaults
	assert.Equal(t, 1.5, p.TakeProfitPct)
}

func TestLoadParametersMissingFile(t *testing.T) {
	_, err := LoadParameters(filepath.Join(t.TempDir(), "absent.yaml"), market.Spot)
	require.Error(t, err)
}
