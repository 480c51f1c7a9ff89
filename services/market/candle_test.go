package market

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candleAt(ts int64, px float64) Candle {
	d := decimal.NewFromFloat(px)
	return Candle{Timestamp: ts, Open: d, High: d, Low: d, Close: d, Volume: decimal.NewFromInt(1)}
}

func TestNewSeries(t *testing.T) {
	t.Run("accepts ascending timestamps with gaps", func(t *testing.T) {
		s, err := NewSeries("BTCUSDT", Spot, []Candle{
			candleAt(1000, 100), candleAt(2000, 101), candleAt(9000, 102),
		})
		require.NoError(t, err)
		assert.Len(t, s.Candles, 3)
	})

	t.Run("rejects non-monotonic timestamps", func(t *testing.T) {
		_, err := NewSeries("BTCUSDT", Spot, []Candle{
			candleAt(2000, 100), candleAt(1000, 101),
		})
		require.Error(t, err)
		var invalid *InvalidInputError
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("rejects duplicate timestamps", func(t *testing.T) {
		_, err := NewSeries("BTCUSDT", Spot, []Candle{
			candleAt(1000, 100), candleAt(1000, 101),
		})
		var invalid *InvalidInputError
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("rejects unknown market type", func(t *testing.T) {
		_, err := NewSeries("BTCUSDT", MarketType("margin"), nil)
		assert.Error(t, err)
	})
}

func TestCandleTime(t *testing.T) {
	c := candleAt(1700000000000, 100)
	assert.Equal(t, "2023-11-14", c.Date())
	assert.Equal(t, "UTC", c.Time().Location().String())
}

func TestSpanDays(t *testing.T) {
	s, err := NewSeries("BTCUSDT", Spot, []Candle{
		candleAt(0, 100),
		candleAt(36*60*60*1000, 101), // 1.5 days later
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, s.SpanDays(), 1e-9)
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "candles.csv")

	// out-of-order rows, one duplicate timestamp, one malformed row
	content := "timestamp,open,high,low,close,volume\n" +
		"2000,101,102,100,101.5,10\n" +
		"1000,100,101,99,100.5,12\n" +
		"2000,101,103,100,102,11\n" +
		"garbage,x,y,z,w,v\n" +
		"3000,102,104,101,103,9\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadCSV(path, "BTCUSDT", Spot)
	require.NoError(t, err)
	require.Len(t, s.Candles, 3)

	assert.Equal(t, int64(1000), s.Candles[0].Timestamp)
	assert.Equal(t, int64(2000), s.Candles[1].Timestamp)
	assert.Equal(t, int64(3000), s.Candles[2].Timestamp)
	// duplicate keeps the last row
	assert.True(t, s.Candles[1].Close.Equal(decimal.NewFromInt(102)))
}
