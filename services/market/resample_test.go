package market

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minuteCandle(t *testing.T, minute int, o, h, l, c, v int64) Candle {
	t.Helper()
	return Candle{
		Timestamp: int64(minute) * 60_000,
		Open:      decimal.NewFromInt(o),
		High:      decimal.NewFromInt(h),
		Low:       decimal.NewFromInt(l),
		Close:     decimal.NewFromInt(c),
		Volume:    decimal.NewFromInt(v),
	}
}

func TestResample(t *testing.T) {
	s, err := NewSeries("BTCUSDT", Spot, []Candle{
		minuteCandle(t, 0, 100, 105, 99, 102, 10),
		minuteCandle(t, 5, 102, 110, 101, 108, 20),
		minuteCandle(t, 10, 108, 109, 95, 97, 5),
		minuteCandle(t, 15, 97, 98, 96, 98, 7),
	})
	require.NoError(t, err)

	out, err := Resample(s, 15*time.Minute)
	require.NoError(t, err)
	require.Len(t, out.Candles, 2)

	first := out.Candles[0]
	assert.Equal(t, int64(0), first.Timestamp)
	assert.True(t, first.Open.Equal(decimal.NewFromInt(100)))
	assert.True(t, first.High.Equal(decimal.NewFromInt(110)))
	assert.True(t, first.Low.Equal(decimal.NewFromInt(95)))
	assert.True(t, first.Close.Equal(decimal.NewFromInt(97)))
	assert.True(t, first.Volume.Equal(decimal.NewFromInt(35)))

	second := out.Candles[1]
	assert.Equal(t, int64(15*60_000), second.Timestamp)
	assert.True(t, second.Close.Equal(decimal.NewFromInt(98)))
}

func TestResampleRejectsBadCadence(t *testing.T) {
	s, err := NewSeries("BTCUSDT", Spot, []Candle{
		minuteCandle(t, 0, 100, 100, 100, 100, 1),
		minuteCandle(t, 5, 100, 100, 100, 100, 1),
	})
	require.NoError(t, err)

	_, err = Resample(s, 90*time.Second)
	require.Error(t, err, "not a whole number of minutes")

	_, err = Resample(s, 7*time.Minute)
	require.Error(t, err, "not a multiple of the source step")
}

func TestWriteCSVRoundTrips(t *testing.T) {
	s, err := NewSeries("ETHUSDT", Spot, []Candle{
		minuteCandle(t, 0, 100, 105, 99, 102, 10),
		minuteCandle(t, 5, 102, 110, 101, 108, 20),
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, WriteCSV(s, path))

	loaded, err := LoadCSV(path, "ETHUSDT", Spot)
	require.NoError(t, err)
	require.Len(t, loaded.Candles, 2)
	assert.Equal(t, s.Candles[1].Timestamp, loaded.Candles[1].Timestamp)
	assert.True(t, loaded.Candles[1].High.Equal(decimal.NewFromInt(110)))
}
