package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MarketType tags a whole candle series as spot or margined futures.
type MarketType string

const (
	Spot    MarketType = "spot"
	Futures MarketType = "futures"
)

// Candle is a single OHLCV bar. Timestamp is the bar open time in
// milliseconds since epoch, UTC.
type Candle struct {
	Timestamp int64
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// Time returns the bar open time in UTC.
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.Timestamp).UTC()
}

// Date returns the UTC trading date of the bar.
func (c Candle) Date() string {
	return c.Time().Format("2006-01-02")
}

// InvalidInputError reports a malformed candle series. Ordering problems are
// the data provider's to fix; the simulation core refuses them outright.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid candle series: %s", e.Reason)
}

// Series is a validated, immutable OHLCV sequence for one symbol.
type Series struct {
	Symbol  string
	Market  MarketType
	Candles []Candle
}

// NewSeries validates ordering and builds a series. Timestamps must be
// strictly ascending; gaps are permitted (exchanges skip empty bars).
func NewSeries(symbol string, market MarketType, candles []Candle) (*Series, error) {
	if market != Spot && market != Futures {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("unknown market type %q", market)}
	}
	for i := 1; i < len(candles); i++ {
		if candles[i].Timestamp <= candles[i-1].Timestamp {
			return nil, &InvalidInputError{
				Reason: fmt.Sprintf("non-monotonic timestamp at index %d (%d <= %d)",
					i, candles[i].Timestamp, candles[i-1].Timestamp),
			}
		}
	}
	return &Series{Symbol: symbol, Market: market, Candles: candles}, nil
}

// SpanDays returns the calendar span of the series in fractional days.
func (s *Series) SpanDays() float64 {
	if len(s.Candles) < 2 {
		return 0
	}
	first := s.Candles[0].Timestamp
	last := s.Candles[len(s.Candles)-1].Timestamp
	return float64(last-first) / float64(24*time.Hour/time.Millisecond)
}
