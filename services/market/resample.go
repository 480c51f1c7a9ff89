package market

import (
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"
)

// Resample aggregates a series into a coarser cadence. Buckets are aligned
// to the epoch in UTC; within a bucket open is the first bar, close the
// last, high/low the extremes, and volume the sum. The target must be a
// whole number of minutes and a multiple of the source cadence.
func Resample(s *Series, target time.Duration) (*Series, error) {
	if target < time.Minute || target%time.Minute != 0 {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("target cadence %s is not a whole number of minutes", target)}
	}
	if len(s.Candles) == 0 {
		return NewSeries(s.Symbol, s.Market, nil)
	}

	source := sourceStep(s.Candles)
	targetMs := target.Milliseconds()
	if source > 0 && targetMs%source != 0 {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("target cadence %s is not a multiple of the source step %dms", target, source)}
	}

	out := make([]Candle, 0, len(s.Candles))
	for _, c := range s.Candles {
		bucket := (c.Timestamp / targetMs) * targetMs
		if n := len(out); n > 0 && out[n-1].Timestamp == bucket {
			agg := &out[n-1]
			if c.High.GreaterThan(agg.High) {
				agg.High = c.High
			}
			if c.Low.LessThan(agg.Low) {
				agg.Low = c.Low
			}
			agg.Close = c.Close
			agg.Volume = agg.Volume.Add(c.Volume)
			continue
		}
		c.Timestamp = bucket
		out = append(out, c)
	}

	log.WithFields(log.Fields{
		"symbol": s.Symbol,
		"in":     len(s.Candles),
		"out":    len(out),
		"target": target,
	}).Info("resampled candle series")

	return NewSeries(s.Symbol, s.Market, out)
}

// sourceStep returns the smallest positive timestamp delta, in ms. 0 for a
// single-candle series.
func sourceStep(candles []Candle) int64 {
	var step int64
	for i := 1; i < len(candles); i++ {
		d := candles[i].Timestamp - candles[i-1].Timestamp
		if d > 0 && (step == 0 || d < step) {
			step = d
		}
	}
	return step
}

type csvRow struct {
	Timestamp int64  `csv:"timestamp"`
	Open      string `csv:"open"`
	High      string `csv:"high"`
	Low       string `csv:"low"`
	Close     string `csv:"close"`
	Volume    string `csv:"volume"`
}

// WriteCSV writes a series in the same column layout LoadCSV reads.
func WriteCSV(s *Series, path string) error {
	rows := make([]*csvRow, 0, len(s.Candles))
	for _, c := range s.Candles {
		rows = append(rows, &csvRow{
			Timestamp: c.Timestamp,
			Open:      c.Open.String(),
			High:      c.High.String(),
			Low:       c.Low.String(),
			Close:     c.Close.String(),
			Volume:    c.Volume.String(),
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create candle file: %w", err)
	}
	defer f.Close()

	if err := gocsv.Marshal(rows, f); err != nil {
		return fmt.Errorf("failed to write candle file: %w", err)
	}
	return nil
}
