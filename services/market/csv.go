package market

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// LoadCSV reads candles from a CSV file with columns
// timestamp_ms,open,high,low,close,volume. Rows are sorted and duplicate
// timestamps deduplicated (keep last) before validation, since exported
// files are occasionally concatenated out of order. Anything worse than
// that is rejected by NewSeries.
func LoadCSV(path, symbol string, market MarketType) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open candle file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	candles := make([]Candle, 0, 1_000)
	line := 0
	skipped := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(rec) < 6 {
			line++
			skipped++
			continue
		}

		tsStr := strings.TrimPrefix(strings.TrimSpace(rec[0]), "\ufeff")
		if line == 0 && (strings.EqualFold(tsStr, "timestamp") || strings.EqualFold(tsStr, "timestamp_ms")) {
			line++
			continue
		}

		ts, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			line++
			skipped++
			continue
		}

		c := Candle{Timestamp: ts}
		fields := []*decimal.Decimal{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
		ok := true
		for i, dst := range fields {
			v, err := decimal.NewFromString(strings.TrimSpace(rec[i+1]))
			if err != nil {
				// volume is optional in some exports
				if i == 4 {
					v = decimal.Zero
				} else {
					ok = false
					break
				}
			}
			*dst = v
		}
		if !ok {
			line++
			skipped++
			continue
		}

		candles = append(candles, c)
		line++
	}

	if len(candles) > 1 {
		sort.Slice(candles, func(i, j int) bool { return candles[i].Timestamp < candles[j].Timestamp })
		uniq := candles[:0]
		var lastTs int64 = -1
		for _, c := range candles {
			if c.Timestamp == lastTs {
				uniq[len(uniq)-1] = c
				continue
			}
			uniq = append(uniq, c)
			lastTs = c.Timestamp
		}
		candles = uniq
	}

	if skipped > 0 {
		log.WithFields(log.Fields{"path": path, "skipped": skipped}).Warn("skipped malformed candle rows")
	}
	log.WithFields(log.Fields{"path": path, "candles": len(candles)}).Info("loaded candle file")

	return NewSeries(symbol, market, candles)
}
