// One-shot installer for Binance monthly klines into the ClickHouse candle
// store. Idempotent: the ReplacingMergeTree absorbs re-runs of the same
// months.
package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"backtest-sim/services/clickhouse"
	"backtest-sim/services/market"
)

type cfg struct {
	Addr     string
	Database string
	Table    string
	User     string
	Password string
	BaseURL  string
	Symbols  []string
	Interval string
	StartYM  string
	EndYM    string
}

func mustEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func loadCfg() cfg {
	syms := strings.Split(mustEnv("SYMBOLS", "BTCUSDT,ETHUSDT"), ",")
	for i := range syms {
		syms[i] = strings.TrimSpace(syms[i])
	}
	return cfg{
		Addr:     mustEnv("CH_ADDR", "localhost:9000"),
		Database: mustEnv("CH_DATABASE", "backtest"),
		Table:    mustEnv("CH_TABLE", "data"),
		User:     mustEnv("CH_USER", "backtest"),
		Password: mustEnv("CH_PASSWORD", "backtest123"),
		BaseURL:  mustEnv("BASE_URL", "https://data.binance.vision"),
		Symbols:  syms,
		Interval: mustEnv("INTERVAL", "5m"),
		StartYM:  mustEnv("START_YM", "2023-01"),
		EndYM:    mustEnv("END_YM", "2024-01"),
	}
}

func ymRange(startYM, endYM string) ([]time.Time, error) {
	start, err := time.Parse("2006-01", startYM)
	if err != nil {
		return nil, fmt.Errorf("parse START_YM: %w", err)
	}
	end, err := time.Parse("2006-01", endYM)
	if err != nil {
		return nil, fmt.Errorf("parse END_YM: %w", err)
	}
	if end.Before(start) {
		return nil, errors.New("END_YM < START_YM")
	}
	var out []time.Time
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	lim := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(lim) {
		out = append(out, cur)
		cur = cur.AddDate(0, 1, 0)
	}
	return out, nil
}

func main() {
	_ = godotenv.Load()
	c := loadCfg()
	ctx := context.Background()

	store, err := clickhouse.Open(ctx, clickhouse.Config{
		Addr:     c.Addr,
		Database: c.Database,
		Table:    c.Table,
		Username: c.User,
		Password: c.Password,
	})
	if err != nil {
		log.Fatalf("clickhouse: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}

	months, err := ymRange(c.StartYM, c.EndYM)
	if err != nil {
		log.Fatalf("months: %v", err)
	}

	httpClient := &http.Client{Timeout: 2 * time.Minute}
	for _, sym := range c.Symbols {
		log.Infof("==> %s | %s monthly ingestion %s to %s", sym, c.Interval, c.StartYM, c.EndYM)
		for _, m := range months {
			if err := ingestMonth(ctx, httpClient, store, c, sym, m); err != nil {
				// Non-fatal: continue other months/symbols
				log.Warnf("%s %s ingest failed: %v", sym, m.Format("2006-01"), err)
			}
		}
	}
	log.Info("done")
}

func ingestMonth(ctx context.Context, hc *http.Client, store *clickhouse.Store, c cfg, symbol string, month time.Time) error {
	ym := month.Format("2006-01")
	url := fmt.Sprintf("%s/data/spot/monthly/klines/%s/%s/%s-%s-%s.zip",
		strings.TrimRight(c.BaseURL, "/"), symbol, c.Interval, symbol, c.Interval, ym)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	candles, err := parseKlinesZip(body)
	if err != nil {
		return fmt.Errorf("parse zip: %w", err)
	}
	return store.InsertCandles(ctx, symbol, c.Interval, candles)
}

// parseKlinesZip extracts candles from a Binance monthly klines archive.
// Each CSV row is open_time,open,high,low,close,volume,... per the Binance
// dump format; extra columns are ignored.
func parseKlinesZip(data []byte) ([]market.Candle, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	var candles []market.Candle
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		r := csv.NewReader(rc)
		r.FieldsPerRecord = -1
		for {
			rec, err := r.Read()
			if err == io.EOF {
				break
			}
			if err != nil || len(rec) < 6 {
				continue
			}
			ts, err := strconv.ParseInt(rec[0], 10, 64)
			if err != nil {
				continue // header row
			}
			// Newer dumps use microsecond open times
			if ts > 1e15 {
				ts /= 1000
			}
			var vals [5]decimal.Decimal
			ok := true
			for i := 0; i < 5; i++ {
				v, err := decimal.NewFromString(rec[i+1])
				if err != nil {
					ok = false
					break
				}
				vals[i] = v
			}
			if !ok {
				continue
			}
			candles = append(candles, market.Candle{
				Timestamp: ts,
				Open:      vals[0],
				High:      vals[1],
				Low:       vals[2],
				Close:     vals[3],
				Volume:    vals[4],
			})
		}
		rc.Close()
	}
	return candles, nil
}
