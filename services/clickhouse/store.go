// Package clickhouse is the candle store adapter. The simulation core never
// touches it; cmd tools use it to ingest and fetch OHLCV history.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"backtest-sim/services/market"
)

type Config struct {
	Addr     string
	Database string
	Table    string
	Username string
	Password string
}

// Store wraps a native-protocol ClickHouse connection.
type Store struct {
	conn clickhouse.Conn
	cfg  Config
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": uint64(0),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return &Store{conn: conn, cfg: cfg}, nil
}

func (s *Store) Close() error { return s.conn.Close() }

// EnsureSchema creates the database and candle table if missing. The
// ReplacingMergeTree keyed on (symbol, interval, open_time_ms) makes
// re-ingestion idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.cfg.Database)); err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			symbol String,
			interval LowCardinality(String),
			open_time_ms UInt64,
			open Float64,
			high Float64,
			low Float64,
			close Float64,
			volume Float64,
			ingested_at DateTime64(3),
			version UInt64
		)
		ENGINE = ReplacingMergeTree(version)
		ORDER BY (symbol, interval, open_time_ms)
		SETTINGS index_granularity = 8192
	`, s.cfg.Database, s.cfg.Table)
	if err := s.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// InsertCandles batch-inserts candles for one symbol/interval.
func (s *Store) InsertCandles(ctx context.Context, symbol, interval string, candles []market.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s.%s", s.cfg.Database, s.cfg.Table))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	now := time.Now().UTC()
	version := uint64(now.UnixMilli())
	for _, c := range candles {
		err := batch.Append(
			symbol,
			interval,
			uint64(c.Timestamp),
			c.Open.InexactFloat64(),
			c.High.InexactFloat64(),
			c.Low.InexactFloat64(),
			c.Close.InexactFloat64(),
			c.Volume.InexactFloat64(),
			now,
			version,
		)
		if err != nil {
			return fmt.Errorf("batch append: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("batch send: %w", err)
	}
	log.WithFields(log.Fields{"symbol": symbol, "interval": interval, "rows": len(candles)}).Info("inserted candles")
	return nil
}

// QueryCandles fetches a half-open [from, to) time range, deduplicated and
// ordered, ready for series validation.
func (s *Store) QueryCandles(ctx context.Context, symbol, interval string, from, to time.Time) ([]market.Candle, error) {
	q := fmt.Sprintf(`
		SELECT open_time_ms, open, high, low, close, volume
		FROM %s.%s FINAL
		WHERE symbol = ? AND interval = ?
		  AND open_time_ms >= ? AND open_time_ms < ?
		ORDER BY open_time_ms
	`, s.cfg.Database, s.cfg.Table)

	rows, err := s.conn.Query(ctx, q, symbol, interval, uint64(from.UnixMilli()), uint64(to.UnixMilli()))
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	var out []market.Candle
	for rows.Next() {
		var ts uint64
		var open, high, low, closePx, volume float64
		if err := rows.Scan(&ts, &open, &high, &low, &closePx, &volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, market.Candle{
			Timestamp: int64(ts),
			Open:      decimal.NewFromFloat(open),
			High:      decimal.NewFromFloat(high),
			Low:       decimal.NewFromFloat(low),
			Close:     decimal.NewFromFloat(closePx),
			Volume:    decimal.NewFromFloat(volume),
		})
	}
	return out, rows.Err()
}
