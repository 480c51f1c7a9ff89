package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"backtest-sim/services/backtest"
	"backtest-sim/services/clickhouse"
	"backtest-sim/services/market"
)

var rootCmd = &cobra.Command{
	Use:   "run_backtest",
	Short: "Replay a strategy backtest over candle history",
	Long: `Replays the strategy candle-by-candle over a CSV file or a ClickHouse
candle range and prints the run summary. Trade log collection and export is
opt-in via --trades.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err == nil {
			log.Debug("loaded .env")
		}

		symbol, _ := cmd.Flags().GetString("symbol")
		marketFlag, _ := cmd.Flags().GetString("market")
		csvPath, _ := cmd.Flags().GetString("csv")
		paramsPath, _ := cmd.Flags().GetString("params")
		collectTrades, _ := cmd.Flags().GetBool("trades")
		tradeLogOut, _ := cmd.Flags().GetString("out")

		mt := market.MarketType(marketFlag)

		params := backtest.DefaultParameters(mt)
		if paramsPath != "" {
			var err error
			params, err = backtest.LoadParameters(paramsPath, mt)
			if err != nil {
				log.Fatalf("error loading parameters: %v", err)
			}
		}
		params.CollectTrades = collectTrades || tradeLogOut != ""

		series, err := loadSeries(cmd, symbol, mt, csvPath)
		if err != nil {
			log.Fatalf("error loading candles: %v", err)
		}

		engine := backtest.NewEngine(params, mt)
		run, err := engine.Run(series)
		if err != nil {
			log.Fatalf("backtest failed: %v", err)
		}

		backtest.RenderSummary(run, os.Stdout)
		if len(run.MonthlyResults) > 0 {
			backtest.RenderMonthly(run, os.Stdout)
		}
		if params.CollectTrades {
			backtest.RenderTradeLog(run, os.Stdout)
		}
		if tradeLogOut != "" {
			f, err := os.Create(tradeLogOut)
			if err != nil {
				log.Fatalf("error creating trade log file: %v", err)
			}
			defer f.Close()
			if err := backtest.WriteTradeLogCSV(run, f); err != nil {
				log.Fatalf("error writing trade log: %v", err)
			}
			log.Infof("trade log written to %s", tradeLogOut)
		}
	},
}

func loadSeries(cmd *cobra.Command, symbol string, mt market.MarketType, csvPath string) (*market.Series, error) {
	if csvPath != "" {
		return market.LoadCSV(csvPath, symbol, mt)
	}

	addr, _ := cmd.Flags().GetString("ch-addr")
	db, _ := cmd.Flags().GetString("ch-db")
	table, _ := cmd.Flags().GetString("ch-table")
	user, _ := cmd.Flags().GetString("ch-user")
	pass, _ := cmd.Flags().GetString("ch-pass")
	interval, _ := cmd.Flags().GetString("interval")
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")

	from, err := time.Parse("2006-01-02 15:04:05", fromStr)
	if err != nil {
		log.Fatalf("error parsing --from: %v", err)
	}
	to, err := time.Parse("2006-01-02 15:04:05", toStr)
	if err != nil {
		log.Fatalf("error parsing --to: %v", err)
	}

	ctx := context.Background()
	store, err := clickhouse.Open(ctx, clickhouse.Config{
		Addr:     addr,
		Database: db,
		Table:    table,
		Username: user,
		Password: pass,
	})
	if err != nil {
		return nil, err
	}
	defer store.Close()

	candles, err := store.QueryCandles(ctx, symbol, interval, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	return market.NewSeries(symbol, mt, candles)
}

func main() {
	rootCmd.PersistentFlags().String("symbol", "BTCUSDT", "Trading symbol")
	rootCmd.PersistentFlags().String("market", "spot", "Market type: spot or futures")
	rootCmd.PersistentFlags().String("csv", "", "Path to a local candle CSV; if set, ClickHouse is skipped")
	rootCmd.PersistentFlags().String("params", "", "Path to a YAML parameter file")
	rootCmd.PersistentFlags().Bool("trades", false, "Collect and print the full trade log")
	rootCmd.PersistentFlags().String("out", "", "Write the trade log CSV to this path (implies --trades)")

	rootCmd.PersistentFlags().String("ch-addr", "localhost:9000", "ClickHouse native address")
	rootCmd.PersistentFlags().String("ch-db", "backtest", "ClickHouse database")
	rootCmd.PersistentFlags().String("ch-table", "data", "ClickHouse table")
	rootCmd.PersistentFlags().String("ch-user", "backtest", "ClickHouse user")
	rootCmd.PersistentFlags().String("ch-pass", "backtest123", "ClickHouse password")
	rootCmd.PersistentFlags().String("interval", "5m", "Candle interval stored in ClickHouse")
	rootCmd.PersistentFlags().String("from", "2023-01-01 00:00:00", "Start UTC (YYYY-MM-DD HH:MM:SS)")
	rootCmd.PersistentFlags().String("to", "2024-01-01 00:00:00", "End UTC (YYYY-MM-DD HH:MM:SS)")

	cobra.CheckErr(rootCmd.Execute())
}
