package main

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"backtest-sim/services/market"
)

var rootCmd = &cobra.Command{
	Use:   "resample_csv",
	Short: "Resample a candle CSV to a coarser cadence",
	Long: `Reads a candle CSV (timestamp_ms,open,high,low,close,volume), aggregates
it into epoch-aligned buckets of the target cadence and writes the result in
the same layout. Useful for deriving 15m/1h files from a 5m export.`,
	Run: func(cmd *cobra.Command, args []string) {
		in, _ := cmd.Flags().GetString("in")
		out, _ := cmd.Flags().GetString("out")
		target, _ := cmd.Flags().GetDuration("to")
		symbol, _ := cmd.Flags().GetString("symbol")

		if in == "" || out == "" {
			log.Fatal("--in and --out are required")
		}

		// market type only matters for trading; spot is fine for plumbing
		series, err := market.LoadCSV(in, symbol, market.Spot)
		if err != nil {
			log.Fatalf("error loading candles: %v", err)
		}

		resampled, err := market.Resample(series, target)
		if err != nil {
			log.Fatalf("error resampling: %v", err)
		}

		if err := market.WriteCSV(resampled, out); err != nil {
			log.Fatalf("error writing output: %v", err)
		}
		log.Infof("wrote %d candles to %s", len(resampled.Candles), out)
	},
}

func main() {
	rootCmd.Flags().String("in", "", "Input candle CSV path")
	rootCmd.Flags().String("out", "", "Output candle CSV path")
	rootCmd.Flags().Duration("to", 15*time.Minute, "Target cadence (e.g. 15m, 1h)")
	rootCmd.Flags().String("symbol", "BTCUSDT", "Symbol label for logging")

	cobra.CheckErr(rootCmd.Execute())
}
