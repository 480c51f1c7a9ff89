package main

import (
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"backtest-sim/services/backtest"
	"backtest-sim/services/market"
)

// Each run is independent and owns its working state, so the sweep is
// embarrassingly parallel: one engine per job, a fixed worker pool outside
// the core.

type job struct {
	index  int
	params backtest.Parameters
}

type outcome struct {
	index int
	run   *backtest.Run
}

var rootCmd = &cobra.Command{
	Use:   "param_sweep",
	Short: "Sweep stop/target/risk parameter grids over one candle file",
	Run: func(cmd *cobra.Command, args []string) {
		symbol, _ := cmd.Flags().GetString("symbol")
		marketFlag, _ := cmd.Flags().GetString("market")
		csvPath, _ := cmd.Flags().GetString("csv")
		workers, _ := cmd.Flags().GetInt("workers")

		if csvPath == "" {
			log.Fatal("--csv is required")
		}
		if workers <= 0 {
			workers = runtime.NumCPU()
		}
		mt := market.MarketType(marketFlag)

		series, err := market.LoadCSV(csvPath, symbol, mt)
		if err != nil {
			log.Fatalf("error loading candles: %v", err)
		}

		stopGrid := []float64{0.3, 0.5, 0.8}
		targetGrid := []float64{1.0, 1.5, 2.0}
		riskGrid := []float64{1.0, 2.0, 3.0}

		var jobs []job
		for _, sl := range stopGrid {
			for _, tp := range targetGrid {
				for _, risk := range riskGrid {
					p := backtest.DefaultParameters(mt)
					p.StopLossPct = sl
					p.TakeProfitPct = tp
					p.RiskPerTradePct = risk
					jobs = append(jobs, job{index: len(jobs), params: p})
				}
			}
		}

		results := make([]*backtest.Run, len(jobs))
		jobCh := make(chan job)
		outCh := make(chan outcome)

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range jobCh {
					run, err := backtest.NewEngine(j.params, mt).Run(series)
					if err != nil {
						log.Errorf("sweep run %d failed: %v", j.index, err)
						continue
					}
					outCh <- outcome{index: j.index, run: run}
				}
			}()
		}
		go func() {
			for _, j := range jobs {
				jobCh <- j
			}
			close(jobCh)
			wg.Wait()
			close(outCh)
		}()
		for o := range outCh {
			results[o.index] = o.run
		}

		type ranked struct {
			params backtest.Parameters
			run    *backtest.Run
		}
		var board []ranked
		for i, r := range results {
			if r != nil {
				board = append(board, ranked{params: jobs[i].params, run: r})
			}
		}
		sort.SliceStable(board, func(i, j int) bool {
			return board[i].run.TotalReturnPct > board[j].run.TotalReturnPct
		})

		p := message.NewPrinter(language.English)
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"SL %", "TP %", "Risk %", "Return %", "Trades", "Win %", "Max DD %", "Sharpe"})
		for _, b := range board {
			table.Append([]string{
				p.Sprintf("%.1f", b.params.StopLossPct),
				p.Sprintf("%.1f", b.params.TakeProfitPct),
				p.Sprintf("%.1f", b.params.RiskPerTradePct),
				p.Sprintf("%.2f", b.run.TotalReturnPct),
				p.Sprintf("%d", b.run.TotalTrades),
				p.Sprintf("%.1f", b.run.WinRatePct),
				p.Sprintf("%.2f", b.run.MaxDrawdown),
				p.Sprintf("%.3f", b.run.Sharpe),
			})
		}
		table.Render()
	},
}

func main() {
	rootCmd.PersistentFlags().String("symbol", "BTCUSDT", "Trading symbol")
	rootCmd.PersistentFlags().String("market", "spot", "Market type: spot or futures")
	rootCmd.PersistentFlags().String("csv", "", "Path to a local candle CSV. Required.")
	rootCmd.PersistentFlags().Int("workers", 0, "Worker count; defaults to NumCPU")

	cobra.CheckErr(rootCmd.Execute())
}
