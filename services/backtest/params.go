package backtest

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"backtest-sim/services/fees"
	"backtest-sim/services/market"
)

const (
	minLeverage       = 1
	maxLeverage       = 125
	minDailyTrades    = 1
	maxDailyTrades    = 50
	capitalUsageLimit = 0.95 // fraction of capital a single position may commit
)

// Parameters is the immutable configuration of one simulation run.
// Out-of-range values are clamped, not rejected; construct via
// DefaultParameters and normalize once with Normalize before use.
type Parameters struct {
	InitialCapital float64 `yaml:"initial_capital"`

	DailyTargetPct  float64 `yaml:"daily_target"`
	MaxDailyLossPct float64 `yaml:"max_daily_loss"`
	RiskPerTradePct float64 `yaml:"risk_per_trade"`

	StopLossPct     float64 `yaml:"stop_loss"`
	TakeProfitPct   float64 `yaml:"take_profit"`
	TrailingStopPct float64 `yaml:"trailing_stop"`

	EmaFastPeriod int `yaml:"ema_fast"`
	EmaSlowPeriod int `yaml:"ema_slow"`
	RsiPeriod     int `yaml:"rsi_period"`

	RsiOversold   float64 `yaml:"rsi_oversold"`
	RsiOverbought float64 `yaml:"rsi_overbought"`

	Leverage       int `yaml:"leverage"`
	MaxDailyTrades int `yaml:"max_daily_trades"`

	MakerFeeRate float64 `yaml:"maker_fee"`
	TakerFeeRate float64 `yaml:"taker_fee"`
	SlippageBps  float64 `yaml:"slippage_bps"`

	EntryFeeRole fees.Role `yaml:"entry_fee_role"`
	ExitFeeRole  fees.Role `yaml:"exit_fee_role"`

	// CollectTrades retains the full trade ledger on the run. Off by
	// default to keep plain runs cheap.
	CollectTrades bool `yaml:"collect_trades"`
}

// DefaultParameters returns the documented defaults for a market type.
func DefaultParameters(mt market.MarketType) Parameters {
	p := Parameters{
		InitialCapital:  1000,
		DailyTargetPct:  3.0,
		MaxDailyLossPct: 1.0,
		RiskPerTradePct: 2.0,
		StopLossPct:     0.5,
		TakeProfitPct:   1.5,
		TrailingStopPct: 0.3,
		EmaFastPeriod:   8,
		EmaSlowPeriod:   21,
		RsiPeriod:       7,
		RsiOversold:     35,
		RsiOverbought:   65,
		Leverage:        1,
		MaxDailyTrades:  5,
	}
	if mt == market.Futures {
		p.Leverage = 10
	}
	return p
}

// LoadParameters reads a YAML parameter file on top of the market-type
// defaults. Missing keys keep their defaults.
func LoadParameters(path string, mt market.MarketType) (Parameters, error) {
	p := DefaultParameters(mt)
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read parameter file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to parse parameter file: %w", err)
	}
	return p.Normalize(mt), nil
}

// Normalize clamps out-of-range values to their valid ranges. Leverage is
// forced to 1 on spot regardless of input.
func (p Parameters) Normalize(mt market.MarketType) Parameters {
	if mt == market.Spot {
		p.Leverage = 1
	} else {
		if p.Leverage < minLeverage {
			p.Leverage = minLeverage
		}
		if p.Leverage > maxLeverage {
			p.Leverage = maxLeverage
		}
	}
	if p.MaxDailyTrades < minDailyTrades {
		p.MaxDailyTrades = minDailyTrades
	}
	if p.MaxDailyTrades > maxDailyTrades {
		p.MaxDailyTrades = maxDailyTrades
	}
	if p.EntryFeeRole == "" {
		p.EntryFeeRole = fees.Taker
	}
	if p.ExitFeeRole == "" {
		p.ExitFeeRole = fees.Maker
	}
	return p
}

func (p Parameters) initialCapital() decimal.Decimal {
	return decimal.NewFromFloat(p.InitialCapital)
}
