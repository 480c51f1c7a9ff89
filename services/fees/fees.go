// Package fees models commission plus slippage for one trade leg.
package fees

import (
	"github.com/shopspring/decimal"

	"backtest-sim/services/market"
)

// Role is the liquidity role assumed for a leg.
type Role string

const (
	Maker Role = "maker"
	Taker Role = "taker"
)

// Market-type defaults, expressed as fractions of notional.
var (
	defaultTakerRate       = decimal.NewFromFloat(0.0004) // 4 bps, both markets
	defaultMakerRateSpot   = decimal.NewFromFloat(0.0002) // 2 bps
	defaultMakerRateFut    = decimal.NewFromFloat(0.0001) // 1 bp
	defaultSlippageRate    = decimal.NewFromFloat(0.0001) // 1 bp
	basisPointsDenominator = decimal.NewFromInt(10_000)
)

// Model computes the cost of a leg. Entries are assumed to take liquidity
// and exits to make it; the roles are configurable but that default mapping
// is baked into historical results and must stay the default.
type Model struct {
	MakerRate    decimal.Decimal
	TakerRate    decimal.Decimal
	SlippageRate decimal.Decimal
	EntryRole    Role
	ExitRole     Role
}

// NewModel builds a fee model for a market type. Override rates are
// fractions of notional except slippageBps, which is in basis points;
// zero/negative overrides select the defaults.
func NewModel(mt market.MarketType, makerRate, takerRate, slippageBps float64) *Model {
	m := &Model{
		TakerRate:    defaultTakerRate,
		MakerRate:    defaultMakerRateSpot,
		SlippageRate: defaultSlippageRate,
		EntryRole:    Taker,
		ExitRole:     Maker,
	}
	if mt == market.Futures {
		m.MakerRate = defaultMakerRateFut
	}
	if makerRate > 0 {
		m.MakerRate = decimal.NewFromFloat(makerRate)
	}
	if takerRate > 0 {
		m.TakerRate = decimal.NewFromFloat(takerRate)
	}
	if slippageBps > 0 {
		m.SlippageRate = decimal.NewFromFloat(slippageBps).Div(basisPointsDenominator)
	}
	return m
}

// EntryCost returns commission plus slippage for an entry leg.
func (m *Model) EntryCost(notional decimal.Decimal) decimal.Decimal {
	return m.cost(notional, m.EntryRole)
}

// ExitCost returns commission plus slippage for an exit leg, applied to the
// gross proceeds.
func (m *Model) ExitCost(notional decimal.Decimal) decimal.Decimal {
	return m.cost(notional, m.ExitRole)
}

func (m *Model) cost(notional decimal.Decimal, role Role) decimal.Decimal {
	rate := m.TakerRate
	if role == Maker {
		rate = m.MakerRate
	}
	return notional.Mul(rate.Add(m.SlippageRate))
}
