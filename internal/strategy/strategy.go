package strategy

import (
	"github.com/shopspring/decimal"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
)

// Thresholds — пороги, которые можно крутить из конфига.
type Thresholds struct {
	OIChangePct decimal.Decimal // 0.20 => 0.20%
	LSRBuy      decimal.Decimal // LONG только если LSR ниже
	LSRSell     decimal.Decimal // SHORT только если LSR выше
	VolumeDelta decimal.Decimal // |delta| за минуту
}

// Params — периоды индикаторов и пороги композиции.
type Params struct {
	CCIPeriod    int
	CCISMAPeriod int
	RSIPeriod    int
	ATRPeriod    int

	EMAFast int // 17
	EMASlow int // 34
	EMAAux  int // 13, только для лога

	MinBars int

	Thresholds Thresholds
}

func DefaultParams() Params {
	return Params{
		CCIPeriod:    20,
		CCISMAPeriod: 14,
		RSIPeriod:    14,
		ATRPeriod:    14,
		EMAFast:      17,
		EMASlow:      34,
		EMAAux:       13,
		MinBars:      50,
		Thresholds: Thresholds{
			OIChangePct: decimal.RequireFromString("0.20"),
			LSRBuy:      decimal.RequireFromString("1.8"),
			LSRSell:     decimal.RequireFromString("2.0"),
			VolumeDelta: decimal.RequireFromString("0.1"),
		},
	}
}

// Inputs — всё, что нужно для оценки одного символа за один цикл.
type Inputs struct {
	Symbol string

	M15 models.PriceSeries
	H1  models.PriceSeries
	H4  models.PriceSeries
	D1  models.PriceSeries // грузится, но в условиях не участвует

	OpenInterest   models.MetricSnapshot
	LongShortRatio models.MetricSnapshot
	VolumeDelta    models.Value
}

// Snapshot — производные значения, из которых собираются условия.
type Snapshot struct {
	Symbol string

	Price models.Value
	ATR   models.Value
	RSI   models.Value

	EMAFast models.Pair
	EMASlow models.Pair
	EMAAux  models.Pair

	CCI      models.Value
	CCISMA   models.Value
	CCI1h    models.Value
	CCISMA1h models.Value
	CCI4h    models.Value

	LSR       models.Value
	OIChange  helper.PercentChange
	LSRChange helper.PercentChange

	VolumeDelta models.Value
}

// Check — одно условие из AND-цепочки.
type Check struct {
	Name string
	OK   bool
}

// Decision — итог композиции по символу.
type Decision struct {
	Snapshot    Snapshot
	LongChecks  []Check
	ShortChecks []Check
}

func allOK(cs []Check) bool {
	if len(cs) == 0 {
		return false
	}
	for _, c := range cs {
		if !c.OK {
			return false
		}
	}
	return true
}

func (d Decision) Long() bool  { return allOK(d.LongChecks) }
func (d Decision) Short() bool { return allOK(d.ShortChecks) }

// Directions — направления, по которым все условия выполнены.
func (d Decision) Directions() []models.Direction {
	var out []models.Direction
	if d.Long() {
		out = append(out, models.DirectionLong)
	}
	if d.Short() {
		out = append(out, models.DirectionShort)
	}
	return out
}

// Failed — имена невыполненных условий, для debug-лога.
func Failed(cs []Check) []string {
	var out []string
	for _, c := range cs {
		if !c.OK {
			out = append(out, c.Name)
		}
	}
	return out
}
