package strategy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
)

const pricePlaces = 5

// Multipliers — множители ATR для перезахода, стопа и трёх тейков.
type Multipliers struct {
	Reentry decimal.Decimal
	Stop    decimal.Decimal
	Targets [3]decimal.Decimal
}

func DefaultMultipliers() Multipliers {
	return Multipliers{
		Reentry: decimal.RequireFromString("1.0"),
		Stop:    decimal.RequireFromString("2.5"),
		Targets: [3]decimal.Decimal{
			decimal.RequireFromString("1"),
			decimal.RequireFromString("2.5"),
			decimal.RequireFromString("3"),
		},
	}
}

// ComposeAlert: LONG — перезаход и стоп ниже цены, тейки выше; SHORT — зеркально.
// Если нет цены или ATR, все уровни Unavailable и в тексте будут "N/A".
func ComposeAlert(
	symbol string,
	dir models.Direction,
	price, atr models.Value,
	m Multipliers,
	leverage int,
	at time.Time,
) models.AlertEvent {
	ev := models.AlertEvent{
		Symbol:     symbol,
		Direction:  dir,
		EntryPrice: price,
		Leverage:   leverage,
		At:         at,
	}

	p, ok1 := price.Get()
	a, ok2 := atr.Get()
	if !ok1 || !ok2 {
		return ev
	}

	// against — в сторону стопа, with — в сторону тейков
	against := func(mult decimal.Decimal) models.Value {
		if dir == models.DirectionShort {
			return models.Available(p.Add(a.Mul(mult)))
		}
		return models.Available(p.Sub(a.Mul(mult)))
	}
	with := func(mult decimal.Decimal) models.Value {
		if dir == models.DirectionShort {
			return models.Available(p.Sub(a.Mul(mult)))
		}
		return models.Available(p.Add(a.Mul(mult)))
	}

	ev.ReentryPrice = against(m.Reentry)
	ev.StopLoss = against(m.Stop)
	ev.Target1 = with(m.Targets[0])
	ev.Target2 = with(m.Targets[1])
	ev.Target3 = with(m.Targets[2])
	return ev
}

// FormatAlert — Markdown-текст сигнала.
func FormatAlert(ev models.AlertEvent) string {
	emoji := "🟢"
	if ev.Direction == models.DirectionShort {
		emoji = "🔴"
	}
	f := func(v models.Value) string { return helper.FormatDecimal(v, pricePlaces) }

	return fmt.Sprintf(
		"%s *%s* (%s)\n"+
			"*Entrys:* %s - %s\n"+
			"Leverage: %dX\n"+
			"*Tps:* %s - %s - %s\n"+
			"*Stop Loss:* %s",
		emoji, ev.Direction, ev.Symbol,
		f(ev.EntryPrice), f(ev.ReentryPrice),
		ev.Leverage,
		f(ev.Target1), f(ev.Target2), f(ev.Target3),
		f(ev.StopLoss),
	)
}
