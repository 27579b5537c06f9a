package helper

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"signal_bot/internal/models"
)

var hundred = decimal.NewFromInt(100)

// NormInterval приводит таймфрейм к виду, который понимает Binance.
func NormInterval(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	switch s {
	case "60m", "1h":
		return "1h"
	case "240m", "4h":
		return "4h"
	case "1440m", "24h", "1d":
		return "1d"
	default:
		return s
	}
}

// ParseDecimal разбирает строку биржи; пустая/битая строка => Unavailable.
func ParseDecimal(s string) models.Value {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return models.Unavailable()
	}
	return models.Available(d)
}

// FormatDecimal — places знаков после запятой, "N/A" если значения нет.
func FormatDecimal(v models.Value, places int32) string {
	d, ok := v.Get()
	if !ok {
		return "N/A"
	}
	return d.Round(places).String()
}

// PercentChange — знаковое изменение current относительно previous в процентах.
type PercentChange struct {
	Value     models.Value
	Formatted string
}

func (p PercentChange) Rising() bool {
	d, ok := p.Value.Get()
	return ok && d.IsPositive()
}

func (p PercentChange) Falling() bool {
	d, ok := p.Value.Get()
	return ok && d.IsNegative()
}

func CalcPercentChange(current, previous models.Value) PercentChange {
	cur, ok1 := current.Get()
	prev, ok2 := previous.Get()
	if !ok1 || !ok2 || prev.IsZero() {
		return PercentChange{Value: models.Unavailable(), Formatted: "N/A"}
	}

	pct := cur.Sub(prev).Div(prev).Mul(hundred)
	status := "(unchanged)"
	switch {
	case pct.IsPositive():
		status = "(rising)"
	case pct.IsNegative():
		status = "(falling)"
	}
	v := models.Available(pct)
	return PercentChange{
		Value:     v,
		Formatted: fmt.Sprintf("%s%% %s", FormatDecimal(v, 2), status),
	}
}
