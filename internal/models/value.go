package models

import "github.com/shopspring/decimal"

// Value — результат вычисления, который может отсутствовать
// (мало истории, ошибка запроса, деление на ноль).
type Value struct {
	d  decimal.Decimal
	ok bool
}

func Available(d decimal.Decimal) Value { return Value{d: d, ok: true} }

func Unavailable() Value { return Value{} }

func (v Value) Ok() bool                     { return v.ok }
func (v Value) Get() (decimal.Decimal, bool) { return v.d, v.ok }
func (v Value) Decimal() decimal.Decimal     { return v.d }

func (v Value) String() string {
	if !v.ok {
		return "N/A"
	}
	return v.d.String()
}

// Pair — значение индикатора на последней и предпоследней свече.
type Pair struct {
	Current  Value
	Previous Value
}

func (p Pair) Ok() bool { return p.Current.Ok() && p.Previous.Ok() }

// MetricSnapshot — два последних замера OI / long-short ratio.
type MetricSnapshot struct {
	Current  Value
	Previous Value
}
