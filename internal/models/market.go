package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar — одна свеча, нам нужны только high/low/close.
type Bar struct {
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal
}

// PriceSeries — свечи одного символа и таймфрейма, старые первыми.
type PriceSeries struct {
	Symbol   string
	Interval string
	Bars     []Bar
}

func (s PriceSeries) Len() int { return len(s.Bars) }

func (s PriceSeries) Highs() []decimal.Decimal {
	out := make([]decimal.Decimal, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

func (s PriceSeries) Lows() []decimal.Decimal {
	out := make([]decimal.Decimal, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

func (s PriceSeries) Closes() []decimal.Decimal {
	out := make([]decimal.Decimal, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// LastClose — текущая цена (close последней свечи).
func (s PriceSeries) LastClose() Value {
	if len(s.Bars) == 0 {
		return Unavailable()
	}
	return Available(s.Bars[len(s.Bars)-1].Close)
}

// Trade — одна сделка из потока <symbol>@trade.
type Trade struct {
	Symbol        string
	Quantity      decimal.Decimal
	TakerIsSeller bool // isBuyerMaker: покупатель мейкер => агрессор продавец
	Time          time.Time
}
