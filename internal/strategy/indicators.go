package strategy

import (
	"github.com/shopspring/decimal"

	"signal_bot/internal/models"
)

var (
	two         = decimal.NewFromInt(2)
	three       = decimal.NewFromInt(3)
	hundred     = decimal.NewFromInt(100)
	cciConstant = decimal.RequireFromString("0.015")
)

// guard превращает панику внутри расчёта (битые входные данные) в Unavailable.
func guard(out *models.Value) {
	if r := recover(); r != nil {
		*out = models.Unavailable()
	}
}

func guardPair(out *models.Pair) {
	if r := recover(); r != nil {
		*out = models.Pair{}
	}
}

// EMASeries: seed = SMA первых period закрытий, дальше
// ema_i = (close_i - ema_{i-1}) * 2/(period+1) + ema_{i-1}.
// Возвращает значения на последней и предпоследней свече.
func EMASeries(closes []decimal.Decimal, period int) (out models.Pair) {
	if period <= 0 || len(closes) < period+1 {
		return models.Pair{}
	}
	defer guardPair(&out)

	multiplier := two.Div(decimal.NewFromInt(int64(period + 1)))
	ema := decimal.Sum(closes[0], closes[1:period]...).Div(decimal.NewFromInt(int64(period)))
	var prev decimal.Decimal
	for i := period; i < len(closes); i++ {
		prev = ema
		ema = closes[i].Sub(ema).Mul(multiplier).Add(ema)
	}
	return models.Pair{Current: models.Available(ema), Previous: models.Available(prev)}
}

// SMA — среднее последних period значений.
func SMA(values []decimal.Decimal, period int) (out models.Value) {
	if period <= 0 || len(values) < period {
		return models.Unavailable()
	}
	defer guard(&out)

	window := values[len(values)-period:]
	return models.Available(decimal.Avg(window[0], window[1:]...))
}

func typicalPrices(highs, lows, closes []decimal.Decimal) []decimal.Decimal {
	tp := make([]decimal.Decimal, len(closes))
	for i := range closes {
		tp[i] = closes[i].Add(highs[i]).Add(lows[i]).Div(three)
	}
	return tp
}

// cciAt — CCI для окна typical price, заканчивающегося на индексе i.
// При нулевом среднем абсолютном отклонении CCI = 0.
func cciAt(tp []decimal.Decimal, i, period int) decimal.Decimal {
	window := tp[i-period+1 : i+1]
	n := decimal.NewFromInt(int64(period))
	sma := decimal.Sum(window[0], window[1:]...).Div(n)

	dev := decimal.Zero
	for _, v := range window {
		dev = dev.Add(v.Sub(sma).Abs())
	}
	meanDev := dev.Div(n)
	if meanDev.IsZero() {
		return decimal.Zero
	}
	return tp[i].Sub(sma).Div(cciConstant.Mul(meanDev))
}

func seriesOk(highs, lows, closes []decimal.Decimal, period int) bool {
	return period > 0 && len(highs) >= period && len(lows) >= period && len(closes) >= period
}

// CCI — значение на последней свече.
func CCI(highs, lows, closes []decimal.Decimal, period int) (out models.Value) {
	if !seriesOk(highs, lows, closes, period) {
		return models.Unavailable()
	}
	defer guard(&out)

	tp := typicalPrices(highs, lows, closes)
	return models.Available(cciAt(tp, len(tp)-1, period))
}

// CCISeries — CCI для каждой длины префикса >= period, старые первыми.
// Используется только для сглаживания CCI через SMA.
func CCISeries(highs, lows, closes []decimal.Decimal, period int) (out []decimal.Decimal) {
	if !seriesOk(highs, lows, closes, period) {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			out = nil
		}
	}()

	tp := typicalPrices(highs, lows, closes)
	out = make([]decimal.Decimal, 0, len(tp)-period+1)
	for i := period - 1; i < len(tp); i++ {
		out = append(out, cciAt(tp, i, period))
	}
	return out
}

// RSI по Уайлдеру: первые средние — простые по period изменениям,
// дальше avg = (avg*(period-1) + x) / period.
func RSI(closes []decimal.Decimal, period int) (out models.Value) {
	if period <= 0 || len(closes) < period+1 {
		return models.Unavailable()
	}
	defer guard(&out)

	n := decimal.NewFromInt(int64(period))
	n1 := decimal.NewFromInt(int64(period - 1))

	var gain, loss decimal.Decimal
	for i := 1; i <= period; i++ {
		ch := closes[i].Sub(closes[i-1])
		if ch.IsPositive() {
			gain = gain.Add(ch)
		} else {
			loss = loss.Sub(ch)
		}
	}
	avgGain := gain.Div(n)
	avgLoss := loss.Div(n)

	for i := period + 1; i < len(closes); i++ {
		ch := closes[i].Sub(closes[i-1])
		g, l := decimal.Zero, decimal.Zero
		if ch.IsPositive() {
			g = ch
		} else {
			l = ch.Neg()
		}
		avgGain = avgGain.Mul(n1).Add(g).Div(n)
		avgLoss = avgLoss.Mul(n1).Add(l).Div(n)
	}

	switch {
	case avgLoss.IsZero():
		return models.Available(hundred)
	case avgGain.IsZero():
		return models.Available(decimal.Zero)
	}
	rs := avgGain.Div(avgLoss)
	return models.Available(hundred.Sub(hundred.Div(decimal.NewFromInt(1).Add(rs))))
}

// ATR по Уайлдеру. TR первой свечи = high-low, дальше
// max(high-low, |high-prevClose|, |low-prevClose|).
func ATR(highs, lows, closes []decimal.Decimal, period int) (out models.Value) {
	if !seriesOk(highs, lows, closes, period) {
		return models.Unavailable()
	}
	defer guard(&out)

	n := decimal.NewFromInt(int64(period))
	n1 := decimal.NewFromInt(int64(period - 1))

	tr := make([]decimal.Decimal, len(closes))
	for i := range closes {
		hl := highs[i].Sub(lows[i])
		if i == 0 {
			tr[i] = hl
			continue
		}
		hc := highs[i].Sub(closes[i-1]).Abs()
		lc := lows[i].Sub(closes[i-1]).Abs()
		tr[i] = decimal.Max(hl, hc, lc)
	}

	atr := decimal.Sum(tr[0], tr[1:period]...).Div(n)
	for i := period; i < len(tr); i++ {
		atr = atr.Mul(n1).Add(tr[i]).Div(n)
	}
	return models.Available(atr)
}

// Crossover: fast пересёк slow снизу вверх на последней свече.
func Crossover(fast, slow models.Pair) bool {
	if !fast.Ok() || !slow.Ok() {
		return false
	}
	return fast.Previous.Decimal().LessThanOrEqual(slow.Previous.Decimal()) &&
		fast.Current.Decimal().GreaterThan(slow.Current.Decimal())
}

// Crossunder: fast пересёк slow сверху вниз на последней свече.
func Crossunder(fast, slow models.Pair) bool {
	if !fast.Ok() || !slow.Ok() {
		return false
	}
	return fast.Previous.Decimal().GreaterThanOrEqual(slow.Previous.Decimal()) &&
		fast.Current.Decimal().LessThan(slow.Current.Decimal())
}
