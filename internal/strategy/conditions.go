package strategy

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
)

// ErrInsufficientData — символ пропускается в этом цикле без сигнала и без кулдауна.
var ErrInsufficientData = errors.New("insufficient data")

var (
	cciLongFloor  = decimal.NewFromInt(-100)
	cciShortFloor = decimal.NewFromInt(-200)
	cciShortCap   = decimal.NewFromInt(100)
	cci4hCap      = decimal.NewFromInt(200)
)

type Composer struct {
	p Params
}

func NewComposer(p Params) *Composer {
	return &Composer{p: p}
}

func (c *Composer) Params() Params { return c.p }

func insufficient(format string, args ...any) error {
	return errors.Wrap(ErrInsufficientData, fmt.Sprintf(format, args...))
}

// Derive считает индикаторы и останавливается на первом недоступном значении.
func (c *Composer) Derive(in Inputs) (Snapshot, error) {
	s := Snapshot{Symbol: in.Symbol}

	for _, ser := range []struct {
		name string
		n    int
	}{
		{"15m", in.M15.Len()},
		{"1h", in.H1.Len()},
		{"4h", in.H4.Len()},
	} {
		if ser.n < c.p.MinBars {
			return s, insufficient("%s bars: %d < %d", ser.name, ser.n, c.p.MinBars)
		}
	}

	highs, lows, closes := in.M15.Highs(), in.M15.Lows(), in.M15.Closes()

	s.Price = in.M15.LastClose()
	s.ATR = ATR(highs, lows, closes, c.p.ATRPeriod)
	s.RSI = RSI(closes, c.p.RSIPeriod)
	s.EMAFast = EMASeries(closes, c.p.EMAFast)
	s.EMASlow = EMASeries(closes, c.p.EMASlow)
	s.EMAAux = EMASeries(closes, c.p.EMAAux)

	s.CCI = CCI(highs, lows, closes, c.p.CCIPeriod)
	s.CCISMA = SMA(CCISeries(highs, lows, closes, c.p.CCIPeriod), c.p.CCISMAPeriod)

	h1h, h1l, h1c := in.H1.Highs(), in.H1.Lows(), in.H1.Closes()
	s.CCI1h = CCI(h1h, h1l, h1c, c.p.CCIPeriod)
	s.CCISMA1h = SMA(CCISeries(h1h, h1l, h1c, c.p.CCIPeriod), c.p.CCISMAPeriod)

	s.CCI4h = CCI(in.H4.Highs(), in.H4.Lows(), in.H4.Closes(), c.p.CCIPeriod)

	s.LSR = in.LongShortRatio.Current
	s.OIChange = helper.CalcPercentChange(in.OpenInterest.Current, in.OpenInterest.Previous)
	s.LSRChange = helper.CalcPercentChange(in.LongShortRatio.Current, in.LongShortRatio.Previous)
	s.VolumeDelta = in.VolumeDelta

	required := []struct {
		name string
		ok   bool
	}{
		{"price", s.Price.Ok()},
		{"atr", s.ATR.Ok()},
		{fmt.Sprintf("ema%d", c.p.EMAFast), s.EMAFast.Ok()},
		{fmt.Sprintf("ema%d", c.p.EMASlow), s.EMASlow.Ok()},
		{"cci 15m", s.CCI.Ok()},
		{"cci sma 15m", s.CCISMA.Ok()},
		{"cci 1h", s.CCI1h.Ok()},
		{"cci sma 1h", s.CCISMA1h.Ok()},
		{"cci 4h", s.CCI4h.Ok()},
		{"open interest change", s.OIChange.Value.Ok()},
		{"long/short ratio", s.LSR.Ok()},
		{"long/short ratio change", s.LSRChange.Value.Ok()},
		{"volume delta", s.VolumeDelta.Ok()},
	}
	for _, r := range required {
		if !r.ok {
			return s, insufficient("%s unavailable", r.name)
		}
	}
	return s, nil
}

// Evaluate = Derive + Decide.
func (c *Composer) Evaluate(in Inputs) (Decision, error) {
	s, err := c.Derive(in)
	if err != nil {
		return Decision{Snapshot: s}, err
	}
	return c.Decide(s), nil
}

// Decide собирает LONG/SHORT условия. Состав AND-цепочек фиксирован,
// меняются только пороги. Недоступное значение всегда даёт false.
func (c *Composer) Decide(s Snapshot) Decision {
	th := c.p.Thresholds
	oi := s.OIChange.Value

	long := []Check{
		{"cci15m>sma&>-100", above(s.CCI, s.CCISMA) && gt(s.CCI, cciLongFloor)},
		{"ema_crossover", Crossover(s.EMAFast, s.EMASlow)},
		{"oi_up", gt(oi, decimal.Zero) && gte(oi, th.OIChangePct)},
		{"lsr_falling", s.LSRChange.Falling()},
		{"lsr<buy", lt(s.LSR, th.LSRBuy)},
		{"delta>th", gt(s.VolumeDelta, th.VolumeDelta)},
		{"cci4h<200", lt(s.CCI4h, cci4hCap)},
	}

	short := []Check{
		{"cci15m<sma&(-200,100)", above(s.CCISMA, s.CCI) && gt(s.CCI, cciShortFloor) && lt(s.CCI, cciShortCap)},
		{"cci1h<sma&<100", above(s.CCISMA1h, s.CCI1h) && lt(s.CCI1h, cciShortCap)},
		{"ema_crossunder", Crossunder(s.EMAFast, s.EMASlow)},
		{"oi_down", lt(oi, decimal.Zero) && gte(abs(oi), th.OIChangePct)},
		{"lsr_rising", s.LSRChange.Rising()},
		{"lsr>sell", gt(s.LSR, th.LSRSell)},
		{"delta<-th", lt(s.VolumeDelta, th.VolumeDelta.Neg())},
	}

	return Decision{Snapshot: s, LongChecks: long, ShortChecks: short}
}

func gt(v models.Value, d decimal.Decimal) bool {
	x, ok := v.Get()
	return ok && x.GreaterThan(d)
}

func gte(v models.Value, d decimal.Decimal) bool {
	x, ok := v.Get()
	return ok && x.GreaterThanOrEqual(d)
}

func lt(v models.Value, d decimal.Decimal) bool {
	x, ok := v.Get()
	return ok && x.LessThan(d)
}

// above: a > b, оба доступны.
func above(a, b models.Value) bool {
	y, ok := b.Get()
	return ok && gt(a, y)
}

func abs(v models.Value) models.Value {
	x, ok := v.Get()
	if !ok {
		return v
	}
	return models.Available(x.Abs())
}
