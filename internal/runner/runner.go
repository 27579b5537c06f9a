package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/health/service"
	"signal_bot/internal/notify"
	"signal_bot/internal/strategy"
	"signal_bot/pkg/metrics"
)

type MarketData interface {
	Klines(ctx context.Context, symbol, interval string, limit int) (models.PriceSeries, error)
	OpenInterest(ctx context.Context, symbol string) (models.MetricSnapshot, error)
	LongShortRatio(ctx context.Context, symbol string) (models.MetricSnapshot, error)
}

type DeltaSource interface {
	Delta(symbol string) models.Value
}

type timeframe struct {
	interval string
	limit    int
}

// 15m, 1h, 4h, 1d — в этом порядке раскладываются в Inputs
var timeframes = [...]timeframe{
	{"15m", 200},
	{"1h", 100},
	{"4h", 100},
	{"1d", 100},
}

// Runner — периодический цикл проверки сигналов по всем символам.
type Runner struct {
	symbols      []string
	interval     time.Duration
	firstDelay   time.Duration
	pause        time.Duration
	fetchTimeout time.Duration
	leverage     int
	mult         strategy.Multipliers

	market   MarketData
	delta    DeltaSource
	notifier notify.Notifier
	composer *strategy.Composer
	cooldown *Cooldown
	state    *service.State
	log      *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	cycles  sync.WaitGroup
}

func New(
	cfg *config.Config,
	market MarketData,
	delta DeltaSource,
	n notify.Notifier,
	state *service.State,
	log *zap.Logger,
) *Runner {
	return &Runner{
		symbols:      cfg.Symbols,
		interval:     cfg.CycleInterval,
		firstDelay:   cfg.FirstCheckDelay,
		pause:        cfg.SymbolPause,
		fetchTimeout: cfg.FetchTimeout,
		leverage:     cfg.Leverage,
		mult:         cfg.Multipliers,
		market:       market,
		delta:        delta,
		notifier:     n,
		composer:     strategy.NewComposer(cfg.Strategy),
		cooldown:     NewCooldown(cfg.Cooldown),
		state:        state,
		log:          log.Named("runner"),
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Start: первый цикл через firstDelay, дальше каждые interval.
func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	r.log.Info("runner started",
		zap.Strings("symbols", r.symbols),
		zap.Duration("interval", r.interval),
		zap.Duration("first_delay", r.firstDelay),
	)

	go func() {
		defer close(r.done)

		r.sleep(ctx, r.firstDelay)
		if ctx.Err() != nil {
			return
		}
		r.spawnCycle(ctx)

		t := time.NewTicker(r.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r.spawnCycle(ctx)
			}
		}
	}()
}

// spawnCycle не ждёт цикл, чтобы тик во время долгого цикла пропускался, а не копился.
func (r *Runner) spawnCycle(ctx context.Context) {
	r.cycles.Add(1)
	go func() {
		defer r.cycles.Done()
		r.CheckSignals(ctx)
	}()
}

func (r *Runner) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cycles.Wait()
	r.log.Info("runner stopped")
}

// CheckSignals — один цикл: символы строго по очереди с паузой между ними.
// Возвращает сигналы, созданные в этом цикле.
func (r *Runner) CheckSignals(ctx context.Context) []models.AlertEvent {
	if !r.running.CompareAndSwap(false, true) {
		r.log.Warn("previous cycle still running, tick skipped")
		return nil
	}
	defer r.running.Store(false)

	span, ctx := opentracing.StartSpanFromContext(ctx, "check_signals")
	defer span.Finish()

	started := time.Now()
	r.log.Info("cycle started", zap.Int("symbols", len(r.symbols)))

	var alerts []models.AlertEvent
	for i, sym := range r.symbols {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			r.sleep(ctx, r.pause)
		}
		alerts = append(alerts, r.checkSymbol(ctx, sym)...)
	}

	elapsed := time.Since(started)
	metrics.CycleSeconds.Observe(elapsed.Seconds())
	if r.state != nil {
		r.state.TouchCycle(r.now())
	}
	span.SetTag("alerts", len(alerts))
	r.log.Info("cycle finished", zap.Int("alerts", len(alerts)), zap.Duration("took", elapsed))
	return alerts
}

func (r *Runner) checkSymbol(ctx context.Context, sym string) (alerts []models.AlertEvent) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "check_symbol")
	span.SetTag("symbol", sym)
	defer span.Finish()

	log := r.log.With(zap.String("symbol", sym))
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("symbol check panicked", zap.Any("panic", rec))
			metrics.SkippedTotal.WithLabelValues(sym, "panic").Inc()
			span.SetTag("error", true)
		}
	}()

	in := r.gather(ctx, sym, log)

	d, err := r.composer.Evaluate(in)
	if err != nil {
		log.Info("insufficient data, skip", zap.Error(err))
		metrics.SkippedTotal.WithLabelValues(sym, "insufficient_data").Inc()
		return nil
	}
	logDecision(log, d)

	now := r.now()
	for _, dir := range d.Directions() {
		dlog := log.With(zap.String("direction", string(dir)))
		if !r.cooldown.Allow(sym, dir, now) {
			last, _ := r.cooldown.Last(sym, dir)
			dlog.Info("signal suppressed by cooldown", zap.Time("last_fire", last))
			metrics.SuppressedTotal.WithLabelValues(sym, string(dir)).Inc()
			continue
		}

		ev := strategy.ComposeAlert(sym, dir, d.Snapshot.Price, d.Snapshot.ATR, r.mult, r.leverage, now)
		r.cooldown.Record(sym, dir, now)
		dlog.Info("signal", zap.String("price", ev.EntryPrice.String()), zap.String("atr", d.Snapshot.ATR.String()))

		r.notifier.Notify(ctx, ev)
		metrics.AlertsTotal.WithLabelValues(sym, string(dir)).Inc()
		alerts = append(alerts, ev)
	}
	return alerts
}

// gather: четыре таймфрейма параллельно, затем OI и LSR последовательно.
// Ошибка или таймаут любого запроса = пустые данные для этой части.
func (r *Runner) gather(ctx context.Context, sym string, log *zap.Logger) strategy.Inputs {
	series := make([]models.PriceSeries, len(timeframes))

	var wg sync.WaitGroup
	for i, tf := range timeframes {
		i, tf := i, tf
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("klines fetch panicked", zap.String("interval", tf.interval), zap.Any("panic", rec))
					series[i] = models.PriceSeries{Symbol: sym, Interval: tf.interval}
				}
			}()

			fctx, cancel := r.fetchContext(ctx)
			defer cancel()
			s, err := r.market.Klines(fctx, sym, tf.interval, tf.limit)
			if err != nil {
				log.Warn("klines fetch failed", zap.String("interval", tf.interval), zap.Error(err))
				s = models.PriceSeries{Symbol: sym, Interval: tf.interval}
			}
			series[i] = s
		}()
	}
	wg.Wait()

	in := strategy.Inputs{
		Symbol: sym,
		M15:    series[0],
		H1:     series[1],
		H4:     series[2],
		D1:     series[3],
	}

	oiCtx, cancel := r.fetchContext(ctx)
	oi, err := r.market.OpenInterest(oiCtx, sym)
	cancel()
	if err != nil {
		log.Warn("open interest fetch failed", zap.Error(err))
		oi = models.MetricSnapshot{}
	}
	in.OpenInterest = oi

	lsrCtx, cancel := r.fetchContext(ctx)
	lsr, err := r.market.LongShortRatio(lsrCtx, sym)
	cancel()
	if err != nil {
		log.Warn("long/short ratio fetch failed", zap.Error(err))
		lsr = models.MetricSnapshot{}
	}
	in.LongShortRatio = lsr

	in.VolumeDelta = r.delta.Delta(sym)
	return in
}

func (r *Runner) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.fetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.fetchTimeout)
}

func logDecision(log *zap.Logger, d strategy.Decision) {
	s := d.Snapshot
	log.Debug("evaluated",
		zap.String("price", s.Price.String()),
		zap.String("atr", s.ATR.String()),
		zap.String("rsi", s.RSI.String()),
		zap.String("ema13", s.EMAAux.Current.String()),
		zap.String("ema17", s.EMAFast.Current.String()),
		zap.String("ema34", s.EMASlow.Current.String()),
		zap.String("cci15m", s.CCI.String()),
		zap.String("cci15m_sma", s.CCISMA.String()),
		zap.String("cci1h", s.CCI1h.String()),
		zap.String("cci1h_sma", s.CCISMA1h.String()),
		zap.String("cci4h", s.CCI4h.String()),
		zap.String("oi_change", s.OIChange.Formatted),
		zap.String("lsr", s.LSR.String()),
		zap.String("lsr_change", s.LSRChange.Formatted),
		zap.String("volume_delta", s.VolumeDelta.String()),
		zap.Strings("long_failed", strategy.Failed(d.LongChecks)),
		zap.Strings("short_failed", strategy.Failed(d.ShortChecks)),
	)
}
