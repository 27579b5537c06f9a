package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signal_trades_total", Help: "Trades consumed from the live feed"},
		[]string{"symbol"},
	)
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signal_alerts_total", Help: "Alerts produced"},
		[]string{"symbol", "direction"},
	)
	SuppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signal_suppressed_total", Help: "Eligible signals suppressed by cooldown"},
		[]string{"symbol", "direction"},
	)
	SkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signal_skipped_total", Help: "Symbols skipped in a cycle"},
		[]string{"symbol", "reason"},
	)
	CycleSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "signal_cycle_seconds", Help: "Duration of one evaluation cycle", Buckets: prometheus.DefBuckets},
	)
	VolumeDelta = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "signal_volume_delta", Help: "Last published normalized volume delta"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(TradesTotal, AlertsTotal, SuppressedTotal, SkippedTotal, CycleSeconds, VolumeDelta)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
