package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Decision ticks run"},
	)
	TickFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tick_failures_total", Help: "Ticks aborted by an error or panic"},
	)
	ForecastsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "forecasts_total", Help: "Forecasts accepted from the oracle"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted"},
		[]string{"kind", "side"},
	)
	SkipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "skips_total", Help: "Actions skipped, by reason"},
		[]string{"reason"},
	)
	OpenPosition = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "open_position", Help: "1 while a position is open"},
	)
	TickDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "tick_duration_seconds", Help: "Duration of the last tick"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, TickFailures, ForecastsTotal, OrdersTotal, SkipsTotal, OpenPosition, TickDuration)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
