package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BacktestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backtest_runs_total",
		Help: "Total number of backtest runs by engine and terminal status",
	}, []string{"engine", "status"})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backtest_run_duration_seconds",
		Help:    "Wall-clock duration of backtest runs",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"engine"})

	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backtest_active_runs",
		Help: "Number of simulations currently executing",
	})

	StoredResults = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backtest_stored_results",
		Help: "Number of results currently retained in the store",
	})
)
