package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	transactions    *prometheus.CounterVec
	duplicates      prometheus.Counter
	signals         *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	leaderboardSize *prometheus.GaugeVec
}

// New creates a Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		transactions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "koltrack_transactions_total",
				Help: "Total number of transactions recorded",
			},
			[]string{"kind"},
		),
		duplicates: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "koltrack_duplicate_transactions_total",
				Help: "Total number of duplicate transaction submissions",
			},
		),
		signals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "koltrack_deviation_signals_total",
				Help: "Total number of deviation signals by type",
			},
			[]string{"type"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "koltrack_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "koltrack_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		leaderboardSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "koltrack_leaderboard_size",
				Help: "Number of ranked participants per window",
			},
			[]string{"window_hours"},
		),
	}
}

func (r *Recorder) RecordTransaction(kind string) {
	r.transactions.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordDuplicate() {
	r.duplicates.Inc()
}

func (r *Recorder) RecordSignal(signalType string) {
	r.signals.WithLabelValues(signalType).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordLeaderboardSize(windowHours, size int) {
	r.leaderboardSize.WithLabelValues(strconv.Itoa(windowHours)).Set(float64(size))
}

// Nop is a no-op Metrics implementation for tests.
type Nop struct{}

func (Nop) RecordTransaction(string)      {}
func (Nop) RecordDuplicate()              {}
func (Nop) RecordSignal(string)           {}
func (Nop) RecordError(string)            {}
func (Nop) RecordLatency(string, float64) {}
func (Nop) RecordLeaderboardSize(int, int) {}
