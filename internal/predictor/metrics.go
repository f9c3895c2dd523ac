package predictor

import "github.com/prometheus/client_golang/prometheus"

var (
	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "predictd",
			Subsystem: "predictor",
			Name:      "predictions_total",
			Help:      "Predictions by outcome",
		},
		[]string{"status"},
	)

	sequencesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "predictd",
			Subsystem: "predictor",
			Name:      "sequences_total",
			Help:      "Output sequences produced",
		},
	)

	predictDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "predictd",
			Subsystem: "predictor",
			Name:      "predict_duration_seconds",
			Help:      "Time spent decoding a prediction, queue wait excluded",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	queueWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "predictd",
			Subsystem: "predictor",
			Name:      "queue_wait_seconds",
			Help:      "Time spent waiting for the in-flight slot",
			Buckets:   prometheus.DefBuckets,
		},
	)

	setupDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "predictd",
			Subsystem: "predictor",
			Name:      "setup_duration_seconds",
			Help:      "Duration of the last successful setup",
		},
	)

	setupFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "predictd",
			Subsystem: "predictor",
			Name:      "setup_failures_total",
			Help:      "Failed setup attempts",
		},
	)
)

func init() {
	prometheus.MustRegister(predictionsTotal, sequencesTotal, predictDuration, queueWait, setupDuration, setupFailures)
}
