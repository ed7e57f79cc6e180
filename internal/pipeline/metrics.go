package pipeline

import "github.com/prometheus/client_golang/prometheus"

var (
	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vtond",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of try-on pipeline invocations by outcome",
		},
		[]string{"outcome"},
	)

	pipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vtond",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Duration of try-on pipeline invocations in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	pipelineLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vtond",
			Subsystem: "pipeline",
			Name:      "loaded",
			Help:      "1 if the try-on pipeline is loaded, 0 otherwise",
		},
	)
)

func init() {
	prometheus.MustRegister(pipelineRunsTotal, pipelineDuration, pipelineLoaded)
}

// Outcome labels for pipelineRunsTotal.
const (
	outcomeOK       = "ok"
	outcomeNoImage  = "no_image"
	outcomeError    = "error"
	outcomeCanceled = "canceled"
)
