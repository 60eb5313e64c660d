package metrics

import (
	"net/http"
	"time"

	"cip-service/internal/application"
	"cip-service/internal/cip"
	"cip-service/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline exports run outcomes and filter counts to Prometheus.
type Pipeline struct {
	registry *prometheus.Registry
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
	flagged  *prometheus.CounterVec
}

var _ application.Observer = (*Pipeline)(nil)

func New() *Pipeline {
	p := &Pipeline{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cip",
			Name:      "runs_total",
			Help:      "Pipeline runs by final status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cip",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a pipeline run.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		flagged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cip",
			Name:      "outliers_flagged_total",
			Help:      "Deviation values removed by the rolling outlier filter.",
		}, []string{"currency"}),
	}
	p.registry.MustRegister(
		p.runs, p.duration, p.flagged,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Pipeline) RunFinished(status domain.RunStatus, elapsed time.Duration) {
	p.runs.WithLabelValues(string(status)).Inc()
	p.duration.Observe(elapsed.Seconds())
}

func (p *Pipeline) Filtered(report cip.FilterReport) {
	for col, n := range report {
		c, ok := domain.CurrencyOfDeviation(col)
		if !ok {
			continue
		}
		p.flagged.WithLabelValues(string(c)).Add(float64(n))
	}
}

// Handler serves the registry in the Prometheus text format.
func (p *Pipeline) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
