// Package metrics exposes batch progress as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/article-dl/pkg/models"
)

// Recorder turns scheduler events into metrics. It satisfies the scheduler's result and activity sinks.
type Recorder struct {
	registry *prometheus.Registry

	resultsTotal    *prometheus.CounterVec
	taskDuration    prometheus.Histogram
	contentBytes    prometheus.Counter
	activeWorkers   prometheus.Gauge
	restrictedTotal *prometheus.CounterVec
}

// NewRecorder registers the article metrics, plus Go runtime and process metrics, on a fresh registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		resultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "article_results_total",
				Help: "Total number of processed articles, labeled by outcome.",
			},
			[]string{"status"},
		),
		taskDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "article_fetch_duration_seconds",
				Help:    "Histogram of per-article processing time.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),
		contentBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "article_content_bytes_total",
				Help: "Total bytes of article pages fetched for successful items.",
			},
		),
		activeWorkers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "article_active_workers",
				Help: "Number of workers currently processing an article.",
			},
		),
		restrictedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "article_restricted_total",
				Help: "Primary attempts classified as restricted, labeled by reason.",
			},
			[]string{"reason"},
		),
	}
}

// Observe records one terminal result
func (r *Recorder) Observe(_ string, result models.Result) {
	r.resultsTotal.WithLabelValues(result.Status().String()).Inc()
	r.taskDuration.Observe((time.Duration(result.ElapsedMillis) * time.Millisecond).Seconds())
	if result.Success && result.ContentLength > 0 {
		r.contentBytes.Add(float64(result.ContentLength))
	}
	if result.Restriction != "" {
		r.restrictedTotal.WithLabelValues(result.Restriction).Inc()
	}
}

// TaskStarted increments the active worker gauge
func (r *Recorder) TaskStarted() { r.activeWorkers.Inc() }

// TaskFinished decrements the active worker gauge
func (r *Recorder) TaskFinished() { r.activeWorkers.Dec() }

// Handler returns the Prometheus HTTP handler for this recorder's registry
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled. It returns once the listener is closed.
func (r *Recorder) Serve(ctx context.Context, addr string, log *logrus.Entry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("Metrics server shutdown: %v", err)
		}
	}()

	log.Infof("Serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
