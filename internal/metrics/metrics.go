// Package metrics exports supervisor measurements to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/app-blackhole/internal/core"
	"github.com/user/app-blackhole/internal/logger"
)

var states = []core.State{
	core.StateStopped,
	core.StateStarting,
	core.StateConnected,
	core.StateReconnecting,
}

// Prometheus implements core.Metrics.
type Prometheus struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	state    *prometheus.GaugeVec
	blocked  prometheus.Gauge
	skipped  prometheus.Gauge
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	m := &Prometheus{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blackhole_attempts_total",
			Help: "Finished establishment attempts by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blackhole_establish_seconds",
			Help:    "Time from launching an attempt to its outcome.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"outcome"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "blackhole_state",
			Help: "1 for the current supervisor state, 0 otherwise.",
		}, []string{"state"}),
		blocked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blackhole_blocked_apps",
			Help: "Applications requested in the live configuration.",
		}),
		skipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blackhole_skipped_apps",
			Help: "Requested applications that could not be resolved.",
		}),
	}

	reg.MustRegister(m.attempts, m.duration, m.state, m.blocked, m.skipped)
	m.StateChanged(core.StateStopped)
	return m
}

// AttemptFinished records the outcome of one attempt.
func (m *Prometheus) AttemptFinished(outcome string, seconds float64) {
	m.attempts.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(seconds)
}

// StateChanged moves the state gauge.
func (m *Prometheus) StateChanged(state core.State) {
	for _, s := range states {
		value := 0.0
		if s == state {
			value = 1
		}
		m.state.WithLabelValues(string(s)).Set(value)
	}
	if state == core.StateStopped {
		m.blocked.Set(0)
		m.skipped.Set(0)
	}
}

// BlockedApps records the size of the live configuration.
func (m *Prometheus) BlockedApps(requested, skipped int) {
	m.blocked.Set(float64(requested))
	m.skipped.Set(float64(skipped))
}

// Serve exposes gatherer on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		defer logger.Recover("metrics shutdown")
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
