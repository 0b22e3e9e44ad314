// Package metrics exposes operation and RPC counters for Prometheus.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
	"github.com/Mohsinsiddi/tokendash/internal/operation"
	"github.com/Mohsinsiddi/tokendash/internal/session"
)

const namespace = "tokendash"

// Metrics owns a private registry so tests and multiple dashboards never
// collide on the default one.
type Metrics struct {
	Registry *prometheus.Registry

	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	rpcErrors  *prometheus.CounterVec
	connected  prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Operations that reached a terminal status.",
			},
			[]string{"kind", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Time from submit to finality or failure.",
				Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
			},
			[]string{"kind"},
		),
		rpcErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_errors_total",
				Help:      "Failed JSON-RPC requests by method.",
			},
			[]string{"method"},
		),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_connected",
			Help:      "1 while a wallet session is connected.",
		}),
	}
	m.Registry.MustRegister(
		m.operations,
		m.duration,
		m.rpcErrors,
		m.connected,
		prometheus.NewGoCollector(),
	)
	return m
}

// ObserveOperation records terminal events; others are ignored.
func (m *Metrics) ObserveOperation(ev operation.Event) {
	if !ev.Status.Terminal() {
		return
	}
	result := "ok"
	if ev.Status == operation.Error {
		result = chain.Classify(ev.Err)
	}
	m.operations.WithLabelValues(string(ev.Kind), result).Inc()
	m.duration.WithLabelValues(string(ev.Kind)).Observe(ev.Duration.Seconds())
}

// ObserveSession tracks the connected gauge.
func (m *Metrics) ObserveSession(st session.State, _ session.Session) {
	if st == session.Connected {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Info("Serving metrics", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Operations is the operations_total counter.
func (m *Metrics) Operations() *prometheus.CounterVec { return m.operations }

// Connected is the session_connected gauge.
func (m *Metrics) Connected() prometheus.Gauge { return m.connected }
