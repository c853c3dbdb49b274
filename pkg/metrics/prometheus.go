package metrics

import (
	"bank_manager/internal/domain"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsCollector struct {
	registry          *prometheus.Registry
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	lifecycleEvents   *prometheus.CounterVec
	accounts          prometheus.Gauge
	accountBalance    *prometheus.GaugeVec
	logger            *slog.Logger
}

func NewMetricsCollector(logger *slog.Logger) *MetricsCollector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()

	collector := &MetricsCollector{
		registry: registry,
		operations: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "bank_operations_total",
			Help: "Total number of balance operations by outcome",
		}, []string{"operation", "outcome"}),
		operationDuration: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bank_operation_duration_seconds",
			Help:    "Time taken to process a balance operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		lifecycleEvents: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "bank_account_lifecycle_events_total",
			Help: "Account registrations and deletions",
		}, []string{"event"}),
		accounts: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Name: "bank_accounts",
			Help: "Number of registered accounts",
		}),
		accountBalance: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Name: "bank_account_balance",
			Help: "Current account balance",
		}, []string{"account_id", "currency"}),
		logger: logger,
	}

	return collector
}

func (m *MetricsCollector) RecordOperation(operation string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	m.operations.WithLabelValues(operation, outcome).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *MetricsCollector) UpdateAccountBalance(accountID, currency string, balance float64) {
	m.accountBalance.WithLabelValues(accountID, currency).Set(balance)
}

// HandleAccountEvent keeps the account gauges in step with the directory.
func (m *MetricsCollector) HandleAccountEvent(ctx context.Context, event domain.LifecycleEvent) error {
	m.lifecycleEvents.WithLabelValues(string(event.Type)).Inc()

	acc := event.Account
	switch event.Type {
	case domain.EventRegistered:
		m.accounts.Inc()
		m.accountBalance.WithLabelValues(acc.ID, string(acc.Currency)).Set(acc.Balance.InexactFloat64())
	case domain.EventDeleted:
		m.accounts.Dec()
		m.accountBalance.DeleteLabelValues(acc.ID, string(acc.Currency))
	}
	return nil
}

func (m *MetricsCollector) GetHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *MetricsCollector) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.GetHandler())

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		m.logger.Info("Starting metrics server", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()

	return server
}
