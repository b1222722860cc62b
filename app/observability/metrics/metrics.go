package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// Make fields public so they can be accessed from other packages.
type AppMetrics struct {
	LoginChecksTotal          metric.Int64Counter
	LoginRefusedTotal         metric.Int64Counter
	LifecycleTransitionsTotal metric.Int64Counter
	SweepRunsTotal            metric.Int64Counter
	SweepDeletedTotal         metric.Int64Counter
	SweepFailedTotal          metric.Int64Counter
	SweepDurationSeconds      metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("nepabhay-account-service")
		var err error
		m := &AppMetrics{}

		m.LoginChecksTotal, err = meter.Int64Counter(
			"login_checks_total",
			metric.WithDescription("Total number of pre-auth login classifications performed"),
			metric.WithUnit("{check}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_checks_total: %v", err)
		}

		m.LoginRefusedTotal, err = meter.Int64Counter(
			"login_refused_total",
			metric.WithDescription("Total number of logins refused before credential verification"),
			metric.WithUnit("{login}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_refused_total: %v", err)
		}

		m.LifecycleTransitionsTotal, err = meter.Int64Counter(
			"lifecycle_transitions_total",
			metric.WithDescription("Total number of committed account lifecycle transitions"),
			metric.WithUnit("{transition}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create lifecycle_transitions_total: %v", err)
		}

		m.SweepRunsTotal, err = meter.Int64Counter(
			"sweep_runs_total",
			metric.WithDescription("Total number of retention sweep runs"),
			metric.WithUnit("{run}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create sweep_runs_total: %v", err)
		}

		m.SweepDeletedTotal, err = meter.Int64Counter(
			"sweep_deleted_total",
			metric.WithDescription("Total number of accounts purged by the retention sweep"),
			metric.WithUnit("{account}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create sweep_deleted_total: %v", err)
		}

		m.SweepFailedTotal, err = meter.Int64Counter(
			"sweep_failed_total",
			metric.WithDescription("Total number of per-account failures during retention sweeps"),
			metric.WithUnit("{account}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create sweep_failed_total: %v", err)
		}

		m.SweepDurationSeconds, err = meter.Float64Histogram(
			"sweep_duration_seconds",
			metric.WithDescription("Duration of retention sweep runs in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create sweep_duration_seconds: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
