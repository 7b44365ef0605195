package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistryRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewWithRegistry(registry)

	if m.TransactionsRegistered == nil || m.BatchesPublished == nil || m.DeliveriesAcked == nil || m.HTTPRequests == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.BatchesPublished.Inc()
	m.TransactionsRegistered.WithLabelValues("credit").Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}

	if got := testutil.ToFloat64(m.BatchesPublished); got != 1 {
		t.Fatalf("expected 1 published batch, got %v", got)
	}
}

func TestNewWithRegistryTwiceOnSeparateRegistries(t *testing.T) {
	first := NewWithRegistry(prometheus.NewRegistry())
	second := NewWithRegistry(prometheus.NewRegistry())

	first.UpsertRetries.Inc()

	if got := testutil.ToFloat64(second.UpsertRetries); got != 0 {
		t.Fatalf("expected independent metric sets, got %v", got)
	}
}
