package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)

	if m.ActivityMutations == nil || m.RecalculationsDispatched == nil || m.RelayPublished == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.RecalculationDispatched(2)

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}
}

func TestNewTwiceOnSeparateRegistries(t *testing.T) {
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveMutation("create", nil, 10*time.Millisecond)
	m.ObserveMutation("create", errors.New("boom"), time.Millisecond)
	m.RecalculationDropped(DropBufferFull)
	m.RecalculationDropped(DropBufferFull)
	m.RecalculationDelivered()
	m.SetSubscribers(3)
	m.RelayPublish("redis", nil)

	if got := testutil.ToFloat64(m.ActivityMutations.WithLabelValues("create", "ok")); got != 1 {
		t.Errorf("expected 1 ok create, got %v", got)
	}
	if got := testutil.ToFloat64(m.ActivityMutations.WithLabelValues("create", "error")); got != 1 {
		t.Errorf("expected 1 failed create, got %v", got)
	}
	if got := testutil.ToFloat64(m.RecalculationsDropped.WithLabelValues(DropBufferFull)); got != 2 {
		t.Errorf("expected 2 drops, got %v", got)
	}
	if got := testutil.ToFloat64(m.RecalculationSubscribers); got != 3 {
		t.Errorf("expected 3 subscribers, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	m.ObserveMutation("delete", nil, time.Second)
	m.ObserveImport(5)
	m.RecalculationDispatched(1)
	m.RecalculationDelivered()
	m.RecalculationDropped(DropNoSubscribers)
	m.SetSubscribers(0)
	m.RelayPublish("log", nil)
	m.RateLimited()
}
