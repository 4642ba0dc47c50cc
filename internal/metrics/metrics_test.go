package metrics

import (
	"errors"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/client_golang/prometheus"

	"fuelstreams/internal/executor"
)

func counterValue(t *testing.T, c *prometheus.CounterVec, label string) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.WithLabelValues(label).Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestObserveExecutorStatsLabelsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveExecutorStats(executor.Stats{BlockHeight: 1, PacketCount: 5, Duration: 10 * time.Millisecond})
	m.ObserveExecutorStats(executor.Stats{BlockHeight: 2, Err: errors.New("boom")})

	if got := counterValue(t, m.BlocksProcessed, "success"); got != 1 {
		t.Errorf("expected 1 success, got %v", got)
	}
	if got := counterValue(t, m.BlocksProcessed, "error"); got != 1 {
		t.Errorf("expected 1 error, got %v", got)
	}
}

func TestSubscriptionGaugeTracksOpenAndClose(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SubscriptionOpened()
	m.SubscriptionOpened()
	m.SubscriptionClosed()

	out := &dto.Metric{}
	if err := m.ActiveSubscriptions.Write(out); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	if out.GetGauge().GetValue() != 1 {
		t.Errorf("expected gauge value 1, got %v", out.GetGauge().GetValue())
	}
}
