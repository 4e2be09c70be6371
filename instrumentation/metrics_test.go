package instrumentation

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRequestsReceivedCounterIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RequestsReceived.WithLabelValues("auth", "1").Inc()
	m.RequestsReceived.WithLabelValues("auth", "1").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	var found *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "radiusd_requests_received_total" {
			found = f
		}
	}
	if found == nil {
		t.Fatalf("expected radiusd_requests_received_total to be registered")
	}
	if len(found.Metric) != 1 || found.Metric[0].GetCounter().GetValue() != 2 {
		t.Fatalf("expected counter value 2, got %+v", found.Metric)
	}
}

func TestInFlightGaugeSetAndGather(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.InFlightRequests.Set(5)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	var found bool
	for _, f := range families {
		if f.GetName() == "radiusd_requests_in_flight" {
			found = true
			if f.Metric[0].GetGauge().GetValue() != 5 {
				t.Fatalf("expected gauge value 5, got %v", f.Metric[0].GetGauge().GetValue())
			}
		}
	}
	if !found {
		t.Fatalf("expected radiusd_requests_in_flight to be registered")
	}
}
