package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveInbound("text", "processed")
	m.ObserveOutbound("sent")
	m.ObserveLLM("openai", "ok", 800*time.Millisecond)
	m.ObserveBooking("confirmed")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveInbound("text", "processed")
	m.ObserveOutbound("sent")
	m.ObserveLLM("gemini", "error", time.Second)
	m.ObserveBooking("slot_taken")
}
