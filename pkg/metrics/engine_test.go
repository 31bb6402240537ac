package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestEngineMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngineMetrics(reg)

	m.IncTransition("IN_STOCK", "ACTIVE")
	m.IncTransition("IN_STOCK", "ACTIVE")
	m.IncAssignmentEvent("ASSIGNED")
	m.IncError("change_status", "REQUIRES_ASSIGNMENT")
	m.IncPartialSuccess("change_status_with_unassignment")
	m.ObserveMigration(5)
	m.SetViolations("active_without_user", 2)
	m.IncPublished("published")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "assettrack_status_transitions_total", "to", "ACTIVE"); err != nil || got != 2 {
		t.Fatalf("expected 2 transitions, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "assettrack_engine_errors_total", "code", "REQUIRES_ASSIGNMENT"); err != nil || got != 1 {
		t.Fatalf("expected 1 error, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "assettrack_partial_success_total", "operation", "change_status_with_unassignment"); err != nil || got != 1 {
		t.Fatalf("expected 1 partial success, got %f (%v)", got, err)
	}

	mf := findMetricFamily(mfs, "assettrack_po_migrated_assets_total")
	if mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 5 {
		t.Fatalf("expected 5 migrated assets")
	}
	gauge := findMetricFamily(mfs, "assettrack_invariant_violations")
	if gauge == nil || gauge.GetMetric()[0].GetGauge().GetValue() != 2 {
		t.Fatalf("expected violations gauge of 2")
	}
}

func TestEngineMetricsNilSafe(t *testing.T) {
	var m *EngineMetrics
	m.IncTransition("a", "b")
	m.IncAssignmentEvent("ASSIGNED")
	m.IncError("op", "code")
	m.IncPartialSuccess("op")
	m.ObserveMigration(1)
	m.SetViolations("kind", 1)
	m.IncPublished("published")

	unregistered := NewEngineMetrics(nil)
	unregistered.IncTransition("a", "b")
}
