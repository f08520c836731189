package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAndSnapshot(t *testing.T) {
	m := New()
	m.PrimaryChanged()
	m.PrimaryChanged()
	m.CarrierRequest("deflect", "ok")
	m.PreviewTransition("NONE", "CAMERA_SET")

	if got := testutil.ToFloat64(m.primaryChanges); got != 2 {
		t.Errorf("primary changes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.carrierRequests.WithLabelValues("deflect", "ok")); got != 1 {
		t.Errorf("carrier requests = %v, want 1", got)
	}

	snap, err := m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap["incall_primary_changes_total"] != 2 {
		t.Errorf("snapshot primary = %v", snap["incall_primary_changes_total"])
	}
	key := "incall_preview_transitions_total{from=NONE,to=CAMERA_SET}"
	if snap[key] != 1 {
		t.Errorf("snapshot[%s] = %v, want 1", key, snap[key])
	}
	if _, ok := snap["incall_menu_changes_total"]; ok {
		t.Error("zero counters should be omitted")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.PrimaryChanged()
	m.Action("DIALPAD", "dispatched")
	m.Camera("acquire")
	snap, err := m.Snapshot()
	if err != nil || len(snap) != 0 {
		t.Errorf("Snapshot() = %v, %v", snap, err)
	}
}
