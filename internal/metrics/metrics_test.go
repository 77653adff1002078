package metrics

import (
	"testing"
	"time"
)

func TestSummaryAggregatesCounters(t *testing.T) {
	r := New()
	r.AddRead("eccc", "samples", 100)
	r.AddRead("gemstat", "samples", 50)
	r.AddCleaned("eccc", "samples", 90)
	r.AddRejected("eccc", 3)
	r.AddViolations(2)
	r.ObserveStage("clean-eccc", 125*time.Millisecond)

	sum := r.Summary()
	if got := sum["swatch_records_read_total"]; got != 150 {
		t.Fatalf("records read = %v, want 150", got)
	}
	if got := sum["swatch_referential_violations_total"]; got != 2 {
		t.Fatalf("violations = %v, want 2", got)
	}
	if got := sum["swatch_stage_duration_seconds"]; got != 1 {
		t.Fatalf("stage observations = %v, want 1", got)
	}
}

func TestNamesSorted(t *testing.T) {
	r := New()
	r.AddViolations(1)
	names := r.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}
