package trace

import (
	"testing"

	"github.com/simcraft/simcraft/sim"
)

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSimulationTrace(Config{Level: LevelDecisions})

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.TotalDeliveries != 0 || summary.TotalOverflows != 0 || summary.TotalCascades != 0 {
		t.Error("expected all counts zero")
	}
	if len(summary.PayloadCounts) != 0 {
		t.Error("expected empty payload counts")
	}
}

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary.TotalDeliveries != 0 {
		t.Error("expected zero deliveries for nil trace")
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a trace with deliveries and overflows
	st := NewSimulationTrace(Config{Level: LevelDecisions})
	st.RecordDelivery(sim.DeliveryRecord{Event: sim.Event{Payload: sim.EventPayload{Kind: sim.PayloadResource}}})
	st.RecordDelivery(sim.DeliveryRecord{Event: sim.Event{Payload: sim.EventPayload{Kind: sim.PayloadResource}}})
	st.RecordDelivery(sim.DeliveryRecord{Event: sim.Event{Payload: sim.EventPayload{Kind: sim.PayloadPullRequest}}})
	st.RecordOverflow(sim.OverflowRecord{PoolID: "p1", Attempted: 10, Accepted: 4})
	st.RecordOverflow(sim.OverflowRecord{PoolID: "p1", Attempted: 6, Accepted: 6})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts match
	if summary.TotalDeliveries != 3 {
		t.Errorf("expected 3 deliveries, got %d", summary.TotalDeliveries)
	}
	if summary.PayloadCounts[string(sim.PayloadResource)] != 2 {
		t.Errorf("expected 2 Resource deliveries, got %d", summary.PayloadCounts[string(sim.PayloadResource)])
	}
	if summary.TotalOverflows != 2 {
		t.Errorf("expected 2 overflows, got %d", summary.TotalOverflows)
	}
	if summary.OverflowShortfall != 6 {
		t.Errorf("expected shortfall 6, got %g", summary.OverflowShortfall)
	}
}
