package sim

import "testing"

func TestDrain_OnMessage_UnconditionallyAcceptsAndAcks(t *testing.T) {
	drain := NewDrain("d1")
	ctx := &ProcessContext{time: 1, step: 1, adj: newAdjacency()}

	events, err := drain.OnMessage(ctx, Event{
		SourceID: "s1", SourcePort: "out",
		Payload: EventPayload{Kind: PayloadResource, Amount: 7},
	})
	if err != nil {
		t.Fatalf("OnMessage: %v", err)
	}
	if drain.state.ResourcesConsumed != 7 {
		t.Errorf("expected resources_consumed=7, got %g", drain.state.ResourcesConsumed)
	}
	if len(events) != 1 || events[0].Payload.Kind != PayloadResourceAccepted || events[0].Payload.Amount != 7 {
		t.Fatalf("expected a single Accepted(7) ack, got %v", events)
	}
}

func TestDrain_OnTick_PullAny_RequestsFromEveryInput(t *testing.T) {
	drain := NewDrain("d1")
	ctx := &ProcessContext{time: 2, step: 2, adj: newAdjacency()}
	ctx.adj.add(&Connection{ID: "c1", SourceID: "s1", SourcePort: "out", TargetID: "d1", TargetPort: "in", FlowRate: 1.0})
	ctx.adj.add(&Connection{ID: "c2", SourceID: "s2", SourcePort: "out", TargetID: "d1", TargetPort: "in", FlowRate: 3.0})

	events, err := drain.OnTick(ctx)
	if err != nil {
		t.Fatalf("OnTick: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected two pull requests, got %v", events)
	}
	for i, want := range []float64{1.0, 3.0} {
		if events[i].Payload.Kind != PayloadPullRequest || events[i].Payload.Amount != want {
			t.Errorf("event %d: got %v, want PullRequest(%g)", i, events[i], want)
		}
	}
}

func TestDrain_InvalidAction_RejectedAtConstruction(t *testing.T) {
	if _, err := NewDrainWithConfig("d1", DrainConfig{Action: PushAny}); err == nil {
		t.Fatal("expected error constructing Drain with a Push action")
	}
}
