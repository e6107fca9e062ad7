package sim

import "testing"

func TestSource_PushAny_EmitsPerConnectionAndDefersCounting(t *testing.T) {
	source := NewSource("s1")
	ctx := &ProcessContext{time: 1, step: 1, adj: newAdjacency()}
	conn := &Connection{ID: "c1", SourceID: "s1", SourcePort: "out", TargetID: "p1", TargetPort: "in", FlowRate: 2.0}
	ctx.adj.add(conn)

	events, err := source.OnTick(ctx)
	if err != nil {
		t.Fatalf("OnTick: %v", err)
	}
	if len(events) != 1 || events[0].Payload.Amount != 2.0 {
		t.Fatalf("expected one Resource(2.0) event, got %v", events)
	}
	if source.state.ResourcesProduced != 0 {
		t.Errorf("resources_produced should not increment until acknowledged, got %g", source.state.ResourcesProduced)
	}
}

func TestSource_OnMessage_AccumulatesOnlyAccepted(t *testing.T) {
	source := NewSource("s1")
	ctx := &ProcessContext{time: 1, step: 1, adj: newAdjacency()}

	if _, err := source.OnMessage(ctx, Event{Payload: EventPayload{Kind: PayloadResourceAccepted, Amount: 3}}); err != nil {
		t.Fatalf("OnMessage(Accepted): %v", err)
	}
	if source.state.ResourcesProduced != 3 {
		t.Errorf("expected resources_produced=3, got %g", source.state.ResourcesProduced)
	}

	if _, err := source.OnMessage(ctx, Event{Payload: EventPayload{Kind: PayloadResourceRejected, Amount: 10}}); err != nil {
		t.Fatalf("OnMessage(Rejected): %v", err)
	}
	if source.state.ResourcesProduced != 3 {
		t.Errorf("rejected amount must not affect resources_produced, got %g", source.state.ResourcesProduced)
	}
}

func TestSource_PassiveTriggerMode_DoesNothingOnTick(t *testing.T) {
	source, err := NewSourceWithConfig("s1", SourceConfig{TriggerMode: Passive})
	if err != nil {
		t.Fatalf("NewSourceWithConfig: %v", err)
	}
	ctx := &ProcessContext{time: 1, step: 1, adj: newAdjacency()}
	events, err := source.OnTick(ctx)
	if err != nil {
		t.Fatalf("OnTick: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events for passive source, got %v", events)
	}
}

func TestSource_OnMessage_PullRequest_RepliesWithResource(t *testing.T) {
	source := NewSource("s1")
	ctx := &ProcessContext{time: 1, step: 1, adj: newAdjacency()}
	events, err := source.OnMessage(ctx, Event{
		SourceID: "pool1", SourcePort: "in",
		Payload: EventPayload{Kind: PayloadPullRequest, Amount: 4},
	})
	if err != nil {
		t.Fatalf("OnMessage(PullRequest): %v", err)
	}
	if len(events) != 1 || events[0].Payload.Kind != PayloadResource || events[0].Payload.Amount != 4 {
		t.Fatalf("expected a single Resource(4) reply, got %v", events)
	}
	if events[0].TargetID != "pool1" {
		t.Errorf("expected reply targeted at puller, got %q", events[0].TargetID)
	}
}
