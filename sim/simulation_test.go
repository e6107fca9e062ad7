package sim

import "testing"

// statesEqual compares two ProcessState values by their pointed-to content
// rather than pointer identity: StateSnapshot always returns a fresh
// pointer, so comparing ProcessState with == would always see them as
// different even when the underlying counters match.
func statesEqual(a, b ProcessState) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindSource:
		return *a.Source == *b.Source
	case KindPool:
		return *a.Pool == *b.Pool
	case KindDrain:
		return *a.Drain == *b.Drain
	case KindDelay:
		return *a.Delay == *b.Delay
	case KindStepper:
		return *a.Stepper == *b.Stepper
	default:
		return true
	}
}

func buildSourcePoolSim(t *testing.T) *Simulation {
	t.Helper()
	source := NewSource("source1")
	pool := NewPool("pool1")
	conn := &Connection{ID: "c1", SourceID: "source1", SourcePort: "out", TargetID: "pool1", TargetPort: "in", FlowRate: 1.0}
	sim, err := New([]Processor{source, pool, NewStepper("stepper")}, []*Connection{conn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sim
}

func TestSimulation_Determinism_SameStepsYieldSameSnapshot(t *testing.T) {
	a := buildSourcePoolSim(t)
	b := buildSourcePoolSim(t)

	if _, err := a.StepN(10); err != nil {
		t.Fatalf("a.StepN: %v", err)
	}
	if _, err := b.StepN(10); err != nil {
		t.Fatalf("b.StepN: %v", err)
	}

	snapA, snapB := a.GetSimulationState(), b.GetSimulationState()
	if snapA.Time != snapB.Time || snapA.Step != snapB.Step {
		t.Fatalf("clocks diverged: %+v vs %+v", snapA, snapB)
	}
	for i := range snapA.ProcessStates {
		if !statesEqual(snapA.ProcessStates[i].State, snapB.ProcessStates[i].State) {
			t.Errorf("process %d state diverged: %+v vs %+v", i, snapA.ProcessStates[i], snapB.ProcessStates[i])
		}
	}
}

func TestSimulation_Conservation_NoDrainsNoBlocks(t *testing.T) {
	sim := buildSourcePoolSim(t)
	if _, err := sim.StepN(7); err != nil {
		t.Fatalf("StepN: %v", err)
	}
	source, _ := sim.Process("source1")
	pool, _ := sim.Process("pool1")
	produced := source.StateSnapshot().Source.ResourcesProduced
	resources := pool.StateSnapshot().Pool.Resources
	if produced != resources {
		t.Errorf("conservation violated: produced=%g resources=%g", produced, resources)
	}
}

func TestSimulation_Monotonicity_CountersNeverDecrease(t *testing.T) {
	sim := buildSourcePoolSim(t)
	var prevProduced, prevResources float64
	for i := 0; i < 5; i++ {
		if _, err := sim.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
		source, _ := sim.Process("source1")
		pool, _ := sim.Process("pool1")
		produced := source.StateSnapshot().Source.ResourcesProduced
		resources := pool.StateSnapshot().Pool.Resources
		if produced < prevProduced || resources < prevResources {
			t.Fatalf("step %d: counters decreased (produced %g->%g, resources %g->%g)",
				i, prevProduced, produced, prevResources, resources)
		}
		prevProduced, prevResources = produced, resources
	}
}

func TestSimulation_PoolBounds_NeverExceedsCapacity(t *testing.T) {
	pool, err := NewPoolWithConfig("pool1", PoolConfig{Capacity: 3, Overflow: OverflowBlock})
	if err != nil {
		t.Fatalf("NewPoolWithConfig: %v", err)
	}
	source := NewSource("source1")
	conn := &Connection{ID: "c1", SourceID: "source1", SourcePort: "out", TargetID: "pool1", TargetPort: "in", FlowRate: 1.0}
	sim, err := New([]Processor{source, pool, NewStepper("stepper")}, []*Connection{conn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 10; i++ {
		if _, err := sim.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
		p, _ := sim.Process("pool1")
		resources := p.StateSnapshot().Pool.Resources
		if resources < 0 || resources > 3 {
			t.Fatalf("step %d: resources=%g out of bounds [0,3]", i, resources)
		}
	}
}

func TestSimulation_SameTimeOrdering_RegistrationOrderTraversal(t *testing.T) {
	// Two sources pushing into the same drain at the same tick; the drain is
	// Automatic PullAny, so it also pulls from both sources, and each source
	// answers its pull with a second Resource event. All four Resource
	// events share a time and priority band, so they must be delivered in
	// emission order: the two tick pushes in registration order, then the
	// two pull answers in the order the drain asked for them.
	source1 := NewSource("source1")
	source2 := NewSource("source2")
	drain := NewDrain("drain1")
	c1 := &Connection{ID: "c1", SourceID: "source1", SourcePort: "out", TargetID: "drain1", TargetPort: "in", FlowRate: 1.0}
	c2 := &Connection{ID: "c2", SourceID: "source2", SourcePort: "out", TargetID: "drain1", TargetPort: "in", FlowRate: 1.0}
	sim, err := New([]Processor{source1, source2, drain, NewStepper("stepper")}, []*Connection{c1, c2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	delivered, err := sim.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	var resourceSourceOrder []string
	for _, e := range delivered {
		if e.Payload.Kind == PayloadResource {
			resourceSourceOrder = append(resourceSourceOrder, e.SourceID)
		}
	}
	want := []string{"source1", "source2", "source1", "source2"}
	if len(resourceSourceOrder) != len(want) {
		t.Fatalf("expected Resource deliveries %v, got %v", want, resourceSourceOrder)
	}
	for i := range want {
		if resourceSourceOrder[i] != want[i] {
			t.Errorf("expected Resource deliveries in emission order %v, got %v", want, resourceSourceOrder)
			break
		}
	}
}

func TestSimulation_ResetIdempotence(t *testing.T) {
	a := buildSourcePoolSim(t)
	if _, err := a.StepN(4); err != nil {
		t.Fatalf("StepN: %v", err)
	}
	a.Reset()
	if _, err := a.StepN(4); err != nil {
		t.Fatalf("StepN after reset: %v", err)
	}

	fresh := buildSourcePoolSim(t)
	if _, err := fresh.StepN(4); err != nil {
		t.Fatalf("fresh.StepN: %v", err)
	}

	snapA, snapFresh := a.GetSimulationState(), fresh.GetSimulationState()
	if snapA.Time != snapFresh.Time || snapA.Step != snapFresh.Step {
		t.Fatalf("reset trajectory diverged from fresh: %+v vs %+v", snapA, snapFresh)
	}
	for i := range snapA.ProcessStates {
		if !statesEqual(snapA.ProcessStates[i].State, snapFresh.ProcessStates[i].State) {
			t.Errorf("process %d diverged after reset: %+v vs %+v", i, snapA.ProcessStates[i], snapFresh.ProcessStates[i])
		}
	}
}

func TestSimulation_FailedAddConnection_LeavesStateUnchanged(t *testing.T) {
	// A structural edit that fails validation must leave the simulation as
	// it was. This does not exercise the CascadeOverflow rollback path.
	sim := buildSourcePoolSim(t)
	if _, err := sim.StepN(3); err != nil {
		t.Fatalf("StepN: %v", err)
	}
	before := sim.GetSimulationState()

	// AddConnection with an unknown target must fail without mutating state.
	err := sim.AddConnection(&Connection{ID: "bad", SourceID: "source1", SourcePort: "out", TargetID: "nope", TargetPort: "in"})
	if err == nil {
		t.Fatal("expected error for unknown target")
	}
	after := sim.GetSimulationState()
	if before.Time != after.Time || len(sim.Connections()) != 1 {
		t.Errorf("failed AddConnection must not mutate simulation state")
	}
}

func TestSimulation_AddConnection_RejectsUnknownPort(t *testing.T) {
	sim := buildSourcePoolSim(t)
	err := sim.AddConnection(&Connection{ID: "c2", SourceID: "source1", SourcePort: "out", TargetID: "pool1", TargetPort: "sideways"})
	if err == nil {
		t.Fatal("expected PortUnknown error")
	}
	simErr, ok := err.(*SimulationError)
	if !ok || simErr.Kind != PortUnknown {
		t.Errorf("expected PortUnknown, got %v", err)
	}
}

func TestSimulation_RemoveProcess_DropsDanglingConnections(t *testing.T) {
	sim := buildSourcePoolSim(t)
	if err := sim.RemoveProcess("source1"); err != nil {
		t.Fatalf("RemoveProcess: %v", err)
	}
	if len(sim.Connections()) != 0 {
		t.Errorf("expected dangling connection removed, got %v", sim.Connections())
	}
}
