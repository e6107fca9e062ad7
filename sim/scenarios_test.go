package sim

import (
	"testing"

	"github.com/simcraft/simcraft/sim/internal/testutil"
)

// buildScenario constructs the processes and connections for one of the
// named end-to-end scenarios in spec.md §8 and returns a ready Simulation.
func buildScenario(t *testing.T, name string) *Simulation {
	t.Helper()

	switch name {
	case "S1_source_to_pool":
		source1 := NewSource("source1")
		pool1 := NewPool("pool1")
		conn := &Connection{ID: "c1", SourceID: "source1", SourcePort: "out", TargetID: "pool1", TargetPort: "in", FlowRate: 1.0}
		sim, err := New([]Processor{source1, pool1, NewStepper("stepper")}, []*Connection{conn})
		if err != nil {
			t.Fatalf("build S1: %v", err)
		}
		return sim

	case "S2_capacity_block":
		source1 := NewSource("source1")
		pool1, err := NewPoolWithConfig("pool1", PoolConfig{Capacity: 3, Overflow: OverflowBlock})
		if err != nil {
			t.Fatalf("build S2 pool: %v", err)
		}
		conn := &Connection{ID: "c1", SourceID: "source1", SourcePort: "out", TargetID: "pool1", TargetPort: "in", FlowRate: 1.0}
		sim, err := New([]Processor{source1, pool1, NewStepper("stepper")}, []*Connection{conn})
		if err != nil {
			t.Fatalf("build S2: %v", err)
		}
		return sim

	case "S3_capacity_drain":
		source1 := NewSource("source1")
		pool1, err := NewPoolWithConfig("pool1", PoolConfig{Capacity: 3, Overflow: OverflowDrain})
		if err != nil {
			t.Fatalf("build S3 pool: %v", err)
		}
		conn := &Connection{ID: "c1", SourceID: "source1", SourcePort: "out", TargetID: "pool1", TargetPort: "in", FlowRate: 1.0}
		sim, err := New([]Processor{source1, pool1, NewStepper("stepper")}, []*Connection{conn})
		if err != nil {
			t.Fatalf("build S3: %v", err)
		}
		return sim

	case "S4_multi_source":
		source1 := NewSource("source1")
		source2 := NewSource("source2")
		pool1 := NewPool("pool1")
		c1 := &Connection{ID: "c1", SourceID: "source1", SourcePort: "out", TargetID: "pool1", TargetPort: "in", FlowRate: 1.0}
		c2 := &Connection{ID: "c2", SourceID: "source2", SourcePort: "out", TargetID: "pool1", TargetPort: "in", FlowRate: 2.0}
		sim, err := New([]Processor{source1, source2, pool1, NewStepper("stepper")}, []*Connection{c1, c2})
		if err != nil {
			t.Fatalf("build S4: %v", err)
		}
		return sim

	case "S5_delay_per_unit":
		source1 := NewSource("source1")
		delay1 := NewDelay("delay1")
		drain1 := NewDrain("drain1")
		c1 := &Connection{ID: "c1", SourceID: "source1", SourcePort: "out", TargetID: "delay1", TargetPort: "in", FlowRate: 1.0}
		c2 := &Connection{ID: "c2", SourceID: "delay1", SourcePort: "out", TargetID: "drain1", TargetPort: "in", FlowRate: 2.0}
		sim, err := New([]Processor{source1, delay1, drain1, NewStepper("stepper")}, []*Connection{c1, c2})
		if err != nil {
			t.Fatalf("build S5: %v", err)
		}
		return sim

	case "S6_delay_queue":
		source1 := NewSource("source1")
		delay1, err := NewDelayWithConfig("delay1", DelayConfig{Action: DelayQueue, ReleaseAmount: 3})
		if err != nil {
			t.Fatalf("build S6 delay: %v", err)
		}
		drain1 := NewDrain("drain1")
		c1 := &Connection{ID: "c1", SourceID: "source1", SourcePort: "out", TargetID: "delay1", TargetPort: "in", FlowRate: 1.0}
		c2 := &Connection{ID: "c2", SourceID: "delay1", SourcePort: "out", TargetID: "drain1", TargetPort: "in", FlowRate: 2.0}
		sim, err := New([]Processor{source1, delay1, drain1, NewStepper("stepper")}, []*Connection{c1, c2})
		if err != nil {
			t.Fatalf("build S6: %v", err)
		}
		return sim

	default:
		t.Fatalf("unknown scenario %q", name)
		return nil
	}
}

// fieldsOf flattens a ProcessState's variant-specific fields into the same
// name -> value shape used by the golden dataset, so results can be
// compared without a type switch at every call site.
func fieldsOf(st ProcessState) map[string]float64 {
	switch st.Kind {
	case KindSource:
		return map[string]float64{"resources_produced": st.Source.ResourcesProduced}
	case KindPool:
		return map[string]float64{"resources": st.Pool.Resources}
	case KindDrain:
		return map[string]float64{"resources_consumed": st.Drain.ResourcesConsumed}
	case KindDelay:
		return map[string]float64{
			"resources_received": st.Delay.ResourcesReceived,
			"resources_released": st.Delay.ResourcesReleased,
		}
	case KindStepper:
		return map[string]float64{"current_step": float64(st.Stepper.CurrentStep)}
	default:
		return nil
	}
}

func TestScenarios(t *testing.T) {
	dataset := testutil.LoadScenarioDataset(t)

	for _, sc := range dataset.Scenarios {
		sc := sc
		t.Run(sc.Name, func(t *testing.T) {
			simulation := buildScenario(t, sc.Name)

			if _, err := simulation.StepN(sc.Steps); err != nil {
				t.Fatalf("StepN(%d): %v", sc.Steps, err)
			}

			testutil.AssertFloat64Equal(t, sc.Name+".time", sc.ExpectedTime, simulation.CurrentTime(), 1e-9)
			if simulation.CurrentStep() != sc.ExpectedStep {
				t.Errorf("%s.step: got %d, want %d", sc.Name, simulation.CurrentStep(), sc.ExpectedStep)
			}

			for id, want := range sc.ExpectedState {
				p, ok := simulation.Process(id)
				if !ok {
					t.Fatalf("%s: process %q not found", sc.Name, id)
				}
				got := fieldsOf(p.StateSnapshot())
				for field, wantVal := range want {
					gotVal, ok := got[field]
					if !ok {
						t.Errorf("%s.%s: field %q not present in state", sc.Name, id, field)
						continue
					}
					testutil.AssertFloat64Equal(t, sc.Name+"."+id+"."+field, wantVal, gotVal, 1e-9)
				}
			}
		})
	}
}
