// Package loader builds a sim.Simulation from a declarative model: the
// inline block DSL (dsl.go) or strict YAML (yaml.go). Both surfaces lower
// to the same Document before any process is constructed, so validation
// and error reporting behave identically regardless of which surface the
// caller used (spec.md §6).
package loader

import "github.com/simcraft/simcraft/sim"

// Document is the parsed, surface-independent form of a model: an
// ordered list of process records and an ordered list of connection
// records, ready to feed sim.NewProcessFromRecord / sim.New.
type Document struct {
	Processes   []sim.ProcessRecord   `yaml:"processes"`
	Connections []sim.ConnectionRecord `yaml:"connections"`
}

// Build instantiates every process and connection record in doc and wires
// them into a new Simulation. A process record naming an unknown type or a
// connection record naming an unknown port fails the whole build — Build
// never returns a partially constructed Simulation. Unlike the original
// DSL macro, no default Stepper is inserted when doc declares none: a
// simulation without a Stepper is legal, and auto-inserting one would
// silently contradict a caller that built a model without one on purpose.
func Build(doc *Document) (*sim.Simulation, error) {
	processes := make([]sim.Processor, 0, len(doc.Processes))
	for _, rec := range doc.Processes {
		p, err := sim.NewProcessFromRecord(rec)
		if err != nil {
			return nil, err
		}
		processes = append(processes, p)
	}

	connections := make([]*sim.Connection, 0, len(doc.Connections))
	for _, rec := range doc.Connections {
		c, err := sim.NewConnectionFromRecord(rec)
		if err != nil {
			return nil, err
		}
		connections = append(connections, c)
	}

	return sim.New(processes, connections)
}

// Dump converts a live Simulation back into its Document form, the
// inverse of Build modulo field defaulting (spec.md §8 property 7: a
// model loaded and re-dumped builds an equivalent simulation).
func Dump(s *sim.Simulation) *Document {
	doc := &Document{}
	for _, p := range s.Processes() {
		doc.Processes = append(doc.Processes, processToRecord(p))
	}
	for _, c := range s.Connections() {
		fr := c.FlowRate
		doc.Connections = append(doc.Connections, sim.ConnectionRecord{
			ID:         c.ID,
			SourceID:   c.SourceID,
			SourcePort: c.SourcePort,
			TargetID:   c.TargetID,
			TargetPort: c.TargetPort,
			FlowRate:   &fr,
		})
	}
	return doc
}

func processToRecord(p sim.Processor) sim.ProcessRecord {
	rec := sim.ProcessRecord{ID: p.ID(), Type: p.Kind()}
	switch v := p.(type) {
	case *sim.Source:
		cfg := v.Config()
		rec.TriggerMode, rec.Action = cfg.TriggerMode, string(cfg.Action)
	case *sim.Pool:
		cfg := v.Config()
		rec.TriggerMode, rec.Action, rec.Overflow = cfg.TriggerMode, string(cfg.Action), cfg.Overflow
		cap := cfg.Capacity
		rec.Capacity = &cap
		res := v.StateSnapshot().Pool.Resources
		rec.InitialResources = &res
	case *sim.Drain:
		cfg := v.Config()
		rec.TriggerMode, rec.Action = cfg.TriggerMode, string(cfg.Action)
	case *sim.Delay:
		cfg := v.Config()
		rec.TriggerMode, rec.Action = cfg.TriggerMode, string(cfg.Action)
		amt := cfg.ReleaseAmount
		rec.ReleaseAmount = &amt
	case *sim.Stepper:
		dt := v.Dt()
		rec.Dt = &dt
	}
	return rec
}
