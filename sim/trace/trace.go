// Package trace provides decision-trace recording for simulation runs.
// It has no dependency on sim's internals beyond the Recorder interface
// and the record types sim exports for that purpose.
package trace

import "github.com/simcraft/simcraft/sim"

// Level controls the verbosity of decision tracing.
type Level string

const (
	// LevelNone disables tracing (zero overhead).
	LevelNone Level = "none"
	// LevelDecisions captures every delivery, overflow, and cascade record.
	LevelDecisions Level = "decisions"
)

var validLevels = map[Level]bool{
	LevelNone:      true,
	LevelDecisions: true,
	"":              true, // empty defaults to none
}

// IsValidLevel reports whether level is a recognized trace level.
func IsValidLevel(level string) bool {
	return validLevels[Level(level)]
}

// Config controls trace collection behavior.
type Config struct {
	Level Level
}

// SimulationTrace collects observability records during a run. It
// implements sim.Recorder, so it can be passed directly to
// Simulation.AttachTrace.
type SimulationTrace struct {
	Config     Config
	Deliveries []sim.DeliveryRecord
	Overflows  []sim.OverflowRecord
	Cascades   []sim.CascadeRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config Config) *SimulationTrace {
	return &SimulationTrace{
		Config:     config,
		Deliveries: make([]sim.DeliveryRecord, 0),
		Overflows:  make([]sim.OverflowRecord, 0),
		Cascades:   make([]sim.CascadeRecord, 0),
	}
}

func (st *SimulationTrace) RecordDelivery(r sim.DeliveryRecord) {
	if st.Config.Level == LevelNone {
		return
	}
	st.Deliveries = append(st.Deliveries, r)
}

func (st *SimulationTrace) RecordOverflow(r sim.OverflowRecord) {
	if st.Config.Level == LevelNone {
		return
	}
	st.Overflows = append(st.Overflows, r)
}

func (st *SimulationTrace) RecordCascade(r sim.CascadeRecord) {
	if st.Config.Level == LevelNone {
		return
	}
	st.Cascades = append(st.Cascades, r)
}
