package sim

import "fmt"

// StepperConfig configures a Stepper process (spec.md §4.6). TriggerMode is
// fixed to Automatic and is not part of the configurable surface.
type StepperConfig struct {
	Dt float64
}

func defaultStepperConfig() StepperConfig {
	return StepperConfig{Dt: 1.0}
}

func (c StepperConfig) validate() error {
	if c.Dt <= 0 {
		return errInvalidConfig("stepper: dt must be > 0, got %g", c.Dt)
	}
	return nil
}

// Stepper is the kernel's tick source. At most one is meaningful per
// simulation; the kernel reads its Dt to compute the next tick time and
// calls on_tick on it exactly like any other process, but never routes
// events to or from it through the connection table (spec.md §4.6).
type Stepper struct {
	id     string
	config StepperConfig
	state  StepperState
}

// NewStepper creates a Stepper with dt=1.0, matching original_source's
// Stepper::default().
func NewStepper(id string) *Stepper {
	return &Stepper{id: id, config: defaultStepperConfig()}
}

// NewStepperWithConfig creates a Stepper with an explicit dt.
func NewStepperWithConfig(id string, config StepperConfig) (*Stepper, error) {
	if config.Dt == 0 {
		config.Dt = 1.0
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Stepper{id: id, config: config}, nil
}

func (s *Stepper) ID() string            { return s.id }
func (s *Stepper) Kind() ProcessKind     { return KindStepper }
func (s *Stepper) InputPorts() []string  { return nil }
func (s *Stepper) OutputPorts() []string { return nil }
func (s *Stepper) String() string        { return fmt.Sprintf("Stepper(%s, dt=%g)", s.id, s.config.Dt) }

// Dt returns the configured tick interval, used by the kernel to advance
// the clock.
func (s *Stepper) Dt() float64 { return s.config.Dt }

func (s *Stepper) StateSnapshot() ProcessState {
	st := s.state
	return ProcessState{Kind: KindStepper, Stepper: &st}
}

func (s *Stepper) Reset() {
	s.state = StepperState{}
}

// UpdateConfig applies a new dt.
func (s *Stepper) UpdateConfig(config StepperConfig) error {
	if err := config.validate(); err != nil {
		return err
	}
	s.config = config
	return nil
}

// OnTick increments the step counter and emits nothing; the kernel itself
// is responsible for broadcasting the tick to other processes.
func (s *Stepper) OnTick(ctx *ProcessContext) ([]Event, error) {
	s.state.CurrentStep = ctx.Step()
	return nil, nil
}

// OnMessage is a no-op: the Stepper is never wired into the connection
// table, so it never receives events (spec.md §4.6).
func (s *Stepper) OnMessage(ctx *ProcessContext, event Event) ([]Event, error) {
	return nil, nil
}
