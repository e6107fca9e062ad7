package sim

import "fmt"

// SourceConfig configures a Source process (spec.md §4.2).
type SourceConfig struct {
	TriggerMode TriggerMode
	Action      Action // only PushAny is implemented
}

func (c SourceConfig) validate() error {
	if !c.TriggerMode.valid() {
		return errInvalidConfig("source: invalid trigger_mode %q", c.TriggerMode)
	}
	if c.Action != "" && c.Action != PushAny {
		return errInvalidConfig("source: action %q not implemented (only PushAny)", c.Action)
	}
	return nil
}

// Source emits resource transfers on its "out" port. See spec.md §4.2 for
// the full trigger_mode/action contract.
type Source struct {
	id     string
	config SourceConfig
	state  SourceState
}

// NewSource creates a Source with default configuration (Automatic,
// PushAny), matching original_source's Source::default().
func NewSource(id string) *Source {
	return &Source{
		id:     id,
		config: SourceConfig{TriggerMode: Automatic, Action: PushAny},
	}
}

// NewSourceWithConfig creates a Source with an explicit configuration,
// validating it first.
func NewSourceWithConfig(id string, config SourceConfig) (*Source, error) {
	if config.TriggerMode == "" {
		config.TriggerMode = Automatic
	}
	if config.Action == "" {
		config.Action = PushAny
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Source{id: id, config: config}, nil
}

func (s *Source) ID() string             { return s.id }
func (s *Source) Kind() ProcessKind      { return KindSource }
func (s *Source) InputPorts() []string   { return nil }
func (s *Source) OutputPorts() []string  { return []string{defaultOutPort} }
func (s *Source) String() string         { return fmt.Sprintf("Source(%s)", s.id) }

func (s *Source) StateSnapshot() ProcessState {
	st := s.state
	return ProcessState{Kind: KindSource, Source: &st}
}

func (s *Source) Reset() {
	s.state = SourceState{}
}

// Config returns the Source's current configuration.
func (s *Source) Config() SourceConfig { return s.config }

// UpdateConfig applies a new SourceConfig, failing if it is not valid
// (spec.md §4.1's on_config_update).
func (s *Source) UpdateConfig(config SourceConfig) error {
	if err := config.validate(); err != nil {
		return err
	}
	s.config = config
	return nil
}

func (s *Source) OnTick(ctx *ProcessContext) ([]Event, error) {
	if s.config.TriggerMode != Automatic {
		// Passive: fires only when pulled (handled in OnMessage).
		// Interactive: fires only on an injected command event (not
		// modeled by a tick).
		// Enabling: reserved, behaves as Passive (spec.md §9).
		return nil, nil
	}
	return s.pushAny(ctx), nil
}

// pushAny emits one transfer per outgoing connection independently.
// resources_produced is incremented only once the recipient acknowledges
// acceptance (see OnMessage's PayloadResourceAccepted case), not at push
// time: a downstream Pool's Block policy can return part or all of a
// transfer as rejected, and cumulative counters must reflect only what was
// actually accepted (spec.md line 86).
func (s *Source) pushAny(ctx *ProcessContext) []Event {
	var events []Event
	for _, conn := range ctx.OutputsForPort(s.id, defaultOutPort) {
		amount := conn.normalizedFlowRate()
		events = append(events, resourceEvent(s.id, defaultOutPort, conn.TargetID, conn.TargetPort, ctx.Time(), amount))
	}
	return events
}

func (s *Source) OnMessage(ctx *ProcessContext, event Event) ([]Event, error) {
	switch event.Payload.Kind {
	case PayloadPullRequest:
		amount := event.Payload.Amount
		return []Event{resourceEvent(s.id, defaultOutPort, event.SourceID, event.SourcePort, ctx.Time(), amount)}, nil
	case PayloadPullAllRequest:
		// A Source produces on demand, so it can always meet whatever it is
		// asked for: offer exactly what was requested, unconditionally.
		return []Event{{
			SourceID: s.id, SourcePort: defaultOutPort,
			TargetID: event.SourceID, TargetPort: event.SourcePort,
			Time:    ctx.Time(),
			Payload: EventPayload{Kind: PayloadPullOffer, Amount: event.Payload.Amount, TotalRequired: event.Payload.TotalRequired, ConnectionID: event.Payload.ConnectionID},
		}}, nil
	case PayloadResourceAccepted:
		s.state.ResourcesProduced += event.Payload.Amount
		return nil, nil
	case PayloadResourceRejected:
		// Not-transferred; resources_produced was never incremented for this
		// amount, so there is nothing to undo (spec.md line 97).
		return nil, nil
	default:
		return nil, nil
	}
}
