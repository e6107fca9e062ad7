package sim

import "fmt"

// DrainConfig configures a Drain process (spec.md §4.4... consumption
// variant; see original_source's drain.rs).
type DrainConfig struct {
	TriggerMode TriggerMode
	Action      Action // PullAny or PullAll
}

func defaultDrainConfig() DrainConfig {
	return DrainConfig{TriggerMode: Automatic, Action: PullAny}
}

func (c DrainConfig) validate() error {
	if !c.TriggerMode.valid() {
		return errInvalidConfig("drain: invalid trigger_mode %q", c.TriggerMode)
	}
	switch c.Action {
	case PullAny, PullAll, "":
	default:
		return errInvalidConfig("drain: invalid action %q (must be PullAny or PullAll)", c.Action)
	}
	return nil
}

// Drain consumes whatever resources arrive on its "in" port and reports
// cumulative consumption. It has no output ports.
type Drain struct {
	id     string
	config DrainConfig
	state  DrainState

	// pendingPullAll is the in-flight all-or-nothing pull group this Drain
	// issued on its last tick, if any (transient coordination state, not
	// part of DrainState).
	pendingPullAll *pullAllGroup
}

// NewDrain creates a Drain with default configuration (Automatic, PullAny).
func NewDrain(id string) *Drain {
	return &Drain{id: id, config: defaultDrainConfig()}
}

// NewDrainWithConfig creates a Drain with an explicit configuration.
func NewDrainWithConfig(id string, config DrainConfig) (*Drain, error) {
	d := defaultDrainConfig()
	if config.TriggerMode == "" {
		config.TriggerMode = d.TriggerMode
	}
	if config.Action == "" {
		config.Action = d.Action
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Drain{id: id, config: config}, nil
}

func (d *Drain) ID() string            { return d.id }
func (d *Drain) Kind() ProcessKind     { return KindDrain }
func (d *Drain) InputPorts() []string  { return []string{defaultInPort} }
func (d *Drain) OutputPorts() []string { return nil }
func (d *Drain) String() string        { return fmt.Sprintf("Drain(%s)", d.id) }

func (d *Drain) StateSnapshot() ProcessState {
	st := d.state
	return ProcessState{Kind: KindDrain, Drain: &st}
}

func (d *Drain) Reset() {
	d.state = DrainState{}
	d.pendingPullAll = nil
}

// Config returns the Drain's current configuration.
func (d *Drain) Config() DrainConfig { return d.config }

// UpdateConfig applies a new DrainConfig.
func (d *Drain) UpdateConfig(config DrainConfig) error {
	if err := config.validate(); err != nil {
		return err
	}
	d.config = config
	return nil
}

func (d *Drain) OnTick(ctx *ProcessContext) ([]Event, error) {
	if d.config.TriggerMode != Automatic {
		return nil, nil
	}
	switch d.config.Action {
	case PullAll:
		return d.pullAll(ctx), nil
	default:
		return d.pullAny(ctx), nil
	}
}

func (d *Drain) pullAny(ctx *ProcessContext) []Event {
	var events []Event
	for _, conn := range ctx.InputsForPort(d.id, defaultInPort) {
		amount := conn.normalizedFlowRate()
		events = append(events, Event{
			SourceID: d.id, SourcePort: defaultInPort,
			TargetID: conn.SourceID, TargetPort: defaultOutPort,
			Time:    ctx.Time(),
			Payload: EventPayload{Kind: PayloadPullRequest, Amount: amount},
		})
	}
	return events
}

// pullAll opens a new all-or-nothing pull group: it queries every upstream
// connection for its availability and pulls from none of them until every
// one has answered that it can meet its share (spec.md §4.3).
func (d *Drain) pullAll(ctx *ProcessContext) []Event {
	inputs := ctx.InputsForPort(d.id, defaultInPort)
	if len(inputs) == 0 {
		d.pendingPullAll = nil
		return nil
	}
	group := newPullAllGroup(inputs)
	d.pendingPullAll = group
	events := make([]Event, 0, len(inputs))
	for _, conn := range inputs {
		events = append(events, Event{
			SourceID: d.id, SourcePort: defaultInPort,
			TargetID: conn.SourceID, TargetPort: defaultOutPort,
			Time:    ctx.Time(),
			Payload: EventPayload{Kind: PayloadPullAllRequest, Amount: group.requested[conn.ID], TotalRequired: group.total, ConnectionID: conn.ID},
		})
	}
	return events
}

// handlePullOffer folds one sibling's offer into this Drain's open pull
// group, committing with real PayloadPullRequests once every sibling has
// answered and all of them can meet their share, or dropping the group
// silently (pulling nothing) if any of them came up short.
func (d *Drain) handlePullOffer(ctx *ProcessContext, event Event) []Event {
	group := d.pendingPullAll
	if group == nil {
		return nil
	}
	ready, satisfied := group.recordOffer(event.Payload.ConnectionID, event.Payload.TotalRequired, event.Payload.Amount)
	if !ready {
		return nil
	}
	d.pendingPullAll = nil
	if !satisfied {
		return nil
	}
	events := make([]Event, 0, len(group.order))
	for _, connID := range group.order {
		conn := group.conns[connID]
		events = append(events, Event{
			SourceID: d.id, SourcePort: defaultInPort,
			TargetID: conn.SourceID, TargetPort: defaultOutPort,
			Time:    ctx.Time(),
			Payload: EventPayload{Kind: PayloadPullRequest, Amount: group.requested[connID], ConnectionID: connID},
		})
	}
	return events
}

func (d *Drain) OnMessage(ctx *ProcessContext, event Event) ([]Event, error) {
	switch event.Payload.Kind {
	case PayloadResource:
		amount := event.Payload.Amount
		d.state.ResourcesConsumed += amount
		return []Event{{
			SourceID: d.id, SourcePort: defaultInPort,
			TargetID: event.SourceID, TargetPort: event.SourcePort,
			Time:    ctx.Time(),
			Payload: EventPayload{Kind: PayloadResourceAccepted, Amount: amount},
		}}, nil
	case PayloadPullOffer:
		return d.handlePullOffer(ctx, event), nil
	default:
		return nil, nil
	}
}
