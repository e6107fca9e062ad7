package sim

import "fmt"

// DelayConfig configures a Delay process (spec.md §4.5). ReleaseAmount is
// only consulted in Queue mode.
type DelayConfig struct {
	TriggerMode   TriggerMode
	Action        DelayAction
	ReleaseAmount float64
}

func defaultDelayConfig() DelayConfig {
	return DelayConfig{TriggerMode: Automatic, Action: DelayPerUnit, ReleaseAmount: 1.0}
}

func (c DelayConfig) validate() error {
	if !c.TriggerMode.valid() {
		return errInvalidConfig("delay: invalid trigger_mode %q", c.TriggerMode)
	}
	switch c.Action {
	case DelayPerUnit, DelayQueue, "":
	default:
		return errInvalidConfig("delay: invalid action %q", c.Action)
	}
	if c.ReleaseAmount < 0 {
		return errInvalidConfig("delay: release_amount must be >= 0, got %g", c.ReleaseAmount)
	}
	return nil
}

// Delay buffers resources it receives on "in" and re-emits them on "out"
// after its single outgoing connection's flow_rate elapses as delay
// (spec.md §4.5). It requires exactly one output connection; receiving a
// transfer with zero or more than one wired rejects the transfer.
type Delay struct {
	id     string
	config DelayConfig
	state  DelayState
}

// NewDelay creates a Delay with default configuration (Automatic, Delay,
// release_amount=1.0), matching original_source's Delay::default().
func NewDelay(id string) *Delay {
	return &Delay{id: id, config: defaultDelayConfig()}
}

// NewDelayWithConfig creates a Delay with an explicit configuration.
func NewDelayWithConfig(id string, config DelayConfig) (*Delay, error) {
	d := defaultDelayConfig()
	if config.TriggerMode == "" {
		config.TriggerMode = d.TriggerMode
	}
	if config.Action == "" {
		config.Action = d.Action
	}
	if config.ReleaseAmount == 0 {
		config.ReleaseAmount = d.ReleaseAmount
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Delay{id: id, config: config}, nil
}

func (d *Delay) ID() string            { return d.id }
func (d *Delay) Kind() ProcessKind     { return KindDelay }
func (d *Delay) InputPorts() []string  { return []string{defaultInPort} }
func (d *Delay) OutputPorts() []string { return []string{defaultOutPort} }
func (d *Delay) String() string        { return fmt.Sprintf("Delay(%s)", d.id) }

func (d *Delay) StateSnapshot() ProcessState {
	st := d.state
	return ProcessState{Kind: KindDelay, Delay: &st}
}

func (d *Delay) Reset() {
	d.state = DelayState{}
}

// Config returns the Delay's current configuration.
func (d *Delay) Config() DelayConfig { return d.config }

// UpdateConfig applies a new DelayConfig.
func (d *Delay) UpdateConfig(config DelayConfig) error {
	if err := config.validate(); err != nil {
		return err
	}
	d.config = config
	return nil
}

// OnTick never fires for Delay: it moves resources purely in response to
// received events, never on the tick itself.
func (d *Delay) OnTick(ctx *ProcessContext) ([]Event, error) {
	return nil, nil
}

func (d *Delay) OnMessage(ctx *ProcessContext, event Event) ([]Event, error) {
	switch event.Payload.Kind {
	case PayloadResource:
		return d.handleResource(ctx, event)
	case PayloadResourceAccepted:
		d.state.ResourcesReleased += event.Payload.Amount
		return nil, nil
	case PayloadResourceRejected:
		return nil, nil
	case PayloadPullRequest, PayloadPullAllRequest:
		return d.handlePullRequest(ctx), nil
	default:
		return nil, nil
	}
}

func (d *Delay) handleResource(ctx *ProcessContext, event Event) ([]Event, error) {
	outputs := ctx.OutputsForPort(d.id, defaultOutPort)
	if len(outputs) != 1 {
		return []Event{{
			SourceID: d.id, SourcePort: defaultOutPort,
			TargetID: event.SourceID, TargetPort: event.SourcePort,
			Time:    ctx.Time(),
			Payload: EventPayload{Kind: PayloadResourceRejected, Amount: event.Payload.Amount},
		}}, nil
	}
	conn := outputs[0]
	amount := event.Payload.Amount
	d.state.ResourcesReceived += amount

	events := []Event{{
		SourceID: d.id, SourcePort: defaultInPort,
		TargetID: event.SourceID, TargetPort: event.SourcePort,
		Time:    ctx.Time(),
		Payload: EventPayload{Kind: PayloadResourceAccepted, Amount: amount},
	}}

	// Unlike Source/Pool push amounts, an unset flow_rate on a Delay's
	// outgoing connection means zero delay (immediate pass-through), not
	// the 1.0 default used elsewhere — matches original_source.
	delay := conn.FlowRate
	switch d.config.Action {
	case DelayQueue:
		remaining := amount
		releaseTime := ctx.Time()
		for remaining > 0 {
			release := min(remaining, d.config.ReleaseAmount)
			releaseTime += delay
			events = append(events, resourceEvent(d.id, defaultOutPort, conn.TargetID, conn.TargetPort, releaseTime, release))
			remaining -= release
		}
	default: // DelayPerUnit
		events = append(events, resourceEvent(d.id, defaultOutPort, conn.TargetID, conn.TargetPort, ctx.Time()+delay, amount))
	}
	return events, nil
}

func (d *Delay) handlePullRequest(ctx *ProcessContext) []Event {
	var events []Event
	for _, conn := range ctx.InputsForPort(d.id, defaultInPort) {
		events = append(events, Event{
			SourceID: d.id, SourcePort: defaultInPort,
			TargetID: conn.SourceID, TargetPort: defaultOutPort,
			Time:    ctx.Time(),
			Payload: EventPayload{Kind: PayloadPullRequest},
		})
	}
	return events
}
