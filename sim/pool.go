package sim

import "fmt"

// PoolConfig configures a Pool process (spec.md §4.3).
type PoolConfig struct {
	TriggerMode TriggerMode
	Action      Action
	Overflow    Overflow
	// Capacity is unbounded when negative.
	Capacity float64
}

func defaultPoolConfig() PoolConfig {
	return PoolConfig{TriggerMode: Passive, Action: PullAny, Overflow: OverflowBlock, Capacity: -1.0}
}

func (c PoolConfig) validate() error {
	if !c.TriggerMode.valid() {
		return errInvalidConfig("pool: invalid trigger_mode %q", c.TriggerMode)
	}
	if !c.Overflow.valid() {
		return errInvalidConfig("pool: invalid overflow %q", c.Overflow)
	}
	switch c.Action {
	case PushAny, PushAll, PullAny, PullAll, "":
	default:
		return errInvalidConfig("pool: invalid action %q", c.Action)
	}
	return nil
}

// Pool accumulates resources up to an optional capacity and moves them
// along its "in"/"out" ports (spec.md §4.3).
type Pool struct {
	id     string
	config PoolConfig
	state  PoolState

	// initialResources is the level Reset restores, set by
	// SetInitialResources.
	initialResources float64

	// pendingPullAll is the in-flight all-or-nothing pull group this Pool
	// issued on its last tick, if any. It is transient coordination state,
	// not part of PoolState: nothing about it survives a Reset or belongs
	// in a snapshot.
	pendingPullAll *pullAllGroup
}

// NewPool creates a Pool with default configuration (Passive, PullAny,
// Block, unbounded), matching original_source's Pool::default().
func NewPool(id string) *Pool {
	return &Pool{id: id, config: defaultPoolConfig()}
}

// NewPoolWithConfig creates a Pool with an explicit configuration.
func NewPoolWithConfig(id string, config PoolConfig) (*Pool, error) {
	d := defaultPoolConfig()
	if config.TriggerMode == "" {
		config.TriggerMode = d.TriggerMode
	}
	if config.Action == "" {
		config.Action = d.Action
	}
	if config.Overflow == "" {
		config.Overflow = d.Overflow
	}
	if config.Capacity == 0 {
		config.Capacity = d.Capacity
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Pool{id: id, config: config}, nil
}

// SetInitialResources seeds the Pool's starting level, for use before the
// simulation starts (mirrors the Rust builder's `.state(PoolState{...})`).
func (p *Pool) SetInitialResources(amount float64) {
	p.initialResources = amount
	p.state.Resources = amount
}

func (p *Pool) ID() string            { return p.id }
func (p *Pool) Kind() ProcessKind     { return KindPool }
func (p *Pool) InputPorts() []string  { return []string{defaultInPort} }
func (p *Pool) OutputPorts() []string { return []string{defaultOutPort} }
func (p *Pool) String() string        { return fmt.Sprintf("Pool(%s)", p.id) }

func (p *Pool) StateSnapshot() ProcessState {
	st := p.state
	return ProcessState{Kind: KindPool, Pool: &st}
}

func (p *Pool) Reset() {
	p.state = PoolState{Resources: p.initialResources}
	p.pendingPullAll = nil
}

// Config returns the Pool's current configuration.
func (p *Pool) Config() PoolConfig { return p.config }

// UpdateConfig applies a new PoolConfig. Lowering Capacity below the
// current resource level is rejected as InvalidTransition (spec.md §9);
// callers wanting to shed excess resources must do so before updating.
func (p *Pool) UpdateConfig(config PoolConfig) error {
	if err := config.validate(); err != nil {
		return err
	}
	if config.Capacity >= 0 && config.Capacity < p.state.Resources {
		return errInvalidTransition(p.id, "capacity %g is below current resources %g", config.Capacity, p.state.Resources)
	}
	p.config = config
	return nil
}

func (p *Pool) OnTick(ctx *ProcessContext) ([]Event, error) {
	if p.config.TriggerMode != Automatic {
		return nil, nil
	}
	switch p.config.Action {
	case PushAny:
		return p.pushAny(ctx), nil
	case PushAll:
		return p.pushAll(ctx), nil
	case PullAny:
		return p.pullAny(ctx), nil
	case PullAll:
		return p.pullAll(ctx), nil
	default:
		return nil, nil
	}
}

func (p *Pool) pushAny(ctx *ProcessContext) []Event {
	var events []Event
	for _, conn := range ctx.OutputsForPort(p.id, defaultOutPort) {
		amount := min(p.state.Resources, conn.normalizedFlowRate())
		if amount <= 0 {
			continue
		}
		events = append(events, resourceEvent(p.id, defaultOutPort, conn.TargetID, conn.TargetPort, ctx.Time(), amount))
		p.state.Resources -= amount
	}
	return events
}

func (p *Pool) pushAll(ctx *ProcessContext) []Event {
	outputs := ctx.OutputsForPort(p.id, defaultOutPort)
	var total float64
	for _, conn := range outputs {
		total += conn.normalizedFlowRate()
	}
	if p.state.Resources < total {
		return nil
	}
	events := make([]Event, 0, len(outputs))
	for _, conn := range outputs {
		amount := conn.normalizedFlowRate()
		events = append(events, resourceEvent(p.id, defaultOutPort, conn.TargetID, conn.TargetPort, ctx.Time(), amount))
		p.state.Resources -= amount
	}
	return events
}

func (p *Pool) pullAny(ctx *ProcessContext) []Event {
	var events []Event
	for _, conn := range ctx.InputsForPort(p.id, defaultInPort) {
		amount := conn.normalizedFlowRate()
		events = append(events, Event{
			SourceID: p.id, SourcePort: defaultOutPort,
			TargetID: conn.SourceID, TargetPort: defaultInPort,
			Time:    ctx.Time(),
			Payload: EventPayload{Kind: PayloadPullRequest, Amount: amount},
		})
	}
	return events
}

// pullAll opens a new all-or-nothing pull group: it queries every upstream
// connection for its availability and commits to pulling from none of them
// until every one has answered that it can meet its share (spec.md §4.3). A
// group still open from the previous tick (no upstream ever answered) is
// replaced; its stale offers can no longer complete anything.
func (p *Pool) pullAll(ctx *ProcessContext) []Event {
	inputs := ctx.InputsForPort(p.id, defaultInPort)
	if len(inputs) == 0 {
		p.pendingPullAll = nil
		return nil
	}
	group := newPullAllGroup(inputs)
	p.pendingPullAll = group
	events := make([]Event, 0, len(inputs))
	for _, conn := range inputs {
		events = append(events, Event{
			SourceID: p.id, SourcePort: defaultOutPort,
			TargetID: conn.SourceID, TargetPort: defaultInPort,
			Time:    ctx.Time(),
			Payload: EventPayload{Kind: PayloadPullAllRequest, Amount: group.requested[conn.ID], TotalRequired: group.total, ConnectionID: conn.ID},
		})
	}
	return events
}

// offerPull answers an incoming PayloadPullAllRequest with how much this
// Pool could supply right now, without debiting anything: the querying
// process still has to hear back from every sibling before it may commit.
func (p *Pool) offerPull(ctx *ProcessContext, event Event) []Event {
	amount := min(p.state.Resources, event.Payload.Amount)
	return []Event{{
		SourceID: p.id, SourcePort: defaultOutPort,
		TargetID: event.SourceID, TargetPort: defaultInPort,
		Time:    ctx.Time(),
		Payload: EventPayload{Kind: PayloadPullOffer, Amount: amount, TotalRequired: event.Payload.TotalRequired, ConnectionID: event.Payload.ConnectionID},
	}}
}

// handlePullOffer folds one sibling's offer into this Pool's open pull
// group, committing with real PayloadPullRequests once every sibling has
// answered and all of them can meet their share, or dropping the group
// silently (pulling nothing) if any of them came up short.
func (p *Pool) handlePullOffer(ctx *ProcessContext, event Event) []Event {
	group := p.pendingPullAll
	if group == nil {
		return nil
	}
	ready, satisfied := group.recordOffer(event.Payload.ConnectionID, event.Payload.TotalRequired, event.Payload.Amount)
	if !ready {
		return nil
	}
	p.pendingPullAll = nil
	if !satisfied {
		return nil
	}
	events := make([]Event, 0, len(group.order))
	for _, connID := range group.order {
		conn := group.conns[connID]
		events = append(events, Event{
			SourceID: p.id, SourcePort: defaultOutPort,
			TargetID: conn.SourceID, TargetPort: defaultInPort,
			Time:    ctx.Time(),
			Payload: EventPayload{Kind: PayloadPullRequest, Amount: group.requested[connID], ConnectionID: connID},
		})
	}
	return events
}

func (p *Pool) OnMessage(ctx *ProcessContext, event Event) ([]Event, error) {
	switch event.Payload.Kind {
	case PayloadResource:
		return p.receive(ctx, event), nil
	case PayloadResourceRejected:
		// A push or pull-fulfillment this Pool made upstream was refused in
		// whole or in part; credit the optimistic debit back.
		p.state.Resources += event.Payload.Amount
		return nil, nil
	case PayloadResourceAccepted:
		return nil, nil
	case PayloadPullRequest:
		amount := min(p.state.Resources, event.Payload.Amount)
		p.state.Resources -= amount
		return []Event{resourceEvent(p.id, defaultOutPort, event.SourceID, defaultInPort, ctx.Time(), amount)}, nil
	case PayloadPullAllRequest:
		return p.offerPull(ctx, event), nil
	case PayloadPullOffer:
		return p.handlePullOffer(ctx, event), nil
	default:
		return nil, nil
	}
}

// receive applies overflow policy to an inbound transfer (spec.md §4.3) and
// returns the in-band acknowledgement(s) the sender observes. Unbounded
// pools and Drain-policy pools always acknowledge the full amount as
// accepted — capacity-excess is discarded internally without the sender
// ever learning about it, so its own counters stand uncorrected (spec.md
// line 98). Block-policy pools acknowledge only the capacity-bounded
// portion as accepted and return the remainder as rejected, so the sender's
// cumulative counters reflect only what was actually absorbed (spec.md
// line 97).
func (p *Pool) receive(ctx *ProcessContext, event Event) []Event {
	amount := event.Payload.Amount
	ack := func(kind PayloadKind, n float64) Event {
		return Event{
			SourceID: p.id, SourcePort: defaultInPort,
			TargetID: event.SourceID, TargetPort: event.SourcePort,
			Time:    ctx.Time(),
			Payload: EventPayload{Kind: kind, Amount: n},
		}
	}

	if p.config.Capacity < 0 {
		p.state.Resources += amount
		return []Event{ack(PayloadResourceAccepted, amount)}
	}

	room := p.config.Capacity - p.state.Resources
	if room < 0 {
		room = 0
	}
	stored := min(amount, room)
	p.state.Resources += stored

	if p.config.Overflow == OverflowDrain {
		return []Event{ack(PayloadResourceAccepted, amount)}
	}

	var events []Event
	if stored > 0 {
		events = append(events, ack(PayloadResourceAccepted, stored))
	}
	if rejected := amount - stored; rejected > 0 {
		events = append(events, ack(PayloadResourceRejected, rejected))
	}
	return events
}
