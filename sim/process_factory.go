package sim

// ProcessRecord is the wire form of a process, produced by a loader and
// consumed by NewProcessFromRecord (spec.md §6). Fields not meaningful
// for a given Type are ignored. Tagged for strict-YAML decoding
// (sim/loader) and for the bridge package's JSON request/response
// protocol, which the spec's wire form specifies in snake_case for
// process fields.
type ProcessRecord struct {
	ID               string      `yaml:"id" json:"id"`
	Type             ProcessKind `yaml:"type" json:"type"`
	TriggerMode      TriggerMode `yaml:"trigger_mode,omitempty" json:"trigger_mode,omitempty"`
	Action           string      `yaml:"action,omitempty" json:"action,omitempty"`
	Capacity         *float64    `yaml:"capacity,omitempty" json:"capacity,omitempty"`
	Overflow         Overflow    `yaml:"overflow,omitempty" json:"overflow,omitempty"`
	ReleaseAmount    *float64    `yaml:"release_amount,omitempty" json:"release_amount,omitempty"`
	Dt               *float64    `yaml:"dt,omitempty" json:"dt,omitempty"`
	InitialResources *float64    `yaml:"initial_resources,omitempty" json:"initial_resources,omitempty"`
}

// ConnectionRecord is the wire form of a connection (spec.md §6). Unlike
// ProcessRecord, the spec's connection wire form is camelCase
// (sourceID/targetID/flowRate) rather than snake_case — an asymmetry
// carried from spec.md verbatim, not introduced here.
type ConnectionRecord struct {
	ID         string   `yaml:"id" json:"id"`
	SourceID   string   `yaml:"source_id" json:"sourceID"`
	SourcePort string   `yaml:"source_port,omitempty" json:"sourcePort,omitempty"`
	TargetID   string   `yaml:"target_id" json:"targetID"`
	TargetPort string   `yaml:"target_port,omitempty" json:"targetPort,omitempty"`
	FlowRate   *float64 `yaml:"flow_rate,omitempty" json:"flowRate,omitempty"`
}

// NewProcessFromRecord instantiates the concrete Processor named by
// rec.Type, validating its configuration. Unknown types are rejected with
// InvalidConfig rather than a panic, since records may originate from
// untrusted declarative input.
func NewProcessFromRecord(rec ProcessRecord) (Processor, error) {
	if rec.ID == "" {
		return nil, errInvalidConfig("process record missing id")
	}
	switch rec.Type {
	case KindSource:
		cfg := SourceConfig{TriggerMode: rec.TriggerMode}
		if rec.Action != "" {
			cfg.Action = Action(rec.Action)
		}
		return NewSourceWithConfig(rec.ID, cfg)

	case KindPool:
		cfg := PoolConfig{TriggerMode: rec.TriggerMode, Overflow: rec.Overflow}
		if rec.Action != "" {
			cfg.Action = Action(rec.Action)
		}
		if rec.Capacity != nil {
			cfg.Capacity = *rec.Capacity
		} else {
			cfg.Capacity = -1
		}
		p, err := NewPoolWithConfig(rec.ID, cfg)
		if err != nil {
			return nil, err
		}
		if rec.InitialResources != nil {
			p.SetInitialResources(*rec.InitialResources)
		}
		return p, nil

	case KindDrain:
		cfg := DrainConfig{TriggerMode: rec.TriggerMode}
		if rec.Action != "" {
			cfg.Action = Action(rec.Action)
		}
		return NewDrainWithConfig(rec.ID, cfg)

	case KindDelay:
		cfg := DelayConfig{TriggerMode: rec.TriggerMode}
		switch rec.Action {
		case "", "Delay":
			cfg.Action = DelayPerUnit
		case "Queue":
			cfg.Action = DelayQueue
		default:
			return nil, errInvalidConfig("delay %q: invalid action %q", rec.ID, rec.Action)
		}
		if rec.ReleaseAmount != nil {
			cfg.ReleaseAmount = *rec.ReleaseAmount
		}
		return NewDelayWithConfig(rec.ID, cfg)

	case KindStepper:
		cfg := StepperConfig{}
		if rec.Dt != nil {
			cfg.Dt = *rec.Dt
		}
		return NewStepperWithConfig(rec.ID, cfg)

	default:
		return nil, errInvalidConfig("process %q: unknown type %q", rec.ID, rec.Type)
	}
}

// NewConnectionFromRecord builds a Connection from its wire form, applying
// the "out"/"in" port defaults and the flow_rate default of 1.0
// (spec.md §3, §6).
func NewConnectionFromRecord(rec ConnectionRecord) (*Connection, error) {
	if rec.ID == "" {
		return nil, errInvalidConfig("connection record missing id")
	}
	if rec.SourceID == "" || rec.TargetID == "" {
		return nil, errInvalidConfig("connection %q: source_id and target_id are required", rec.ID)
	}
	sourcePort, targetPort := rec.SourcePort, rec.TargetPort
	if sourcePort == "" {
		sourcePort = defaultOutPort
	}
	if targetPort == "" {
		targetPort = defaultInPort
	}
	flowRate := 1.0
	if rec.FlowRate != nil {
		flowRate = *rec.FlowRate
	}
	if flowRate <= 0 {
		return nil, errInvalidConfig("connection %q: flow_rate must be > 0, got %g", rec.ID, flowRate)
	}
	return &Connection{
		ID:         rec.ID,
		SourceID:   rec.SourceID,
		SourcePort: sourcePort,
		TargetID:   rec.TargetID,
		TargetPort: targetPort,
		FlowRate:   flowRate,
	}, nil
}
