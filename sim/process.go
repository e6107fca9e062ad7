package sim

import "fmt"

// ProcessKind identifies which of the five built-in process variants a Processor
// implements (spec.md §3).
type ProcessKind string

const (
	KindSource  ProcessKind = "Source"
	KindPool    ProcessKind = "Pool"
	KindDrain   ProcessKind = "Drain"
	KindDelay   ProcessKind = "Delay"
	KindStepper ProcessKind = "Stepper"
)

// TriggerMode controls when a process acts on a tick (spec.md §4.1).
type TriggerMode string

const (
	Automatic   TriggerMode = "Automatic"
	Passive     TriggerMode = "Passive"
	Interactive TriggerMode = "Interactive"
	// Enabling is reserved: per spec.md §9 Open Questions, no enabling-signal
	// implementation is specified, so it behaves as Passive until specified.
	Enabling TriggerMode = "Enabling"
)

func (t TriggerMode) valid() bool {
	switch t {
	case Automatic, Passive, Interactive, Enabling, "":
		return true
	default:
		return false
	}
}

// Action selects a process variant's push/pull behavior on tick
// (spec.md §4.1, §6).
type Action string

const (
	PushAny Action = "PushAny"
	PushAll Action = "PushAll"
	PullAny Action = "PullAny"
	PullAll Action = "PullAll"
)

// DelayAction selects Delay's release discipline (spec.md §4.4).
type DelayAction string

const (
	DelayPerUnit DelayAction = "Delay"
	DelayQueue   DelayAction = "Queue"
)

// Overflow is a Pool's policy for inbound transfers that exceed capacity
// (spec.md §4.3).
type Overflow string

const (
	OverflowBlock Overflow = "Block"
	OverflowDrain Overflow = "Drain"
)

func (o Overflow) valid() bool {
	switch o {
	case OverflowBlock, OverflowDrain, "":
		return true
	default:
		return false
	}
}

// ProcessContext is the read-only view of simulation time and the
// connection graph a process needs to compute its emitted events. It never
// exposes other processes directly — only connections, referenced by ID
// (spec.md §4.1's ownership discipline: processes reference peers only by
// ID via the kernel's connection table).
type ProcessContext struct {
	time float64
	step uint64
	adj  *adjacency
}

// Time returns the simulated time at which the current tick/message is
// being processed.
func (c *ProcessContext) Time() float64 { return c.time }

// Step returns the current step counter.
func (c *ProcessContext) Step() uint64 { return c.step }

// OutputsForPort returns processID's outgoing connections from port, in
// insertion order.
func (c *ProcessContext) OutputsForPort(processID, port string) []*Connection {
	return c.adj.outputsForPort(processID, port)
}

// InputsForPort returns processID's incoming connections into port, in
// insertion order.
func (c *ProcessContext) InputsForPort(processID, port string) []*Connection {
	return c.adj.inputsForPort(processID, port)
}

// Processor is the capability set every process variant implements
// (spec.md §4.1). Dispatch is by the concrete type behind this interface —
// a tagged sum of variants, not open inheritance (spec.md §9).
type Processor interface {
	fmt.Stringer

	// ID returns the process's stable identifier.
	ID() string
	// Kind reports which built-in variant this is.
	Kind() ProcessKind
	// InputPorts and OutputPorts declare the process's addressable ports.
	InputPorts() []string
	OutputPorts() []string

	// StateSnapshot produces the variant-tagged state record (spec.md §3).
	StateSnapshot() ProcessState
	// Reset restores internal state to its initial value. The kernel
	// clears the scheduler, clock, and counters around this call — Reset
	// itself only touches this process's own fields.
	Reset()

	// OnTick is invoked once per Stepper tick and may emit outgoing events.
	OnTick(ctx *ProcessContext) ([]Event, error)
	// OnMessage is invoked when an inbound event is delivered to this
	// process and may emit outgoing events in response.
	OnMessage(ctx *ProcessContext, event Event) ([]Event, error)
}

// validatePort returns a PortUnknown SimulationError if port is not among
// the process's declared ports of the given direction.
func validatePort(p Processor, port, direction string) error {
	var declared []string
	if direction == "output" {
		declared = p.OutputPorts()
	} else {
		declared = p.InputPorts()
	}
	for _, d := range declared {
		if d == port {
			return nil
		}
	}
	return errPortUnknown(p.ID(), port, direction)
}
