package sim

// DeliveryRecord describes one event delivered to a process during a step,
// independent of whether it originated from a tick or another delivery.
type DeliveryRecord struct {
	Step   uint64
	Event  Event
	Result []Event
}

// OverflowRecord describes an inbound transfer that a capacity-bounded
// Pool stored only in part or not at all, under either overflow policy
// (Block or Drain) — an in-band result, never a returned error (spec.md §7).
type OverflowRecord struct {
	Step      uint64
	PoolID    string
	Attempted float64
	Accepted  float64
}

// CascadeRecord describes a step aborted by CascadeOverflow, before its
// rollback.
type CascadeRecord struct {
	Step        uint64
	EventsSeen  int
	Budget      int
}

// Recorder receives observability records as a step executes. It is
// consulted only if attached; a nil Recorder costs nothing on the hot
// path (spec.md §4.10's decision trace is pure observability).
type Recorder interface {
	RecordDelivery(DeliveryRecord)
	RecordOverflow(OverflowRecord)
	RecordCascade(CascadeRecord)
}
