package sim

import "github.com/sirupsen/logrus"

// Simulation owns the process table, connection table, scheduler, and
// clock, and drives the event loop (spec.md §4.8). It is not safe for
// concurrent use; callers that need to serve it from multiple goroutines
// must synchronize externally (spec.md §5).
type Simulation struct {
	processes map[string]Processor
	order     []string

	connections map[string]*Connection
	connOrder   []string
	adj         *adjacency

	sched *scheduler
	time  float64
	step  uint64

	recorder Recorder
}

// New builds a Simulation from an initial set of processes and
// connections, installing them in the order given. Any validation
// failure leaves no partially-built Simulation behind.
func New(processes []Processor, connections []*Connection) (*Simulation, error) {
	s := &Simulation{
		processes:   make(map[string]Processor),
		connections: make(map[string]*Connection),
		adj:         newAdjacency(),
		sched:       newScheduler(),
	}
	for _, p := range processes {
		if err := s.AddProcess(p); err != nil {
			return nil, err
		}
	}
	for _, c := range connections {
		if err := s.AddConnection(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// AttachTrace installs a Recorder that observes deliveries, overflows,
// and cascade aborts as steps execute. Pass nil to detach.
func (s *Simulation) AttachTrace(r Recorder) {
	s.recorder = r
}

// AddProcess registers p under its own id. Registration order, which
// governs on_tick broadcast order, is insertion order.
func (s *Simulation) AddProcess(p Processor) error {
	id := p.ID()
	if id == "" {
		return errInvalidConfig("process id must not be empty")
	}
	if _, exists := s.processes[id]; exists {
		return errDuplicateID("process", id)
	}
	s.processes[id] = p
	s.order = append(s.order, id)
	return nil
}

// RemoveProcess deletes the process and every connection that references
// it, in either direction.
func (s *Simulation) RemoveProcess(id string) error {
	if _, ok := s.processes[id]; !ok {
		return errUnknownID("process", id)
	}
	delete(s.processes, id)
	s.order = removeString(s.order, id)

	var dangling []string
	for _, cid := range s.connOrder {
		c := s.connections[cid]
		if c.SourceID == id || c.TargetID == id {
			dangling = append(dangling, cid)
		}
	}
	for _, cid := range dangling {
		c := s.connections[cid]
		s.adj.remove(c)
		delete(s.connections, cid)
		s.connOrder = removeString(s.connOrder, cid)
	}
	return nil
}

// UpdateProcess replaces the process registered as id with p, which must
// carry the same id and Kind (spec.md §4.8). Accumulated state from the
// outgoing process is preserved onto p — update_process changes
// configuration, not history. A Pool update lowering capacity below the
// pool's current resource level is rejected as InvalidTransition
// (spec.md §9 open question).
func (s *Simulation) UpdateProcess(id string, p Processor) error {
	existing, ok := s.processes[id]
	if !ok {
		return errUnknownID("process", id)
	}
	if p.ID() != id {
		return errInvalidConfig("update_process: new process id %q does not match %q", p.ID(), id)
	}
	if p.Kind() != existing.Kind() {
		return errInvalidTransition(id, "cannot change kind from %s to %s", existing.Kind(), p.Kind())
	}
	if newPool, ok := p.(*Pool); ok {
		oldPool := existing.(*Pool)
		if newPool.config.Capacity >= 0 && newPool.config.Capacity < oldPool.state.Resources {
			return errInvalidTransition(id, "capacity %g is below current resources %g", newPool.config.Capacity, oldPool.state.Resources)
		}
	}
	preserveState(existing, p)
	s.processes[id] = p
	return nil
}

// AddConnection registers c, validating that both endpoints exist and
// declare the referenced ports.
func (s *Simulation) AddConnection(c *Connection) error {
	if c.ID == "" {
		return errInvalidConfig("connection id must not be empty")
	}
	if _, exists := s.connections[c.ID]; exists {
		return errDuplicateID("connection", c.ID)
	}
	if c.SourcePort == "" {
		c.SourcePort = defaultOutPort
	}
	if c.TargetPort == "" {
		c.TargetPort = defaultInPort
	}
	src, ok := s.processes[c.SourceID]
	if !ok {
		return errUnknownID("process", c.SourceID)
	}
	tgt, ok := s.processes[c.TargetID]
	if !ok {
		return errUnknownID("process", c.TargetID)
	}
	if err := validatePort(src, c.SourcePort, "output"); err != nil {
		return err
	}
	if err := validatePort(tgt, c.TargetPort, "input"); err != nil {
		return err
	}
	s.connections[c.ID] = c
	s.connOrder = append(s.connOrder, c.ID)
	s.adj.add(c)
	return nil
}

// RemoveConnection deletes the connection registered under id.
func (s *Simulation) RemoveConnection(id string) error {
	c, ok := s.connections[id]
	if !ok {
		return errUnknownID("connection", id)
	}
	s.adj.remove(c)
	delete(s.connections, id)
	s.connOrder = removeString(s.connOrder, id)
	return nil
}

// UpdateConnection replaces the connection registered as id with c,
// revalidating its endpoints.
func (s *Simulation) UpdateConnection(id string, c *Connection) error {
	old, ok := s.connections[id]
	if !ok {
		return errUnknownID("connection", id)
	}
	if c.ID != id {
		return errInvalidConfig("update_connection: new connection id %q does not match %q", c.ID, id)
	}
	if c.SourcePort == "" {
		c.SourcePort = defaultOutPort
	}
	if c.TargetPort == "" {
		c.TargetPort = defaultInPort
	}
	src, ok := s.processes[c.SourceID]
	if !ok {
		return errUnknownID("process", c.SourceID)
	}
	tgt, ok := s.processes[c.TargetID]
	if !ok {
		return errUnknownID("process", c.TargetID)
	}
	if err := validatePort(src, c.SourcePort, "output"); err != nil {
		return err
	}
	if err := validatePort(tgt, c.TargetPort, "input"); err != nil {
		return err
	}
	s.adj.remove(old)
	s.connections[id] = c
	s.adj.add(c)
	return nil
}

// eventBudget bounds the number of events a single step may process
// before the kernel concludes a cascade is runaway (spec.md §4.8).
func (s *Simulation) eventBudget() int {
	return 10*(len(s.processes)+len(s.connections)) + 100
}

// stepperDt returns the dt of the first registered Stepper, or 1.0 if
// none is registered (spec.md §4.8).
func (s *Simulation) stepperDt() float64 {
	for _, id := range s.order {
		if st, ok := s.processes[id].(*Stepper); ok {
			return st.Dt()
		}
	}
	return 1.0
}

// Step advances the clock by one tick and drains every event that
// becomes due, returning the events delivered in delivery order. On
// CascadeOverflow the simulation is left exactly as it was before Step
// was called (spec.md §4.8's transactional step semantics).
func (s *Simulation) Step() ([]Event, error) {
	budget := s.eventBudget()
	preTime, preStep := s.time, s.step
	preQueue := s.sched.snapshot()
	preSeq := s.sched.nextSeq
	preStates := make(map[string]ProcessState, len(s.processes))
	for id, p := range s.processes {
		preStates[id] = p.StateSnapshot()
	}
	rollback := func() {
		s.time, s.step = preTime, preStep
		s.sched.restore(preQueue, preSeq)
		for id, st := range preStates {
			restoreProcessState(s.processes[id], st)
		}
	}

	s.step++
	s.time += s.stepperDt()
	eventsSeen := 0

	tickCtx := &ProcessContext{time: s.time, step: s.step, adj: s.adj}
	for _, id := range s.order {
		events, err := s.processes[id].OnTick(tickCtx)
		if err != nil {
			rollback()
			return nil, err
		}
		for _, e := range events {
			eventsSeen++
			if eventsSeen > budget {
				s.recordCascade(eventsSeen, budget)
				rollback()
				return nil, errCascadeOverflow(s.step, budget)
			}
			s.sched.enqueue(e)
		}
	}

	var delivered []Event
	for s.sched.peekEarliestTime() <= s.time {
		ev, ok := s.sched.popEarliest()
		if !ok {
			break
		}
		target, ok := s.processes[ev.TargetID]
		if !ok {
			logrus.Warnf("step %d: dropping event targeting unknown process %q", s.step, ev.TargetID)
			continue
		}
		pool, tracksOverflow := target.(*Pool)
		tracksOverflow = tracksOverflow && ev.Payload.Kind == PayloadResource && pool.config.Capacity >= 0
		var before float64
		if tracksOverflow {
			before = pool.state.Resources
		}

		msgCtx := &ProcessContext{time: ev.Time, step: s.step, adj: s.adj}
		resp, err := target.OnMessage(msgCtx, ev)
		if err != nil {
			rollback()
			return nil, err
		}
		delivered = append(delivered, ev)
		if s.recorder != nil {
			s.recorder.RecordDelivery(DeliveryRecord{Step: s.step, Event: ev, Result: resp})
			if tracksOverflow {
				if accepted := pool.state.Resources - before; accepted < ev.Payload.Amount {
					s.recorder.RecordOverflow(OverflowRecord{Step: s.step, PoolID: pool.id, Attempted: ev.Payload.Amount, Accepted: accepted})
				}
			}
		}
		for _, e := range resp {
			eventsSeen++
			if eventsSeen > budget {
				s.recordCascade(eventsSeen, budget)
				rollback()
				return nil, errCascadeOverflow(s.step, budget)
			}
			s.sched.enqueue(e)
		}
	}

	return delivered, nil
}

func (s *Simulation) recordCascade(eventsSeen, budget int) {
	if s.recorder != nil {
		s.recorder.RecordCascade(CascadeRecord{Step: s.step, EventsSeen: eventsSeen, Budget: budget})
	}
}

// StepUntil calls Step repeatedly until the clock reaches or passes
// target, returning every delivered event across all steps taken. On
// error it returns the events delivered by the steps that succeeded plus
// the error from the step that failed.
func (s *Simulation) StepUntil(target float64) ([]Event, error) {
	var all []Event
	for s.time < target {
		delivered, err := s.Step()
		all = append(all, delivered...)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

// StepN calls Step n times, returning every delivered event across all
// steps taken, with the same partial-progress contract as StepUntil.
func (s *Simulation) StepN(n int) ([]Event, error) {
	var all []Event
	for i := 0; i < n; i++ {
		delivered, err := s.Step()
		all = append(all, delivered...)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

// Reset clears the scheduler, zeroes the clock and step counter, and
// calls Reset on every registered process, in registration order.
func (s *Simulation) Reset() {
	s.sched.clear()
	s.time = 0
	s.step = 0
	for _, id := range s.order {
		s.processes[id].Reset()
	}
}

// GetSimulationState assembles an immutable snapshot of the current
// clock and every process's state, in registration order (spec.md §3).
func (s *Simulation) GetSimulationState() Snapshot {
	states := make([]ProcessSnapshot, 0, len(s.order))
	for _, id := range s.order {
		states = append(states, ProcessSnapshot{ID: id, State: s.processes[id].StateSnapshot()})
	}
	return Snapshot{Time: s.time, Step: s.step, ProcessStates: states}
}

func (s *Simulation) CurrentStep() uint64  { return s.step }
func (s *Simulation) CurrentTime() float64 { return s.time }

// Processes returns every registered process in registration order.
func (s *Simulation) Processes() []Processor {
	out := make([]Processor, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.processes[id])
	}
	return out
}

// Connections returns every registered connection in registration order.
func (s *Simulation) Connections() []*Connection {
	out := make([]*Connection, 0, len(s.connOrder))
	for _, id := range s.connOrder {
		out = append(out, s.connections[id])
	}
	return out
}

// Process looks up a registered process by id.
func (s *Simulation) Process(id string) (Processor, bool) {
	p, ok := s.processes[id]
	return p, ok
}

func removeString(list []string, value string) []string {
	out := list[:0:0]
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}

// preserveState copies existing's accumulated counters onto replacement.
// Both are required to share a concrete type (callers check Kind first).
func preserveState(existing, replacement Processor) {
	switch e := existing.(type) {
	case *Source:
		replacement.(*Source).state = e.state
	case *Pool:
		replacement.(*Pool).state = e.state
	case *Drain:
		replacement.(*Drain).state = e.state
	case *Delay:
		replacement.(*Delay).state = e.state
	case *Stepper:
		replacement.(*Stepper).state = e.state
	}
}

// restoreProcessState writes a previously captured ProcessState back onto
// p, used to roll back a step aborted by CascadeOverflow.
func restoreProcessState(p Processor, st ProcessState) {
	switch v := p.(type) {
	case *Source:
		if st.Source != nil {
			v.state = *st.Source
		}
	case *Pool:
		if st.Pool != nil {
			v.state = *st.Pool
		}
	case *Drain:
		if st.Drain != nil {
			v.state = *st.Drain
		}
	case *Delay:
		if st.Delay != nil {
			v.state = *st.Delay
		}
	case *Stepper:
		if st.Stepper != nil {
			v.state = *st.Stepper
		}
	}
}
