package bridge

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/simcraft/simcraft/sim"
)

const (
	minBatchSize = 10
	maxBatchSize = 10000
	targetBatch  = 500 * time.Millisecond
)

// Host wraps a *sim.Simulation and dispatches wire-protocol requests
// against it (spec.md §6), plus the play/pause run-loop extension. All
// dispatch and play-loop access is serialized through mu, so a Request
// arriving while a Play loop is active is queued rather than racing it —
// grounded on checkpoint.Memory's one-mutex-guards-all-access idiom
// (fracturing.space).
type Host struct {
	mu  sync.Mutex
	sim *sim.Simulation

	stop     chan struct{}
	playing  bool
	onUpdate func(sim.Snapshot)
}

// NewHost wraps an existing Simulation for dispatch.
func NewHost(s *sim.Simulation) *Host {
	return &Host{sim: s}
}

// Dispatch decodes req.Args per req.Type, applies the call to the wrapped
// Simulation, and encodes the result. Every kernel error is translated
// into a ResponseError Response rather than propagated as a Go error,
// matching the wire protocol's single result-or-error shape.
func (h *Host) Dispatch(req Request) Response {
	h.mu.Lock()
	defer h.mu.Unlock()

	result, err := h.dispatchLocked(req)
	if err != nil {
		return Response{Type: ResponseError, Error: err.Error()}
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{Type: ResponseError, Error: err.Error()}
	}
	return Response{Type: req.Type, Result: raw}
}

func (h *Host) dispatchLocked(req Request) (any, error) {
	switch req.Type {
	case ReqNew:
		var args struct {
			Processes   []sim.ProcessRecord   `json:"processes"`
			Connections []sim.ConnectionRecord `json:"connections"`
		}
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return nil, err
		}
		s, err := buildSimulation(args.Processes, args.Connections)
		if err != nil {
			return nil, err
		}
		h.sim = s
		return h.sim.GetSimulationState(), nil

	case ReqAddProcess:
		var args struct {
			Process sim.ProcessRecord `json:"process"`
		}
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return nil, err
		}
		p, err := sim.NewProcessFromRecord(args.Process)
		if err != nil {
			return nil, err
		}
		if err := h.sim.AddProcess(p); err != nil {
			return nil, err
		}
		return h.sim.GetSimulationState(), nil

	case ReqRemoveProcess:
		var args struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return nil, err
		}
		if err := h.sim.RemoveProcess(args.ID); err != nil {
			return nil, err
		}
		return h.sim.GetSimulationState(), nil

	case ReqUpdateProcess:
		var args struct {
			ID      string            `json:"id"`
			Process sim.ProcessRecord `json:"process"`
		}
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return nil, err
		}
		args.Process.ID = args.ID
		p, err := sim.NewProcessFromRecord(args.Process)
		if err != nil {
			return nil, err
		}
		if err := h.sim.UpdateProcess(args.ID, p); err != nil {
			return nil, err
		}
		return h.sim.GetSimulationState(), nil

	case ReqAddConnection:
		var args struct {
			Connection sim.ConnectionRecord `json:"connection"`
		}
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return nil, err
		}
		c, err := sim.NewConnectionFromRecord(args.Connection)
		if err != nil {
			return nil, err
		}
		if err := h.sim.AddConnection(c); err != nil {
			return nil, err
		}
		return h.sim.GetSimulationState(), nil

	case ReqRemoveConnection:
		var args struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return nil, err
		}
		if err := h.sim.RemoveConnection(args.ID); err != nil {
			return nil, err
		}
		return h.sim.GetSimulationState(), nil

	case ReqUpdateConnection:
		var args struct {
			ID         string               `json:"id"`
			Connection sim.ConnectionRecord `json:"connection"`
		}
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return nil, err
		}
		args.Connection.ID = args.ID
		c, err := sim.NewConnectionFromRecord(args.Connection)
		if err != nil {
			return nil, err
		}
		if err := h.sim.UpdateConnection(args.ID, c); err != nil {
			return nil, err
		}
		return h.sim.GetSimulationState(), nil

	case ReqStep:
		events, err := h.sim.Step()
		if err != nil {
			return nil, err
		}
		return stepResult{Events: events, Snapshot: h.sim.GetSimulationState()}, nil

	case ReqStepN:
		var args struct {
			N int `json:"n"`
		}
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return nil, err
		}
		events, err := h.sim.StepN(args.N)
		if err != nil {
			return nil, err
		}
		return stepResult{Events: events, Snapshot: h.sim.GetSimulationState()}, nil

	case ReqStepUntil:
		var args struct {
			Time float64 `json:"time"`
		}
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return nil, err
		}
		events, err := h.sim.StepUntil(args.Time)
		if err != nil {
			return nil, err
		}
		return stepResult{Events: events, Snapshot: h.sim.GetSimulationState()}, nil

	case ReqReset:
		h.pauseLocked()
		h.sim.Reset()
		return h.sim.GetSimulationState(), nil

	case ReqGetSimulationState:
		return h.sim.GetSimulationState(), nil

	case ReqPlay:
		var args struct {
			DelayMs int `json:"delayMs"`
		}
		if len(req.Args) > 0 {
			if err := json.Unmarshal(req.Args, &args); err != nil {
				return nil, err
			}
		}
		h.startLocked(args.DelayMs)
		return h.sim.GetSimulationState(), nil

	case ReqPause:
		h.pauseLocked()
		return h.sim.GetSimulationState(), nil

	default:
		return nil, &sim.SimulationError{Kind: sim.ParseError, Message: "unknown request type " + req.Type}
	}
}

type stepResult struct {
	Events   []sim.Event  `json:"events"`
	Snapshot sim.Snapshot `json:"snapshot"`
}

func buildSimulation(procRecs []sim.ProcessRecord, connRecs []sim.ConnectionRecord) (*sim.Simulation, error) {
	processes := make([]sim.Processor, 0, len(procRecs))
	for _, rec := range procRecs {
		p, err := sim.NewProcessFromRecord(rec)
		if err != nil {
			return nil, err
		}
		processes = append(processes, p)
	}
	connections := make([]*sim.Connection, 0, len(connRecs))
	for _, rec := range connRecs {
		c, err := sim.NewConnectionFromRecord(rec)
		if err != nil {
			return nil, err
		}
		connections = append(connections, c)
	}
	return sim.New(processes, connections)
}

// Play starts a background loop that steps the wrapped Simulation and
// invokes onUpdate with a fresh snapshot after each batch (spec.md §6's
// run-loop extension). Batch size starts at minBatchSize and is
// multiplicatively adjusted, clamped to [minBatchSize, maxBatchSize]: it
// doubles when the previous batch's wall-clock duration was under half of
// targetBatch, halves when it was over targetBatch, and otherwise stays
// the same. delayMs == 0 runs batches back-to-back; delayMs > 0 sleeps
// between them. A non-nil onUpdate replaces any handler set by a prior
// Play or SetOnUpdate call. Calling Play while already playing starts no
// second loop; the running loop keeps the handler it started with.
func (h *Host) Play(delayMs int, onUpdate func(sim.Snapshot)) {
	h.mu.Lock()
	if onUpdate != nil {
		h.onUpdate = onUpdate
	}
	h.startLocked(delayMs)
	h.mu.Unlock()
}

// SetOnUpdate installs the handler a play loop started through Dispatch's
// "play" request will invoke, since the wire protocol has no channel for
// passing a Go func alongside the request's JSON args.
func (h *Host) SetOnUpdate(fn func(sim.Snapshot)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onUpdate = fn
}

// startLocked starts the play loop if one isn't already running. Callers
// must hold mu.
func (h *Host) startLocked(delayMs int) {
	if h.playing {
		return
	}
	stop := make(chan struct{})
	h.stop = stop
	h.playing = true
	go h.playLoop(delayMs, stop, h.onUpdate)
}

func (h *Host) playLoop(delayMs int, stop chan struct{}, onUpdate func(sim.Snapshot)) {
	batch := minBatchSize
	delay := time.Duration(delayMs) * time.Millisecond
	for {
		select {
		case <-stop:
			return
		default:
		}

		start := time.Now()
		h.mu.Lock()
		_, err := h.sim.StepN(batch)
		snap := h.sim.GetSimulationState()
		h.mu.Unlock()
		elapsed := time.Since(start)

		if onUpdate != nil {
			onUpdate(snap)
		}
		if err != nil {
			h.Pause()
			return
		}

		switch {
		case elapsed < targetBatch/2 && batch < maxBatchSize:
			batch *= 2
			if batch > maxBatchSize {
				batch = maxBatchSize
			}
		case elapsed > targetBatch && batch > minBatchSize:
			batch /= 2
			if batch < minBatchSize {
				batch = minBatchSize
			}
		}

		if delay > 0 {
			select {
			case <-stop:
				return
			case <-time.After(delay):
			}
		}
	}
}

// Pause halts an active Play loop. It is a no-op if no loop is running.
func (h *Host) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pauseLocked()
}

func (h *Host) pauseLocked() {
	if !h.playing {
		return
	}
	close(h.stop)
	h.playing = false
}
