// Package bridge implements the in-process side of the embedding wire
// protocol (spec.md §6): a Request/Response envelope one-to-one with the
// kernel API, plus the play/pause run-loop extension. It has no
// socket/worker transport of its own — a real embedding shim (browser
// worker, desktop IPC, socket) would marshal Request/Response to and from
// bytes and call Host.Dispatch on the receiving end.
package bridge

import (
	"encoding/json"

	"github.com/simcraft/simcraft/sim"
)

// Request is one call into the kernel API, addressed by Type. Args holds
// the type-specific parameters as raw JSON so Host can defer decoding
// until it knows which request struct to decode into.
type Request struct {
	Type string          `json:"type"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response answers a Request. A failed dispatch sets Type to
// ResponseError and Error to the failure message rather than panicking or
// returning a Go error, since the wire form has no channel for one
// (spec.md §6: response `{type, ...result}` or `{type: "error", error}`).
type Response struct {
	Type   string          `json:"type"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// ResponseError is the Type value of a failed dispatch.
const ResponseError = "error"

// Request types, one-to-one with the kernel API (spec.md §6).
const (
	ReqNew                = "new"
	ReqAddProcess         = "addProcess"
	ReqRemoveProcess      = "removeProcess"
	ReqUpdateProcess      = "updateProcess"
	ReqAddConnection      = "addConnection"
	ReqRemoveConnection   = "removeConnection"
	ReqUpdateConnection   = "updateConnection"
	ReqStep               = "step"
	ReqStepUntil          = "stepUntil"
	ReqStepN              = "stepN"
	ReqReset              = "reset"
	ReqGetSimulationState = "getSimulationState"
	ReqPlay               = "play"
	ReqPause              = "pause"
)

// StateUpdate is the wire shape of the asynchronous message a Play loop
// produces after each batch (spec.md §6). Host does not build one itself:
// a play loop hands each batch's sim.Snapshot to the onUpdate callback
// given to Host.Play or Host.SetOnUpdate, and a transport wrapping Host
// would place that snapshot in a StateUpdate.
type StateUpdate struct {
	Type     string      `json:"type"`
	Snapshot sim.Snapshot `json:"snapshot"`
}
