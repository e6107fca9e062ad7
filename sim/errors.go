package sim

import "fmt"

// Kind classifies a SimulationError so callers (and embeddings translating
// tags into their own native error shapes) can branch on failure category
// without parsing message text.
type Kind string

const (
	// InvalidConfig marks a process or connection record with a missing,
	// conflicting, or kind-inappropriate field.
	InvalidConfig Kind = "InvalidConfig"
	// DuplicateID marks a process or connection ID that already exists.
	DuplicateID Kind = "DuplicateId"
	// UnknownID marks a referenced process or connection ID that does not exist.
	UnknownID Kind = "UnknownId"
	// PortUnknown marks a port name not declared by the referenced process kind.
	PortUnknown Kind = "PortUnknown"
	// CapacityExceeded marks a Pool Block-policy refusal of an inbound transfer.
	CapacityExceeded Kind = "CapacityExceeded"
	// InvalidTransition marks a configuration update a process cannot apply.
	InvalidTransition Kind = "InvalidTransition"
	// CascadeOverflow marks a per-step event budget exhaustion.
	CascadeOverflow Kind = "CascadeOverflow"
	// ParseError marks a declarative surface rejected by a loader.
	ParseError Kind = "ParseError"
)

// SimulationError is the error type returned by every fallible kernel and
// loader operation. It carries a Kind tag alongside a human-readable
// message, and wraps an underlying cause when one exists.
type SimulationError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *SimulationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SimulationError) Unwrap() error {
	return e.Cause
}

func newErr(kind Kind, format string, args ...any) *SimulationError {
	return &SimulationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(kind Kind, cause error, format string, args ...any) *SimulationError {
	return &SimulationError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WrapErr tags cause with kind for callers outside this package, such as a
// loader rejecting a declarative surface it could not parse.
func WrapErr(kind Kind, cause error, format string, args ...any) *SimulationError {
	return wrapErr(kind, cause, format, args...)
}

func errInvalidConfig(format string, args ...any) *SimulationError {
	return newErr(InvalidConfig, format, args...)
}

func errDuplicateID(kind, id string) *SimulationError {
	return newErr(DuplicateID, "%s id %q already exists", kind, id)
}

func errUnknownID(kind, id string) *SimulationError {
	return newErr(UnknownID, "%s id %q not found", kind, id)
}

func errPortUnknown(processID, port, portType string) *SimulationError {
	return newErr(PortUnknown, "process %q has no %s port %q", processID, portType, port)
}

func errInvalidTransition(processID, format string, args ...any) *SimulationError {
	msg := fmt.Sprintf(format, args...)
	return newErr(InvalidTransition, "process %q: %s", processID, msg)
}

func errCascadeOverflow(step uint64, budget int) *SimulationError {
	return newErr(CascadeOverflow, "step %d exceeded per-tick event budget of %d", step, budget)
}
