package sim

import "fmt"

// PayloadKind tags the shape of an Event's payload.
type PayloadKind string

const (
	// PayloadStep is a tick notification broadcast by a Stepper.
	PayloadStep PayloadKind = "Step"
	// PayloadResource carries a resource transfer of Amount units.
	PayloadResource PayloadKind = "Resource"
	// PayloadResourceAccepted acknowledges that Amount units of a prior
	// transfer were accepted by the recipient.
	PayloadResourceAccepted PayloadKind = "ResourceAccepted"
	// PayloadResourceRejected acknowledges that Amount units of a prior
	// transfer were refused by the recipient (e.g. no outgoing connection).
	PayloadResourceRejected PayloadKind = "ResourceRejected"
	// PayloadPullRequest asks the target to push up to Amount units back,
	// debiting the target's own state immediately. Used both for PullAny and
	// as the commit message of a PullAll group once every offer has cleared.
	PayloadPullRequest PayloadKind = "PullRequest"
	// PayloadPullAllRequest queries whether the target could supply Amount
	// units right now, as part of an all-or-nothing group whose combined
	// size is TotalRequired. It never debits anything by itself — the
	// target answers with a PayloadPullOffer, and only a follow-up
	// PayloadPullRequest actually moves resources.
	PayloadPullAllRequest PayloadKind = "PullAllRequest"
	// PayloadPullOffer answers a PayloadPullAllRequest with the amount the
	// responder could supply this instant, without committing to it.
	PayloadPullOffer PayloadKind = "PullOffer"
)

// eventPriority orders same-time event delivery: within one instant, Step
// notifications are delivered before pull requests, before resource
// transfers, before transfer acknowledgements, before anything else. This
// refines (never contradicts) the insertion-sequence tie-break of the
// scheduler; it resolves an ordering question spec.md leaves open for
// events of different payload kinds emitted at the same instant.
func eventPriority(kind PayloadKind) int {
	switch kind {
	case PayloadStep:
		return 0
	case PayloadPullRequest, PayloadPullAllRequest, PayloadPullOffer:
		return 1
	case PayloadResource:
		return 2
	case PayloadResourceAccepted, PayloadResourceRejected:
		return 3
	default:
		return 4
	}
}

// EventPayload is the closed set of messages a process may emit or receive.
// Amount and TotalRequired are meaningful only for the payload kinds that
// use them; zero otherwise. ConnectionID disambiguates the members of an
// all-or-nothing pull group when a puller has more than one connection to
// the same upstream process.
type EventPayload struct {
	Kind          PayloadKind
	Amount        float64
	TotalRequired float64 // only for PayloadPullAllRequest, echoed back in PayloadPullOffer
	ConnectionID  string  // only for PayloadPullAllRequest / PayloadPullOffer
}

func (p EventPayload) String() string {
	switch p.Kind {
	case PayloadResource, PayloadResourceAccepted, PayloadResourceRejected, PayloadPullRequest, PayloadPullOffer:
		return fmt.Sprintf("%s(%g)", p.Kind, p.Amount)
	case PayloadPullAllRequest:
		return fmt.Sprintf("%s(%g/%g)", p.Kind, p.Amount, p.TotalRequired)
	default:
		return string(p.Kind)
	}
}

// Event is a message from a source process/port to a target process/port at
// a simulated time. Events are value types: once enqueued they are never
// mutated, only delivered and possibly superseded by new events emitted in
// response.
type Event struct {
	SourceID   string
	SourcePort string
	TargetID   string
	TargetPort string
	Time       float64
	Payload    EventPayload

	// seq is assigned by the scheduler at enqueue time and used as the
	// deterministic tie-break for events sharing a Time and priority band.
	// Zero value until scheduled.
	seq uint64
}

func (e Event) String() string {
	return fmt.Sprintf("Event{%s.%s -> %s.%s @%g: %s}",
		e.SourceID, e.SourcePort, e.TargetID, e.TargetPort, e.Time, e.Payload)
}

// resourceEvent builds a PayloadResource event, the shape used for both
// pushes and pull responses throughout the process variants.
func resourceEvent(sourceID, sourcePort, targetID, targetPort string, time, amount float64) Event {
	return Event{
		SourceID:   sourceID,
		SourcePort: sourcePort,
		TargetID:   targetID,
		TargetPort: targetPort,
		Time:       time,
		Payload:    EventPayload{Kind: PayloadResource, Amount: amount},
	}
}
