package sim

import (
	"container/heap"
	"math"
)

var posInf = math.Inf(1)

// eventHeap is a container/heap.Interface ordering pending events primarily
// by Time, then by eventPriority (see event.go), then by insertion sequence
// — the deterministic tie-break spec.md §4.7 requires. See the canonical
// Go example at https://pkg.go.dev/container/heap#example-package-IntHeap.
type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	pi, pj := eventPriority(h[i].Payload.Kind), eventPriority(h[j].Payload.Kind)
	if pi != pj {
		return pi < pj
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// scheduler is the kernel's exclusively-owned priority queue of pending
// events. Processes never touch it directly (spec.md §4.7); only the
// Simulation kernel enqueues and drains it.
type scheduler struct {
	queue   eventHeap
	nextSeq uint64
}

func newScheduler() *scheduler {
	s := &scheduler{queue: make(eventHeap, 0)}
	heap.Init(&s.queue)
	return s
}

// enqueue assigns the next insertion-sequence number and pushes the event.
func (s *scheduler) enqueue(e Event) {
	e.seq = s.nextSeq
	s.nextSeq++
	heap.Push(&s.queue, e)
}

// popEarliest removes and returns the earliest-ordered pending event, or
// false if the queue is empty.
func (s *scheduler) popEarliest() (Event, bool) {
	if len(s.queue) == 0 {
		return Event{}, false
	}
	return heap.Pop(&s.queue).(Event), true
}

// peekEarliestTime returns the time of the earliest pending event, or
// +Inf if the queue is empty.
func (s *scheduler) peekEarliestTime() float64 {
	if len(s.queue) == 0 {
		return posInf
	}
	return s.queue[0].Time
}

func (s *scheduler) len() int { return len(s.queue) }

// clear empties the queue and resets the sequence counter, used by reset().
func (s *scheduler) clear() {
	s.queue = s.queue[:0]
	s.nextSeq = 0
}

// snapshot returns a copy of pending events in heap-internal order (not
// necessarily time order) for diagnostics; callers must not mutate it.
func (s *scheduler) snapshot() []Event {
	out := make([]Event, len(s.queue))
	copy(out, s.queue)
	return out
}

// restore replaces the queue's contents with events (already-assigned seq
// numbers preserved) and resets nextSeq, re-establishing the heap
// invariant. Used to roll back a step aborted by CascadeOverflow.
func (s *scheduler) restore(events []Event, nextSeq uint64) {
	q := make(eventHeap, len(events))
	copy(q, events)
	heap.Init(&q)
	s.queue = q
	s.nextSeq = nextSeq
}
