// Package sim provides the core discrete-event simulation engine for
// resource-flow models.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - event.go: the Event/EventPayload value types that move between processes
//   - scheduler.go: the time-ordered, deterministically tie-broken event queue
//   - process.go: the Processor capability set every variant implements
//   - simulation.go: the event loop, structural edits, and step execution
//
// The five built-in process variants live alongside the kernel:
// source.go, pool.go, drain.go, delay.go, stepper.go. Each owns a private
// state struct (see process_state.go) and is mutated only through event
// delivery or a structural edit via Simulation.
//
// sim/loader parses the declarative inline-DSL and YAML surfaces into the
// wire records process_factory.go turns into concrete processes and
// connections. sim/internal/testutil holds golden scenario fixtures
// shared by this package's tests.
package sim
