// Package events defines the typed vocabulary a code-generation producer
// uses to announce progress on a conversation, and the Hook interface
// consumers implement to observe it.
//
// The vocabulary is a closed sum type: Component, Layout, Types, Complete
// and Error all implement the Event interface through an unexported marker
// method, so the set of kinds cannot grow outside this package and dispatch
// over an Event can be exhaustive.
//
// Design decisions:
//   - Events are immutable once constructed. The New* constructors validate
//     their inputs and stamp a timestamp; after that an event is a plain
//     value that can be shared across goroutines freely.
//   - Validation happens at construction, not at publish time. A value of a
//     concrete event type is well formed wherever it came from, so the
//     delivery layer moves values without inspecting them.
//   - Complete and Error are terminal: a producer should publish nothing
//     after either of them on the same conversation. IsTerminal reports
//     this property, enforcement is left to the producer side.
//   - Progress is advisory, per-kind metadata. Component, Layout and Types
//     events report independent lines of work; consumers must not fold the
//     values into a single monotonic counter.
//   - The wire form is JSON with a "type" discriminator. Marshaling is
//     implemented with sjson to avoid intermediate maps, unmarshaling
//     re-validates every field with gjson so malformed payloads are
//     rejected at the boundary.
package events
