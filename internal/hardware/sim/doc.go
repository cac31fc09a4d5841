// Package sim provides a deterministic in-memory implementation of every
// hardware context.
//
// All contexts created from one Deck share a CallLog. Each successful
// operation appends a Call; operations that violate simulated physical
// state (aspirating without a tip, targets outside a module's range) return
// errors instead. Tests use FailOn to inject faults.
//
// With the default speed of 0 the simulator never sleeps. A positive speed
// makes delays and temperature ramps take d/speed of wall time, honouring
// context cancellation.
package sim
