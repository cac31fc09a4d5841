// Package hardware declares the contexts the dispatcher drives: the deck,
// pipetting instruments, loaded labware and attached modules.
//
// Implementations live outside the dispatcher (see package sim for the
// in-memory simulator). Every operation that can block on physical motion
// or temperature takes a context.Context; timeout and cancellation policy
// belongs to the implementation.
package hardware
