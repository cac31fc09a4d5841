// Package engine runs protocol documents against a deck and journals each
// run in the store.
//
// ARCHITECTURE:
//
// One run per Execute call:
//  1. A run id is generated and the run row opened with the canonical
//     document and its hash
//  2. The dispatcher loads the deck and dispatches commands in order, with
//     a store.Journal observer recording every command event
//  3. The run row is closed with the halting error (if any)
//
// Replay reads a journaled document back, executes it again on a fresh deck
// and reports every field where the two runs differ.
//
// The engine never decides command semantics; that belongs to the dispatch
// package and the handlers in its registry.
package engine
