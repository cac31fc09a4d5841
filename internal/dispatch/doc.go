// Package dispatch executes the command list of a protocol document against
// a set of hardware contexts.
//
// The dispatcher walks Document.Commands strictly in order. Each command is
// classified once through a unified Registry (built from the four family
// handler maps) or recognised as one of the control commands (delay,
// moveToSlot). Module commands name their target by id; the Resolver looks
// the id up and matches the module's capability tag against the family
// before any handler runs.
//
// Key design constraints:
//   - One command at a time, one handler per command, no reordering
//   - The first failure halts dispatch; nothing is retried
//   - Every failure is a *Error carrying a Code and the command index
//   - The dispatcher never polls ctx; hardware contexts decide how ctx
//     bounds their own blocking operations
package dispatch
