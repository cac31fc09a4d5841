// Package protocol defines the data model of a declarative protocol document.
//
// This package contains type definitions, decoding and canonical encoding
// only. All other internal packages import protocol; protocol imports nothing
// internal.
//
// Key design constraints:
//   - Documents are immutable once loaded; the dispatcher only reads them
//   - Command order in Document.Commands is execution order
//   - Params are untyped (Object); each handler validates what it consumes
//   - Numbers are float64 (temperatures, heights and volumes are fractional)
package protocol
