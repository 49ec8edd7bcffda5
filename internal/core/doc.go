// Package core holds the shared model of gmslots: slots, execution
// requests, the error taxonomy and content digests.
//
// Every other internal package imports core; core imports nothing internal.
//
// Key constraints:
//   - Slot identity is the case-folded, trimmed name (NameKey), never the raw name
//   - Requests are values, never persisted
//   - Every failure surfaced to callers is a *Error carrying a Code
package core
