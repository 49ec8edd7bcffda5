// Package engine runs slots.
//
// Run is the single entry point for executing a slot: it looks the slot up,
// resolves the request target, reads the policy fresh, authorizes, compiles,
// builds the invocation context and invokes the program inside a fault
// boundary. Every outcome is logged, recorded in the execution log and, when
// it is not a success, delivered to the notification sink. Nothing a script
// does can panic out of Run or write to the slot collection.
//
// Concurrency model:
//   - Run and Dispatch are safe from any goroutine
//   - each call is an independent invocation with its own Lua state
//   - there is no queue, no coalescing and no cancellation once invoked
package engine
