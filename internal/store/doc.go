// Package store provides the persistent settings collaborator for gmslots.
//
// Settings are JSON documents keyed by (module, key) with last-writer-wins
// semantics: each Set replaces the whole value of one key atomically. The
// slot collection and the policy booleans live here.
//
// Two implementations are provided:
//   - SQLite (Open): durable, also hosts the append-only execution log
//   - Memory (NewMemory): process-local, used by tests and the harness
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Execution log queries are ordered by seq ASC, id ASC COLLATE BINARY.
package store
