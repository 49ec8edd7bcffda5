// Package slots is the Slot Store: a typed accessor over the settings
// collaborator that owns the canonical shape of the slot collection.
//
// The whole collection is one settings value (module, "slots"); every
// mutation is a read-modify-write of that key, so each write is atomic and
// a reader never observes a half-written record. Reads return copies.
//
// Import and export (transfer.go) move whole collections as JSON or YAML.
// Incoming records are checked against an embedded CUE definition; bad
// records are dropped and reported, never fatal to the import.
package slots
