// Package world is the shared domain model scripts act on: users, actors,
// scenes and the tokens that place actors on a scene.
//
// The engine only reads the world through Directory and writes through
// Writer. State is the in-memory implementation used by the CLI, the
// conformance harness and tests; it is loaded from a YAML document.
package world
