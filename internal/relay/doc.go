// Package relay is the remote request protocol: a one-way, fire-and-forget
// RPC over a module-scoped pub/sub channel.
//
// Players publish RUN messages and return immediately. The primary game
// master's process is the only one that acts on them: it validates each
// message, checks that it is still the primary and hands the request to the
// engine. There is no reply, acknowledgement or correlation; any feedback
// reaches the player through the shared world.
package relay
