// Package main is the entry point for the replbox worker.
//
// The worker is the persistent subprocess that actually executes submitted
// code. It hosts one interpreter session and serves the supervisor's
// requests over stdin/stdout as newline-delimited JSON; its own logs go to
// stderr, which the server relays. The worker carries no configuration file:
// the few settings it needs arrive as REPLBOX_WORKER_* environment variables
// set by the supervisor at spawn time.
package main
