// Package runtime implements the worker side of the evaluation channel.
//
// A Session wraps one embedded yaegi interpreter whose top-level namespace
// persists for the lifetime of the worker process: definitions made by one
// evaluation are visible to the next. That persistence is the entire point of
// running a long-lived worker, and nothing in this package discards it short
// of the process itself being replaced.
//
// The package also provides the package-manager verbs (thin shells over the
// go tool) and the read-dispatch-reply loop the worker binary runs over its
// stdin/stdout.
package runtime
