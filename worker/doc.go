// Package worker supervises the single persistent worker subprocess.
//
// The Supervisor owns the worker lifecycle: lazy spawn on first use, liveness
// checks, kill, and hard reset by process replacement. Process replacement is
// the only reliable reset for an interpreter session — redefining a
// previously defined type in the same interpreter is not generally possible,
// so reset means a fresh process with nothing carried over except the
// activated project path, which is session state rather than worker state.
//
// All cross-process calls go through a Channel speaking newline-delimited
// JSON over the child's stdin/stdout; see the protocol package for the
// message shapes.
package worker
