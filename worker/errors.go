package worker

import (
	"fmt"

	"github.com/replbox/replbox/protocol"
)

// SpawnError reports that the worker process could not be brought up. It is
// fatal to the triggering call and leaves the supervisor with no worker
// recorded; it is never silently retried.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawning worker: %v", e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// IPCError reports that a round-trip to a live worker could not complete:
// the process died mid-call or the channel broke. The supervisor does not
// auto-heal; the next Ensure detects the dead worker and respawns.
type IPCError struct {
	Op  protocol.Op
	Err error
}

func (e *IPCError) Error() string {
	return fmt.Sprintf("worker call %s: %v", e.Op, e.Err)
}

func (e *IPCError) Unwrap() error { return e.Err }
