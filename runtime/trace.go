package runtime

import (
	"errors"
	"fmt"
	"strings"

	"github.com/traefik/yaegi/interp"
)

// formatError renders an evaluation error for the caller. Interpreter panics
// carry a runtime stack, which is truncated to the session's frame budget to
// keep responses compact.
func (s *Session) formatError(err error) string {
	var p interp.Panic
	if errors.As(err, &p) {
		return formatPanic(p, s.maxTraceFrames)
	}
	return err.Error()
}

func formatPanic(p interp.Panic, maxFrames int) string {
	msg := fmt.Sprintf("panic: %v", p.Value)
	if trace := truncateTrace(string(p.Stack), maxFrames); trace != "" {
		msg += "\n" + trace
	}
	return msg
}

// truncateTrace keeps at most maxFrames frames of a goroutine stack dump.
// A frame is the usual function/location line pair; the goroutine header
// line is preserved. When frames are dropped an explicit count is appended.
func truncateTrace(stack string, maxFrames int) string {
	stack = strings.TrimRight(stack, "\n")
	if stack == "" {
		return ""
	}
	lines := strings.Split(stack, "\n")

	header := 0
	if strings.HasPrefix(lines[0], "goroutine ") {
		header = 1
	}
	frames := (len(lines) - header + 1) / 2
	if frames <= maxFrames {
		return stack
	}

	kept := lines[:header+maxFrames*2]
	return strings.Join(kept, "\n") +
		fmt.Sprintf("\n... (%d more frames truncated)", frames-maxFrames)
}
