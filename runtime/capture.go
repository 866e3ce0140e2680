package runtime

import (
	"bytes"
	"io"
	"sync"
)

// swapWriter is a stable io.Writer whose destination can be redirected. The
// interpreter binds its stdout and stderr once at construction, so per-call
// capture has to happen behind a writer the interpreter already holds;
// swapping the destination here reaches every print the interpreted code can
// make, including writes from goroutines it left running.
type swapWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newSwapWriter(w io.Writer) *swapWriter {
	return &swapWriter{w: w}
}

func (s *swapWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// swap redirects subsequent writes to w and returns the previous destination.
func (s *swapWriter) swap(w io.Writer) io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.w
	s.w = w
	return old
}

// captureOutput redirects the session's output writers into in-memory
// buffers and returns a restore function yielding the captured text. The
// restore must run on both success and failure paths so the writers never
// stay pointed at buffers nobody reads.
func (s *Session) captureOutput() func() (stdout, stderr string) {
	var outBuf, errBuf bytes.Buffer
	prevOut := s.stdout.swap(&outBuf)
	prevErr := s.stderr.swap(&errBuf)

	return func() (string, string) {
		s.stdout.swap(prevOut)
		s.stderr.swap(prevErr)
		return outBuf.String(), errBuf.String()
	}
}
