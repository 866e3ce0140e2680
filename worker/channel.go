package worker

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/replbox/replbox/protocol"
)

// Channel is the server half of the evaluation channel: it ships requests to
// the worker and synchronously reads the matching response. Calls are
// serialized by an internal mutex; there is deliberately no per-call timeout,
// so a hung evaluation hangs the call until the worker is killed out-of-band.
type Channel struct {
	mu  sync.Mutex
	enc *json.Encoder
	dec *json.Decoder
}

// NewChannel wraps the worker's stdin (w) and stdout (r).
func NewChannel(w io.Writer, r io.Reader) *Channel {
	return &Channel{
		enc: json.NewEncoder(w),
		dec: json.NewDecoder(r),
	}
}

// Call sends req and blocks until the worker replies. Responses whose id does
// not match are stale output from an interrupted earlier call and are
// discarded. Any encode or decode failure means the channel is broken.
func (c *Channel) Call(req protocol.Request) (protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if err := c.enc.Encode(&req); err != nil {
		return protocol.Response{}, &IPCError{Op: req.Op, Err: fmt.Errorf("sending request: %w", err)}
	}

	for {
		var resp protocol.Response
		if err := c.dec.Decode(&resp); err != nil {
			return protocol.Response{}, &IPCError{Op: req.Op, Err: fmt.Errorf("reading response: %w", err)}
		}
		if resp.ID == req.ID {
			return resp, nil
		}
	}
}
