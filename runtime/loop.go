package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/replbox/replbox/protocol"
)

// Dispatcher routes decoded requests to the session and package runner.
type Dispatcher struct {
	session *Session
	pkgs    *PkgRunner
	log     *zap.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(session *Session, pkgs *PkgRunner, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{session: session, pkgs: pkgs, log: log}
}

// Loop reads requests from in and writes one response per request to out,
// until in reaches EOF.
func (d *Dispatcher) Loop(ctx context.Context, in io.Reader, out io.Writer) error {
	dec := json.NewDecoder(in)
	enc := json.NewEncoder(out)

	for {
		var req protocol.Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decoding request: %w", err)
		}

		d.log.Debug("request received", zap.String("op", string(req.Op)), zap.String("id", req.ID))

		resp := d.dispatch(ctx, req)
		resp.ID = req.ID
		if err := enc.Encode(&resp); err != nil {
			return fmt.Errorf("encoding response: %w", err)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, req protocol.Request) protocol.Response {
	switch req.Op {
	case protocol.OpPing:
		return protocol.Response{}
	case protocol.OpEval:
		r := d.session.Eval(req.Code)
		return protocol.Response{Value: r.Value, Output: r.Output, Error: r.Error}
	case protocol.OpPkg:
		r := d.pkgs.Run(ctx, req.Action, req.Args, d.session.ProjectPath())
		return protocol.Response{Error: r.Error, Stdout: r.Stdout, Stderr: r.Stderr}
	case protocol.OpActivate:
		path, err := d.session.Activate(req.Path)
		if err != nil {
			return protocol.Response{Error: err.Error()}
		}
		return protocol.Response{Path: path}
	case protocol.OpInfo:
		info := d.session.Info()
		return protocol.Response{Info: &info}
	default:
		return protocol.Response{Error: fmt.Sprintf("unknown op %q", req.Op)}
	}
}
