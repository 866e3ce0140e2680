package runtime

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/replbox/replbox/protocol"
)

// startLoop runs a dispatcher over in-memory pipes and returns an encoder
// and decoder wired to it.
func startLoop(t *testing.T) (*json.Encoder, *json.Decoder) {
	t.Helper()

	session := newTestSession(t)
	pkgs := NewPkgRunner(zaptest.NewLogger(t), WithCommandRunner(&mockCommandRunner{stdout: "ok\n"}))
	d := NewDispatcher(session, pkgs, zaptest.NewLogger(t))

	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	go func() {
		_ = d.Loop(context.Background(), reqR, respW)
		respW.Close()
	}()
	t.Cleanup(func() { reqW.Close() })

	return json.NewEncoder(reqW), json.NewDecoder(respR)
}

func call(t *testing.T, enc *json.Encoder, dec *json.Decoder, req protocol.Request) protocol.Response {
	t.Helper()
	require.NoError(t, enc.Encode(&req))
	var resp protocol.Response
	require.NoError(t, dec.Decode(&resp))
	return resp
}

func TestLoopDispatch(t *testing.T) {
	enc, dec := startLoop(t)

	t.Run("PingEchoesID", func(t *testing.T) {
		resp := call(t, enc, dec, protocol.Request{ID: "r1", Op: protocol.OpPing})
		assert.Equal(t, "r1", resp.ID)
		assert.Empty(t, resp.Error)
	})

	t.Run("Eval", func(t *testing.T) {
		resp := call(t, enc, dec, protocol.Request{ID: "r2", Op: protocol.OpEval, Code: "6 * 7"})
		assert.Equal(t, "r2", resp.ID)
		assert.Equal(t, "42", resp.Value)
		assert.Empty(t, resp.Error)
	})

	t.Run("Pkg", func(t *testing.T) {
		resp := call(t, enc, dec, protocol.Request{ID: "r3", Op: protocol.OpPkg, Action: "status"})
		assert.Equal(t, "ok\n", resp.Stdout)
		assert.Empty(t, resp.Error)
	})

	t.Run("ActivateBadPath", func(t *testing.T) {
		resp := call(t, enc, dec, protocol.Request{ID: "r4", Op: protocol.OpActivate, Path: "/definitely/not/here"})
		assert.NotEmpty(t, resp.Error)
	})

	t.Run("Info", func(t *testing.T) {
		resp := call(t, enc, dec, protocol.Request{ID: "r5", Op: protocol.OpInfo})
		require.NotNil(t, resp.Info)
		assert.NotEmpty(t, resp.Info.GoVersion)
	})

	t.Run("UnknownOp", func(t *testing.T) {
		resp := call(t, enc, dec, protocol.Request{ID: "r6", Op: "explode"})
		assert.Contains(t, resp.Error, "unknown op")
	})
}
