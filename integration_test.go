package integration

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/replbox/replbox/config"
	"github.com/replbox/replbox/logger"
	"github.com/replbox/replbox/mcpserver"
	"github.com/replbox/replbox/runtime"
	"github.com/replbox/replbox/worker"
)

// inprocStarter runs the worker dispatcher behind pipes instead of spawning
// the replbox-worker binary, so the full stack is exercised without a build
// step. Each Start gets a fresh interpreter, matching hard-reset semantics.
type inprocStarter struct {
	t *testing.T

	mu      sync.Mutex
	started int
}

type inprocProc struct {
	stdinW  io.WriteCloser
	stdoutR io.Reader
	done    chan struct{}
	kill    func()
	once    sync.Once
}

func (p *inprocProc) Stdin() io.WriteCloser { return p.stdinW }
func (p *inprocProc) Stdout() io.Reader     { return p.stdoutR }
func (p *inprocProc) PID() int              { return 0 }
func (p *inprocProc) Kill() error           { p.once.Do(p.kill); return nil }
func (p *inprocProc) Done() <-chan struct{} { return p.done }

type noopRunner struct{}

func (noopRunner) RunCommand(_ context.Context, _ string, _ []string) (string, string, int, error) {
	return "example.com/m v1.0.0\n", "", 0, nil
}

func (f *inprocStarter) Start(_ context.Context) (worker.Proc, error) {
	f.mu.Lock()
	f.started++
	f.mu.Unlock()

	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	p := &inprocProc{stdinW: reqW, stdoutR: respR, done: make(chan struct{})}
	p.kill = func() {
		reqR.CloseWithError(io.ErrClosedPipe)
		respW.CloseWithError(io.ErrClosedPipe)
	}

	log := zaptest.NewLogger(f.t)
	sess, err := runtime.NewSession(runtime.Options{Logger: log})
	require.NoError(f.t, err)
	pkgs := runtime.NewPkgRunner(log, runtime.WithCommandRunner(noopRunner{}))
	d := runtime.NewDispatcher(sess, pkgs, log)

	go func() {
		_ = d.Loop(context.Background(), reqR, respW)
		respW.Close()
		close(p.done)
	}()
	return p, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Transport: "stdio",
			HTTPPort:  8080,
		},
		Logging: config.LoggingConfig{
			Mode:  "development",
			Level: "debug",
		},
		Worker: config.WorkerConfig{
			Binary:          "replbox-worker",
			ReadyTimeoutSec: 10,
			MaxTraceFrames:  8,
		},
	}
}

// TestIntegrationConfigLoggerWorker tests the integration between config, logger, and worker packages
func TestIntegrationConfigLoggerWorker(t *testing.T) {
	t.Run("ConfigAndLoggerIntegration", func(t *testing.T) {
		cfg := testConfig()

		testLogger, err := logger.New(cfg.Logging.Mode, cfg.Logging.Level)
		require.NoError(t, err)
		require.NotNil(t, testLogger)

		testLogger.Info("Integration test started")
		_ = testLogger.Sync()
	})

	t.Run("FullMCPIntegration", func(t *testing.T) {
		cfg := testConfig()
		log := zaptest.NewLogger(t)

		sup := worker.New(log, &inprocStarter{t: t}, worker.Config{
			ReadyTimeout: cfg.ReadyTimeout(),
		})
		t.Cleanup(sup.Kill)

		srv, err := mcpserver.New(cfg, log, sup)
		require.NoError(t, err)
		require.NotNil(t, srv)
		require.NotNil(t, srv.GetMCPServer())
	})
}

// TestIntegrationSessionLifecycle drives a full session through the supervisor
func TestIntegrationSessionLifecycle(t *testing.T) {
	log := zaptest.NewLogger(t)
	starter := &inprocStarter{t: t}
	sup := worker.New(log, starter, worker.Config{})
	t.Cleanup(sup.Kill)
	ctx := context.Background()

	t.Run("StatePersistsAcrossEvaluations", func(t *testing.T) {
		_, err := sup.Eval(ctx, "total := 40")
		require.NoError(t, err)

		out, err := sup.Eval(ctx, "total + 2")
		require.NoError(t, err)
		assert.Empty(t, out.Error)
		assert.Equal(t, "42", out.Value)
	})

	t.Run("EvaluationErrorIsDataNotFailure", func(t *testing.T) {
		out, err := sup.Eval(ctx, "undefinedSymbol")
		require.NoError(t, err)
		assert.NotEmpty(t, out.Error)
	})

	t.Run("PkgActionRoundTrip", func(t *testing.T) {
		out, err := sup.PkgAction(ctx, "status", nil)
		require.NoError(t, err)
		assert.Empty(t, out.Error)
		assert.Contains(t, out.Stdout, "example.com/m")
	})

	t.Run("ResetClearsState", func(t *testing.T) {
		report, err := sup.Reset(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, report.OldID, report.NewID)
		assert.Equal(t, 2, starter.started)

		out, err := sup.Eval(ctx, "total")
		require.NoError(t, err)
		assert.NotEmpty(t, out.Error)
	})

	t.Run("InfoReflectsSession", func(t *testing.T) {
		_, err := sup.Eval(ctx, "answer := 42")
		require.NoError(t, err)

		info, err := sup.Info(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, info.WorkerID)
		assert.NotEmpty(t, info.GoVersion)
		assert.Contains(t, info.Symbols, "answer")
	})
}
