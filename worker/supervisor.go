package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/replbox/replbox/environments"
	"github.com/replbox/replbox/protocol"
)

// DefaultReadyTimeout bounds the ready handshake after a spawn. It is the
// only timeout in the lifecycle: once a worker has answered the handshake,
// calls against it block for as long as the worker takes.
const DefaultReadyTimeout = 10 * time.Second

// killReapTimeout bounds how long Kill waits for the process to be reaped.
const killReapTimeout = 2 * time.Second

// EvalOutcome is the result of one code evaluation, formatted for display.
type EvalOutcome struct {
	Value  string
	Output string
	Error  string
}

// PkgOutcome is the result of one package action.
type PkgOutcome struct {
	Error  string
	Stdout string
	Stderr string
}

// ActivateOutcome is the result of one activation attempt.
type ActivateOutcome struct {
	OK      bool
	Project string
	Error   string
}

// ResetReport describes a completed hard reset.
type ResetReport struct {
	OldID             string
	NewID             string
	ProjectPath       string
	Reactivated       bool
	ReactivationError string
}

// SessionInfo describes the worker and its runtime state.
type SessionInfo struct {
	WorkerID           string
	PID                int
	GoVersion          string
	InterpreterVersion string
	ProjectPath        string
	Symbols            []string
	ModuleCount        int
	Environments       []string
}

// Backend is the surface the tool handlers consume.
type Backend interface {
	Eval(ctx context.Context, code string) (EvalOutcome, error)
	Reset(ctx context.Context) (ResetReport, error)
	Info(ctx context.Context) (SessionInfo, error)
	PkgAction(ctx context.Context, action string, packages []string) (PkgOutcome, error)
	Activate(ctx context.Context, path string) (ActivateOutcome, error)
}

// Config holds supervisor configuration.
type Config struct {
	// ReadyTimeout bounds the post-spawn ready handshake. Zero means
	// DefaultReadyTimeout.
	ReadyTimeout time.Duration

	// InitialProject, when set, is applied to the first worker as if it had
	// been activated before the session began.
	InitialProject string

	// EnvRoot is the directory holding named shared environments for the
	// @name activation shorthand.
	EnvRoot string
}

// workerState is the one piece of shared mutable state in the system. The id
// names the current worker process and is cleared on every kill; projectPath
// is session state and survives worker churn.
type workerState struct {
	id          string
	projectPath string
}

// Supervisor guarantees exactly one live worker backs every call. It holds
// no ambient globals; construct one per server (or per test).
type Supervisor struct {
	log          *zap.Logger
	starter      Starter
	readyTimeout time.Duration
	envRoot      string

	mu       sync.Mutex
	proc     Proc
	ch       *Channel
	state    workerState
	reactErr error
}

// New creates a Supervisor. The worker is not spawned until first use.
func New(log *zap.Logger, starter Starter, cfg Config) *Supervisor {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultReadyTimeout
	}
	return &Supervisor{
		log:          log,
		starter:      starter,
		readyTimeout: cfg.ReadyTimeout,
		envRoot:      cfg.EnvRoot,
		state:        workerState{projectPath: cfg.InitialProject},
	}
}

// WorkerID returns the current worker's id, or "" when no worker is live.
func (s *Supervisor) WorkerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.id
}

// ProjectPath returns the last successfully activated project path.
func (s *Supervisor) ProjectPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.projectPath
}

// Ensure makes sure a live worker exists, spawning one if needed, and
// returns its id.
func (s *Supervisor) Ensure(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLocked(ctx); err != nil {
		return "", err
	}
	return s.state.id, nil
}

// Kill terminates the current worker if one is live and clears its id.
// Killing with no worker is a no-op.
func (s *Supervisor) Kill() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killLocked()
}

// Reset kills the current worker and spawns a fresh one: a hard reset. No
// variables, packages, or type definitions survive; the activated project
// path does, and is re-applied to the new worker.
func (s *Supervisor) Reset(ctx context.Context) (ResetReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldID := s.state.id
	s.killLocked()
	if err := s.ensureLocked(ctx); err != nil {
		return ResetReport{OldID: oldID}, err
	}

	report := ResetReport{
		OldID:       oldID,
		NewID:       s.state.id,
		ProjectPath: s.state.projectPath,
		Reactivated: s.state.projectPath != "" && s.reactErr == nil,
	}
	if s.reactErr != nil {
		report.ReactivationError = s.reactErr.Error()
	}
	return report, nil
}

// Eval runs code in the worker's persistent namespace.
func (s *Supervisor) Eval(ctx context.Context, code string) (EvalOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(ctx); err != nil {
		return EvalOutcome{}, err
	}
	resp, err := s.ch.Call(protocol.Request{Op: protocol.OpEval, Code: code})
	if err != nil {
		return EvalOutcome{}, err
	}
	return EvalOutcome{Value: resp.Value, Output: resp.Output, Error: resp.Error}, nil
}

// PkgAction runs one validated package verb in the worker's project.
func (s *Supervisor) PkgAction(ctx context.Context, action string, packages []string) (PkgOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(ctx); err != nil {
		return PkgOutcome{}, err
	}
	resp, err := s.ch.Call(protocol.Request{Op: protocol.OpPkg, Action: action, Args: packages})
	if err != nil {
		return PkgOutcome{}, err
	}
	return PkgOutcome{Error: resp.Error, Stdout: resp.Stdout, Stderr: resp.Stderr}, nil
}

// Activate selects the worker's project environment. Shorthand is expanded
// here, before anything reaches the worker: "." (or empty) means the current
// directory and "@name" means the named shared environment under EnvRoot.
// Only a worker-confirmed success updates the recorded project path; failure
// leaves previously known-good state untouched and is returned as data.
func (s *Supervisor) Activate(ctx context.Context, path string) (ActivateOutcome, error) {
	resolved, err := s.expandPath(path)
	if err != nil {
		return ActivateOutcome{Error: err.Error()}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(ctx); err != nil {
		return ActivateOutcome{}, err
	}
	resp, err := s.ch.Call(protocol.Request{Op: protocol.OpActivate, Path: resolved})
	if err != nil {
		return ActivateOutcome{}, err
	}
	if resp.Error != "" {
		return ActivateOutcome{Error: resp.Error}, nil
	}

	s.state.projectPath = resp.Path
	s.log.Info("project activated", zap.String("project", resp.Path))
	return ActivateOutcome{OK: true, Project: resp.Path}, nil
}

// Info queries the worker for its runtime state.
func (s *Supervisor) Info(ctx context.Context) (SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(ctx); err != nil {
		return SessionInfo{}, err
	}
	resp, err := s.ch.Call(protocol.Request{Op: protocol.OpInfo})
	if err != nil {
		return SessionInfo{}, err
	}

	info := SessionInfo{WorkerID: s.state.id, PID: s.proc.PID()}
	if resp.Info != nil {
		info.GoVersion = resp.Info.GoVersion
		info.InterpreterVersion = resp.Info.InterpreterVersion
		info.ProjectPath = resp.Info.ProjectPath
		info.Symbols = resp.Info.Symbols
		info.ModuleCount = resp.Info.ModuleCount
	}

	if envs, listErr := environments.List(s.envRoot); listErr == nil {
		for _, name := range envs {
			entry := name
			if m, loadErr := environments.Load(s.envRoot, name); loadErr == nil && m.Description != "" {
				entry = name + " (" + m.Description + ")"
			}
			info.Environments = append(info.Environments, entry)
		}
	} else {
		s.log.Debug("listing environments failed", zap.Error(listErr))
	}
	return info, nil
}

func (s *Supervisor) expandPath(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "" || raw == ".":
		return os.Getwd()
	case strings.HasPrefix(raw, "@"):
		return environments.Resolve(s.envRoot, strings.TrimPrefix(raw, "@"))
	default:
		return filepath.Abs(raw)
	}
}

// alive reports whether the recorded worker process is still running.
func (s *Supervisor) alive() bool {
	if s.proc == nil {
		return false
	}
	select {
	case <-s.proc.Done():
		return false
	default:
		return true
	}
}

// ensureLocked spawns a worker if none is recorded or the recorded one is
// dead, then re-applies the project path. Spawn failure is fatal to the
// call; reactivation failure is not — a working interpreter is better than
// none, and the unactivated state is visible in project info output.
func (s *Supervisor) ensureLocked(ctx context.Context) error {
	if s.alive() {
		return nil
	}
	if s.proc != nil {
		s.log.Warn("worker found dead, respawning", zap.String("worker_id", s.state.id))
		s.killLocked()
	}

	proc, err := s.starter.Start(ctx)
	if err != nil {
		return &SpawnError{Err: err}
	}

	ch := NewChannel(proc.Stdin(), proc.Stdout())
	if err := s.handshake(ch); err != nil {
		_ = proc.Kill()
		return &SpawnError{Err: err}
	}

	s.proc = proc
	s.ch = ch
	s.state.id = uuid.NewString()
	s.reactErr = nil
	s.log.Info("worker started",
		zap.String("worker_id", s.state.id),
		zap.Int("pid", proc.PID()))

	if s.state.projectPath != "" {
		resp, callErr := ch.Call(protocol.Request{Op: protocol.OpActivate, Path: s.state.projectPath})
		switch {
		case callErr != nil:
			s.reactErr = callErr
		case resp.Error != "":
			s.reactErr = fmt.Errorf("%s", resp.Error)
		}
		if s.reactErr != nil {
			s.log.Warn("project reactivation failed, worker is up unactivated",
				zap.String("project", s.state.projectPath),
				zap.Error(s.reactErr))
		}
	}
	return nil
}

// handshake waits for the worker to answer a ping, bounded by the ready
// timeout. On timeout the caller kills the process, which unblocks the
// pending call.
func (s *Supervisor) handshake(ch *Channel) error {
	done := make(chan error, 1)
	go func() {
		_, err := ch.Call(protocol.Request{Op: protocol.OpPing})
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(s.readyTimeout):
		return fmt.Errorf("worker not ready after %s", s.readyTimeout)
	}
}

func (s *Supervisor) killLocked() {
	if s.proc != nil {
		if err := s.proc.Kill(); err != nil {
			s.log.Warn("killing worker", zap.Error(err))
		}
		select {
		case <-s.proc.Done():
		case <-time.After(killReapTimeout):
			s.log.Warn("worker did not exit in time", zap.String("worker_id", s.state.id))
		}
	}
	s.proc = nil
	s.ch = nil
	s.state.id = ""
}
