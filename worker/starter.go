package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Proc is a running worker process as the supervisor sees it.
type Proc interface {
	// Stdin is the request stream into the worker.
	Stdin() io.WriteCloser

	// Stdout is the response stream out of the worker.
	Stdout() io.Reader

	// PID returns the OS process id, or 0 when not applicable.
	PID() int

	// Kill terminates the process. Killing an exited process is a no-op.
	Kill() error

	// Done is closed when the process has exited.
	Done() <-chan struct{}
}

// Starter abstracts worker process creation so tests can run an in-process
// worker behind pipes instead of spawning a binary.
type Starter interface {
	Start(ctx context.Context) (Proc, error)
}

// ExecStarter spawns the worker binary as an OS process with its stdin and
// stdout wired to the channel and its stderr streamed into the server log.
type ExecStarter struct {
	log    *zap.Logger
	binary string
	env    []string
}

// NewExecStarter creates an ExecStarter for the given worker binary. env
// holds extra KEY=VALUE entries appended to the inherited environment.
func NewExecStarter(log *zap.Logger, binary string, env []string) *ExecStarter {
	return &ExecStarter{log: log, binary: binary, env: env}
}

// Start launches the worker. The context covers launch only; the worker is
// expected to outlive it.
//
// The pipes are created explicitly rather than through the cmd.StdoutPipe
// helpers: those are closed by Wait, which runs concurrently with the
// channel's reads and could drop a final buffered response. With our own
// pipes Wait touches nothing; the read ends see EOF when the child exits.
func (e *ExecStarter) Start(_ context.Context) (Proc, error) {
	cmd := exec.Command(e.binary) //nolint:gosec // binary path comes from validated config
	cmd.Env = append(os.Environ(), e.env...)

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("opening worker stdin: %w", err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		return nil, fmt.Errorf("opening worker stdout: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("opening worker stderr: %w", err)
	}
	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return nil, fmt.Errorf("starting %s: %w", e.binary, err)
	}

	// The child holds its own descriptors now; drop ours so the read ends
	// reach EOF when it exits.
	stdinR.Close()
	stdoutW.Close()
	stderrW.Close()

	// Worker logs go to its stderr; relay them so they end up in one place.
	go e.relayStderr(stderrR)

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	return &execProc{cmd: cmd, stdin: stdinW, stdout: stdoutR, done: done}, nil
}

// relayStderr streams the worker's stderr into the server log line by line.
// A plain reader instead of a Scanner: zap can emit entries well past the
// Scanner's default token limit, and a relay that silently stops on a long
// line loses everything after it.
func (e *ExecStarter) relayStderr(r io.Reader) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line = strings.TrimRight(line, "\n"); line != "" {
			e.log.Debug("worker stderr", zap.String("line", line))
		}
		if err != nil {
			return
		}
	}
}

type execProc struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
	done   chan struct{}
}

func (p *execProc) Stdin() io.WriteCloser { return p.stdin }
func (p *execProc) Stdout() io.Reader     { return p.stdout }

func (p *execProc) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *execProc) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	p.stdin.Close()
	if p.cmd.Process != nil {
		return p.cmd.Process.Kill()
	}
	return nil
}

func (p *execProc) Done() <-chan struct{} { return p.done }
