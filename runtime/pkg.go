package runtime

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/replbox/replbox/protocol"
)

// PkgRunner executes package-manager verbs by shelling out to the go tool in
// the session's project directory.
type PkgRunner struct {
	log       *zap.Logger
	cmdRunner CommandRunner
}

// PkgRunnerOption defines a functional option for PkgRunner
type PkgRunnerOption func(*PkgRunner)

// WithCommandRunner sets the CommandRunner for PkgRunner
func WithCommandRunner(cmdRunner CommandRunner) PkgRunnerOption {
	return func(p *PkgRunner) {
		p.cmdRunner = cmdRunner
	}
}

// NewPkgRunner creates a PkgRunner with default implementations and optional interfaces
func NewPkgRunner(log *zap.Logger, opts ...PkgRunnerOption) *PkgRunner {
	if log == nil {
		log = zap.NewNop()
	}
	p := &PkgRunner{
		log:       log,
		cmdRunner: &RealCommandRunner{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one package action in dir and returns the outcome as data.
// The action is expected to be pre-validated by the tool-handler layer;
// an unknown action still comes back as a data-shaped error rather than a
// panic so a misbehaving caller gets an interpretable answer.
func (p *PkgRunner) Run(ctx context.Context, action string, args []string, dir string) PkgResult {
	argv, err := commandFor(action, args)
	if err != nil {
		return PkgResult{Error: err.Error()}
	}

	p.log.Debug("running package action",
		zap.String("action", action),
		zap.Strings("argv", argv),
		zap.String("dir", dir))

	stdout, stderr, exitCode, err := p.cmdRunner.RunCommand(ctx, dir, argv)
	if err != nil {
		return PkgResult{
			Error:  fmt.Sprintf("running %s: %v", strings.Join(argv, " "), err),
			Stdout: stdout,
			Stderr: stderr,
		}
	}

	res := PkgResult{Stdout: stdout, Stderr: stderr}
	if exitCode != 0 {
		res.Error = fmt.Sprintf("%s exited with status %d", strings.Join(argv, " "), exitCode)
	}
	return res
}

// commandFor maps a package verb to a go tool invocation.
func commandFor(action string, args []string) ([]string, error) {
	switch protocol.PkgAction(action) {
	case protocol.PkgAdd:
		return append([]string{"go", "get"}, args...), nil
	case protocol.PkgRemove:
		argv := []string{"go", "get"}
		for _, a := range args {
			argv = append(argv, a+"@none")
		}
		return argv, nil
	case protocol.PkgStatus:
		return []string{"go", "list", "-m", "all"}, nil
	case protocol.PkgUpdate:
		if len(args) == 0 {
			return []string{"go", "get", "-u", "./..."}, nil
		}
		return append([]string{"go", "get", "-u"}, args...), nil
	case protocol.PkgInstantiate:
		return []string{"go", "mod", "download"}, nil
	case protocol.PkgResolve:
		return []string{"go", "mod", "tidy"}, nil
	case protocol.PkgTest:
		return []string{"go", "test", "./..."}, nil
	case protocol.PkgDevelop:
		argv := []string{"go", "mod", "edit"}
		for _, a := range args {
			if !strings.Contains(a, "=") {
				return nil, fmt.Errorf("dev requires module=dir pairs, got %q", a)
			}
			argv = append(argv, "-replace", a)
		}
		return argv, nil
	case protocol.PkgUndevelop:
		argv := []string{"go", "mod", "edit"}
		for _, a := range args {
			argv = append(argv, "-dropreplace", a)
		}
		return argv, nil
	default:
		return nil, fmt.Errorf("unknown package action %q", action)
	}
}
