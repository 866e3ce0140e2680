package worker

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/replbox/replbox/config"
	"github.com/replbox/replbox/environments"
)

// NewFromConfig builds a Supervisor that spawns the configured worker
// binary. Worker-side settings travel as environment variables; the worker
// has no config file of its own.
func NewFromConfig(cfg *config.Config, log *zap.Logger) (*Supervisor, error) {
	envRoot, err := environments.Root(cfg.Environments.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving environments root: %w", err)
	}

	env := []string{
		fmt.Sprintf("REPLBOX_WORKER_MAX_TRACE_FRAMES=%d", cfg.Worker.MaxTraceFrames),
		"REPLBOX_WORKER_LOG_LEVEL=" + cfg.Logging.Level,
	}
	starter := NewExecStarter(log, cfg.Worker.Binary, env)

	return New(log, starter, Config{
		ReadyTimeout:   cfg.ReadyTimeout(),
		InitialProject: cfg.Worker.Project,
		EnvRoot:        envRoot,
	}), nil
}
