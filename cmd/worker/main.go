package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/replbox/replbox/logger"
	"github.com/replbox/replbox/runtime"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}

func run() error {
	log, err := logger.New("production", envOr("REPLBOX_WORKER_LOG_LEVEL", "info"))
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck // best-effort flush on exit

	maxFrames := runtime.DefaultMaxTraceFrames
	if v := os.Getenv("REPLBOX_WORKER_MAX_TRACE_FRAMES"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n <= 0 {
			return fmt.Errorf("invalid REPLBOX_WORKER_MAX_TRACE_FRAMES: %q", v)
		}
		maxFrames = n
	}

	// Both interpreter streams point at stderr: stdout carries the
	// response protocol, so uncaptured prints must never reach it.
	session, err := runtime.NewSession(runtime.Options{
		MaxTraceFrames: maxFrames,
		Logger:         log,
		Stdout:         os.Stderr,
		Stderr:         os.Stderr,
	})
	if err != nil {
		return err
	}

	dispatcher := runtime.NewDispatcher(session, runtime.NewPkgRunner(log), log)

	log.Info("worker ready", zap.Int("pid", os.Getpid()))

	return dispatcher.Loop(context.Background(), os.Stdin, os.Stdout)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
