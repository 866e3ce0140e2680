package main

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/replbox/replbox/config"
	"github.com/replbox/replbox/logger"
	"github.com/replbox/replbox/mcpserver"
	"github.com/replbox/replbox/worker"
)

func main() {
	app := fx.New(
		// Provide dependencies
		fx.Provide(
			// Config
			config.New,

			// Logger with configuration
			logger.NewFromConfig,

			// Worker supervisor
			worker.NewFromConfig,
			func(s *worker.Supervisor) worker.Backend { return s },

			// MCP Server
			mcpserver.New,
		),

		// Start the appropriate transport based on config, and make sure the
		// worker dies with the server.
		fx.Invoke(
			func(lc fx.Lifecycle, cfg *config.Config, sup *worker.Supervisor, srv *mcpserver.MCPServer) {
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						sup.Kill()
						return nil
					},
				})

				switch cfg.Server.Transport {
				case "stdio":
					go func() {
						if err := srv.ServeStdio(); err != nil {
							panic(err)
						}
					}()
				case "http":
					go func() {
						if err := srv.ServeHTTP(); err != nil {
							panic(err)
						}
					}()
				default:
					panic("unsupported transport: " + cfg.Server.Transport)
				}
			},
		),

		// Use the application logger for fx logs
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	// Start the application
	app.Run()
}
