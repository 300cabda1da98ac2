package main

import (
	"errors"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/kirollos2001/Data-mind/config"
	"github.com/kirollos2001/Data-mind/llm"
	"github.com/kirollos2001/Data-mind/logger"
	"github.com/kirollos2001/Data-mind/mcpserver"
	"github.com/kirollos2001/Data-mind/sandbox"
)

func main() {
	app := fx.New(
		// Provide dependencies
		fx.Provide(
			// Config
			config.New,

			// Logger with configuration
			logger.NewFromConfig,

			// Sandbox executor based on config
			sandbox.NewFromConfig,

			// AI analyst; optional, the server runs without it when
			// no API key is configured
			func(log *zap.Logger, cfg *config.Config) *llm.Analyst {
				analyst, err := llm.NewFromConfig(log, cfg)
				if err != nil {
					if errors.Is(err, llm.ErrMissingAPIKey) {
						log.Warn("analyst disabled", zap.Error(err))
						return nil
					}
					panic(err)
				}
				return analyst
			},

			// MCP Server
			mcpserver.New,
		),

		// Start the appropriate transport based on config
		fx.Invoke(
			func(cfg *config.Config, server *mcpserver.MCPServer) {
				switch cfg.Server.Transport {
				case "stdio":
					// Use fx to run this as a background task
					go func() {
						if err := server.ServeStdio(); err != nil {
							panic(err)
						}
					}()
				case "http":
					go func() {
						if err := server.ServeHTTP(); err != nil {
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
