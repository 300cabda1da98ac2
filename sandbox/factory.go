package sandbox

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kirollos2001/Data-mind/config"
)

// EngineJS is the only execution engine: an embedded ECMAScript interpreter.
const EngineJS = "js"

// Timeout returns the execution limit as a duration. Zero means no limit.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// NewExecutor creates the executor for the requested engine.
func NewExecutor(logger *zap.Logger, config *Config, engine string) (CodeExecutor, error) {
	switch engine {
	case EngineJS, "":
		return NewJSExecutor(logger, config), nil
	default:
		return nil, fmt.Errorf("unsupported engine: %s", engine)
	}
}

// NewFromConfig creates an executor from the application configuration.
func NewFromConfig(logger *zap.Logger, cfg *config.Config) (CodeExecutor, error) {
	return NewExecutor(logger, &Config{
		TimeoutSec:      cfg.Sandbox.TimeoutSec,
		MaxTraceFrames:  cfg.Sandbox.MaxTraceFrames,
		MaxCollectDepth: cfg.Sandbox.MaxCollectDepth,
	}, cfg.Sandbox.Engine)
}
