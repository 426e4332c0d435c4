// Package applog constructs the zap logger cmd/agtrace builds and passes
// on to pkg/client and pkg/watch. It exists so every component gets the
// same encoding/level conventions without repeating zap.Config
// boilerplate at each call site.
package applog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger writing to stderr. debug enables debug-level
// logging and a development-friendly console encoder; otherwise it logs
// structured JSON at info level, suitable for piping into a log
// collector.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
