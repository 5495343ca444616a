// Package app wires the tool together: it owns the logger, loads the
// module set, builds the reference graph, runs one cascade per patched
// root and writes the changed modules to the output directory.
package app

import (
	"io"
	"log/slog"

	"github.com/fortender/StrongNameRemover/internal/config"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *config.Model
}

// New is the constructor for the main application. The returned App carries
// its own isolated logger built from the config's level and format.
func New(outW io.Writer, cfg *config.Model) *App {
	return &App{
		outW:   outW,
		logger: newLogger(cfg.LogLevel, cfg.LogFormat, outW),
		config: cfg,
	}
}
