package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dusk-indust/conclave/internal/config"
	"github.com/dusk-indust/conclave/internal/orchestrator"
	"github.com/dusk-indust/conclave/internal/session"
)

// app is the wired application shared by all commands.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	pipeline *orchestrator.Pipeline
}

// buildApp loads configuration and wires logger, session opener, and
// pipeline.
func buildApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := newLogger(cfg.LogLevel)
	opener := session.NewHTTPOpener(cfg.Endpoints())
	pipeline := orchestrator.NewPipeline(opener, cfg.Orchestrator(), log)

	return &app{
		cfg:      cfg,
		log:      log,
		pipeline: pipeline,
	}, nil
}

func newLogger(level string) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(w).With().Timestamp().Logger().Level(parseLevel(level))
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// formatEvent renders one progress event as a console status line.
func formatEvent(ev orchestrator.ProgressEvent) string {
	switch ev.Status {
	case orchestrator.StatusStreaming:
		return fmt.Sprintf("  ● %s: %d chars", ev.Service, len(ev.Content))
	case orchestrator.StatusAnalysisError:
		return fmt.Sprintf("  ✗ %s", ev.Message)
	default:
		return fmt.Sprintf("▸ [%s] %s", ev.Status, ev.Message)
	}
}
