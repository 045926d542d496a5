package main

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ryansname/visimos/src/config"
)

// readlineWriter wraps log output to work with readline
type readlineWriter struct {
	mu  sync.Mutex
	rl  *readline.Instance
	out io.Writer
}

func (w *readlineWriter) setReadline(rl *readline.Instance) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rl = rl
}

func (w *readlineWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rl != nil {
		w.rl.Clean()
	}
	n, err = w.out.Write(p)
	if w.rl != nil {
		w.rl.Refresh()
	}
	return n, err
}

// Global readline writer for console log output
var rlWriter = &readlineWriter{out: os.Stderr}

// setupLogging configures the global zerolog logger. When the terminal
// renderer owns the screen, logs go to a file instead of stderr.
func setupLogging(cfg *config.Config, toFile bool) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out io.Writer = zerolog.ConsoleWriter{Out: rlWriter, TimeFormat: "15:04:05"}
	if toFile {
		if f, err := openLogFile(cfg.Log.File); err == nil {
			out = f
		} else {
			// Logging to a terminal we are drawing on would corrupt it
			out = io.Discard
		}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("unknown log level, using info")
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// componentLogger tags a logger with its worker name.
func componentLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
