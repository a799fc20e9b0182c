// Package logging builds the component loggers used across devhub.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where log output goes.
type Config struct {
	// File, when set, receives a copy of every line through a rotating writer.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Stderr is the console writer. Defaults to os.Stderr.
	Stderr io.Writer
}

// DefaultConfig returns a console-only configuration.
func DefaultConfig() Config {
	return Config{
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
		Stderr:     os.Stderr,
	}
}

// Factory hands out prefixed loggers sharing one output.
type Factory struct {
	out    io.Writer
	rotate *lumberjack.Logger
}

// New builds a Factory from cfg.
func New(cfg Config) *Factory {
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}

	f := &Factory{out: cfg.Stderr}
	if cfg.File != "" {
		f.rotate = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		f.out = io.MultiWriter(cfg.Stderr, f.rotate)
	}
	return f
}

// Logger returns a logger for one component, e.g. Logger("store") writes
// lines prefixed with "[store] ".
func (f *Factory) Logger(component string) *log.Logger {
	return log.New(f.out, "["+component+"] ", log.LstdFlags)
}

// Writer returns the shared output.
func (f *Factory) Writer() io.Writer {
	return f.out
}

// Close flushes and closes the rotating file, if any.
func (f *Factory) Close() error {
	if f.rotate == nil {
		return nil
	}
	return f.rotate.Close()
}
