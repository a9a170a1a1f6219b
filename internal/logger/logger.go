package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation constants
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// Config describes the rotating combined-output file for a worker.
// Workers write stdout and stderr into a single stream, so there is one
// file per worker: Dir/<name>.log unless Path overrides it.
// Rotation parameters follow lumberjack semantics.
type Config struct {
	Dir        string // base directory for worker logs
	Path       string // explicit path overrides Dir
	MaxSizeMB  int    // megabytes before rotation (default 10)
	MaxBackups int    // number of backups to keep (default 3)
	MaxAgeDays int    // days to keep (default 7)
	Compress   bool   // gzip rotated files
}

// Writer returns the rotating io.WriteCloser for the given worker name,
// or nil when neither Dir nor Path is configured.
func (c Config) Writer(name string) (io.WriteCloser, error) {
	path := c.Path
	if path == "" && c.Dir != "" {
		path = filepath.Join(c.Dir, fmt.Sprintf("%s.log", name))
	}
	if path == "" {
		return nil, nil
	}
	return &lj.Logger{
		Filename:   path,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}, nil
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// NewServerLogger builds the slog.Logger used by the supervisor daemon,
// writing colored text to stderr.
func NewServerLogger(level slog.Level) *slog.Logger {
	h := NewColorTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}, true)
	return slog.New(h)
}
