// Package logging configures the crawler's structured logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where log lines go and how verbose they are.
type Config struct {
	// File is the log file path. Empty disables file output.
	File string `yaml:"file"`
	// Level is a logrus level name ("debug", "info", "warning", "error").
	Level string `yaml:"level"`
	// Stderr mirrors log lines to standard error.
	Stderr bool `yaml:"stderr"`
	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int `yaml:"max_size_mb"`
	// MaxBackups is how many rotated files are kept.
	MaxBackups int `yaml:"max_backups"`
}

// DefaultConfig matches the historical crawler behaviour: warnings and
// errors only, written to ./youtube_insight_crawler.log.
func DefaultConfig() Config {
	return Config{
		File:       "./youtube_insight_crawler.log",
		Level:      "warning",
		MaxSizeMB:  100,
		MaxBackups: 3,
	}
}

// Logger wraps logrus.Logger and keeps a handle on the rotating file.
type Logger struct {
	*logrus.Logger
	file *lumberjack.Logger
}

// New builds a JSON logger from cfg.
func New(cfg Config) (*Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)
	logger.SetReportCaller(true)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
		},
	})

	var writers []io.Writer
	var rotating *lumberjack.Logger
	if cfg.File != "" {
		rotating = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		writers = append(writers, rotating)
	}
	if cfg.Stderr {
		writers = append(writers, os.Stderr)
	}
	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	return &Logger{Logger: logger, file: rotating}, nil
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &Logger{Logger: logger}
}

// WithComponent tags entries with the emitting component.
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.Logger.WithField("component", component)
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
