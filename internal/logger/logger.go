// Package logger provides the process-wide ambient logger, built on
// arbor the same way the teacher's internal/logger does: a
// double-checked-locking singleton configured once at startup, with
// console/file/memory writers selected from config.
package logger

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	arborcommon "github.com/ternarybob/arbor/common"
	"github.com/ternarybob/arbor/models"
)

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

// GetLogger returns the global logger. Before Setup is called it
// returns a fallback console-only logger, logging a warning about the
// missed initialization order — every core package depends on this
// ambient accessor rather than an injected logger, since pkg/core
// cannot import pkg/core/diagnostics' Config without a cycle.
func GetLogger() arbor.ILogger {
	loggerMutex.RLock()
	if globalLogger != nil {
		loggerMutex.RUnlock()
		return globalLogger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(consoleWriterConfig("", "info"))
		globalLogger.Warn().Msg("using fallback logger - Setup should be called during startup")
	}
	return globalLogger
}

// Set stores logger as the global singleton.
func Set(l arbor.ILogger) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	globalLogger = l
}

// LoggingConfig is the subset of core.Config.Logging this package
// needs; defined locally (rather than importing pkg/core) to avoid an
// import cycle, since pkg/core itself imports this package.
type LoggingConfig struct {
	Level      string
	Format     string
	Output     []string
	TimeFormat string
	MaxSizeMB  int
	MaxBackups int
}

// Setup configures and installs the global logger from cfg, and
// additionally appends to messagesFile if non-empty — the diagnostics
// collector's global "messages" log (spec.md §4.8) is wired in by
// passing its path here rather than by this package knowing about
// diagnostics directly.
func Setup(cfg LoggingConfig, messagesFile string) arbor.ILogger {
	l := arbor.NewLogger()

	hasFile := messagesFile != ""
	hasConsole := false
	for _, out := range cfg.Output {
		if out == "console" || out == "stdout" {
			hasConsole = true
		}
		if out == "file" {
			hasFile = true
		}
	}
	if len(cfg.Output) == 0 {
		hasConsole = true
	}

	if hasFile && messagesFile != "" {
		if err := os.MkdirAll(filepath.Dir(messagesFile), 0o755); err != nil {
			tmp := l.WithConsoleWriter(consoleWriterConfig(cfg.TimeFormat, cfg.Format))
			tmp.Warn().Err(err).Str("path", messagesFile).Msg("failed to create diagnostics log directory")
		} else {
			l = l.WithFileWriter(writerConfig(cfg, models.LogWriterTypeFile, messagesFile))
		}
	}

	if hasConsole {
		l = l.WithConsoleWriter(writerConfig(cfg, models.LogWriterTypeConsole, ""))
	}

	l = l.WithMemoryWriter(writerConfig(cfg, models.LogWriterTypeMemory, ""))
	l = l.WithLevelFromString(cfg.Level)

	Set(l)
	return l
}

func consoleWriterConfig(timeFormat, format string) models.WriterConfiguration {
	return writerConfig(LoggingConfig{TimeFormat: timeFormat, Format: format}, models.LogWriterTypeConsole, "")
}

func writerConfig(cfg LoggingConfig, writerType models.LogWriterType, filename string) models.WriterConfiguration {
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = "15:04:05.000"
	}

	outputType := models.OutputFormatJSON
	if cfg.Format == "text" || cfg.Format == "logfmt" {
		outputType = models.OutputFormatLogfmt
	}

	maxSize := int64(100 * 1024 * 1024)
	if cfg.MaxSizeMB > 0 {
		maxSize = int64(cfg.MaxSizeMB) * 1024 * 1024
	}

	maxBackups := 5
	if cfg.MaxBackups > 0 {
		maxBackups = cfg.MaxBackups
	}

	return models.WriterConfiguration{
		Type:       writerType,
		FileName:   filename,
		TimeFormat: timeFormat,
		OutputType: outputType,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}
}

// Stop flushes any buffered context logs before process exit. Safe to
// call multiple times.
func Stop() {
	arborcommon.Stop()
}
