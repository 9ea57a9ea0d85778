package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log file rotation settings.
const (
	logMaxSizeMB  = 10
	logMaxBackups = 3
	logMaxAgeDays = 28
)

// logFileWriter is kept for cleanup on exit.
var logFileWriter io.WriteCloser

// initLogger builds the command logger. Console output goes to stderr,
// human-readable on a terminal and JSON otherwise; a rotating JSON copy is
// written to ~/.depaudit/logs/depaudit.log when that file can be opened.
func initLogger(verbose, quiet bool) zerolog.Logger {
	console := selectConsole()

	var writer io.Writer = console
	if logFileWriter == nil {
		if fw, err := createLogFileWriter(); err == nil {
			logFileWriter = fw
		}
	}
	if logFileWriter != nil {
		writer = zerolog.MultiLevelWriter(console, logFileWriter)
	}

	return newLogger(writer, verbose, quiet)
}

// newLogger creates a timestamped logger at the level selected by the flags.
func newLogger(w io.Writer, verbose, quiet bool) zerolog.Logger {
	return zerolog.New(w).Level(selectLevel(verbose, quiet)).With().Timestamp().Logger()
}

// selectLevel determines the log level from the verbosity flags.
func selectLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

func selectConsole() io.Writer {
	if isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return os.Stderr
}

func createLogFileWriter() (io.WriteCloser, error) {
	home, err := depauditHome()
	if err != nil {
		return nil, err
	}

	logDir := filepath.Join(home, "logs")
	if err := os.MkdirAll(logDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "depaudit.log"),
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
		Compress:   true,
	}, nil
}

// closeLogFile closes the rotating log file if it was opened.
func closeLogFile() {
	if logFileWriter != nil {
		_ = logFileWriter.Close()
		logFileWriter = nil
	}
}
