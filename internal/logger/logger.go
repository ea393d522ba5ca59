package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"ppemonitor/internal/config"
)

// Level file names, also served by the log endpoints.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	entry  *logrus.Logger
	logDir string
	mu     sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) *Logger {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	l := &Logger{logDir: config.LogDirectory}
	l.entry = l.setupLogrus(map[logrus.Level]io.Writer{
		logrus.InfoLevel:  io.MultiWriter(os.Stdout, l.openLogFile(InfoFile)),
		logrus.WarnLevel:  io.MultiWriter(os.Stdout, l.openLogFile(WarningFile)),
		logrus.ErrorLevel: io.MultiWriter(os.Stderr, l.openLogFile(ErrorFile)),
	})
	return l
}

// NewDiscard returns a Logger that drops every entry. Used by tests.
func NewDiscard() *Logger {
	l := &Logger{}
	l.entry = l.setupLogrus(nil)
	return l
}

// NewWriter returns a Logger that writes every level to w.
func NewWriter(w io.Writer) *Logger {
	l := &Logger{}
	l.entry = l.setupLogrus(map[logrus.Level]io.Writer{
		logrus.InfoLevel:  w,
		logrus.WarnLevel:  w,
		logrus.ErrorLevel: w,
	})
	return l
}

// setupLogrus builds a logrus instance whose output is routed per level by a hook.
func (l *Logger) setupLogrus(writers map[logrus.Level]io.Writer) *logrus.Logger {
	lg := logrus.New()
	lg.SetOutput(io.Discard)
	lg.SetLevel(logrus.InfoLevel)
	lg.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})
	if len(writers) > 0 {
		lg.AddHook(&levelHook{writers: writers})
	}
	return lg
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(name string) *os.File {
	filename := filepath.Join(l.logDir, name)
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file %s: %v", filename, err)
	}
	return file
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entry.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entry.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entry.Errorf(format, v...)
}

// Dir returns the directory holding the level files.
func (l *Logger) Dir() string {
	return l.logDir
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	if l.logDir == "" {
		return nil
	}
	filePath := filepath.Join(l.logDir, fileName)
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		l.Error("Error opening file: %v", err)
		return fmt.Errorf("truncate %s: %w", fileName, err)
	}
	defer file.Close()

	l.Info("File %s has been cleared.", fileName)
	return nil
}

// levelHook writes formatted entries to the writer registered for their level.
type levelHook struct {
	writers map[logrus.Level]io.Writer
}

func (h *levelHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *levelHook) Fire(entry *logrus.Entry) error {
	w, ok := h.writers[entry.Level]
	if !ok {
		switch {
		case entry.Level < logrus.ErrorLevel:
			w, ok = h.writers[logrus.ErrorLevel]
		default:
			w, ok = h.writers[logrus.InfoLevel]
		}
		if !ok {
			return nil
		}
	}
	line, err := entry.Logger.Formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = w.Write(line)
	return err
}
