// Package logger provides the diagnostic logger used by ctfhunter.
//
// Diagnostics never go to the report stream: the report is what operators
// read, the log explains what was skipped and why.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering
const (
	levelDebug int = iota
	levelInfo
	levelWarn
	levelError
)

// Logger is the logging surface the hunter and CLI depend on.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// ConsoleLogger writes leveled, timestamped lines to a writer. It is safe
// for concurrent use.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	now         func() time.Time
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: debug, info, warn, error (case-insensitive); anything else
// falls back to "warn".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    NormalizeLevel(logLevel),
		colorOutput: isTerminal(writer),
		now:         time.Now,
	}
}

// Nop returns a logger that discards everything.
func Nop() *ConsoleLogger {
	return NewConsoleLogger(nil, "error")
}

// SetColor forces color output on or off.
func (cl *ConsoleLogger) SetColor(enabled bool) {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	cl.colorOutput = enabled
}

// isTerminal reports whether w is a terminal file descriptor.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NormalizeLevel lowercases level, returning "warn" for "warning", empty or
// unknown levels. Use ValidLevel to reject unknown levels first.
func NormalizeLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "debug", "info", "warn", "error":
		return normalized
	default:
		return "warn"
	}
}

// ValidLevel reports whether level names a known log level.
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

func logLevelToInt(level string) int {
	switch level {
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "error":
		return levelError
	default:
		return levelWarn
	}
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

func (cl *ConsoleLogger) Debugf(format string, args ...any) { cl.logf("debug", format, args...) }
func (cl *ConsoleLogger) Infof(format string, args ...any)  { cl.logf("info", format, args...) }
func (cl *ConsoleLogger) Warnf(format string, args ...any)  { cl.logf("warn", format, args...) }
func (cl *ConsoleLogger) Errorf(format string, args ...any) { cl.logf("error", format, args...) }

// logf formats one line as "[HH:MM:SS] [LEVEL] message".
func (cl *ConsoleLogger) logf(level, format string, args ...any) {
	if cl.writer == nil || !cl.shouldLog(level) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	label := strings.ToUpper(level)
	if cl.colorOutput {
		label = colorForLevel(level).Sprint(label)
	}

	timestamp := cl.now().Format("15:04:05")
	message := fmt.Sprintf(format, args...)
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", timestamp, label, message)
}

func colorForLevel(level string) *color.Color {
	var c *color.Color
	switch level {
	case "debug":
		c = color.New(color.FgHiBlack)
	case "info":
		c = color.New(color.FgCyan)
	case "warn":
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.FgRed)
	}
	// TTY detection already happened on our writer, not on os.Stdout
	c.EnableColor()
	return c
}
