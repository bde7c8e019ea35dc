// Package logging provides real-time log output for recoverkit.
// Hook invocations reserve stdout for the host response, so the default
// destination is stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	rkerrors "github.com/vinayprograms/recoverkit/errors"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// ParseLevel converts a config string into a Level. Unknown values yield LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger provides structured logging to stderr.
type Logger struct {
	mu        *sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
	traceID   string
}

var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// New creates a new Logger.
func New() *Logger {
	return &Logger{
		mu:       &sync.Mutex{},
		output:   os.Stderr,
		minLevel: LevelInfo,
	}
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *Logger {
	l := New()
	l.output = io.Discard
	return l
}

// WithComponent returns a new logger with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		mu:        l.mu,
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
		traceID:   l.traceID,
	}
}

// WithTraceID returns a new logger with the given trace ID.
func (l *Logger) WithTraceID(traceID string) *Logger {
	return &Logger{
		mu:        l.mu,
		output:    l.output,
		minLevel:  l.minLevel,
		component: l.component,
		traceID:   traceID,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats fields as key=value pairs in key order.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}
	if l.traceID != "" {
		fieldStr += " trace=" + l.traceID
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Recovery event helpers ---

// InvocationStart logs the start of a failure-handling invocation.
func (l *Logger) InvocationStart(tool, signature, session string) {
	fields := map[string]interface{}{
		"tool":      tool,
		"signature": signature,
	}
	if session != "" {
		fields["session"] = session
	}
	l.Debug("invocation_start", fields)
}

// InvocationComplete logs the end of a failure-handling invocation.
func (l *Logger) InvocationComplete(signature string, duration time.Duration, exhausted bool) {
	l.Debug("invocation_complete", map[string]interface{}{
		"signature": signature,
		"duration":  duration.String(),
		"exhausted": exhausted,
	})
}

// AttemptRecorded logs a recorded retry attempt.
func (l *Logger) AttemptRecorded(signature, category string, phase, attempt, remaining int) {
	l.Info("attempt_recorded", map[string]interface{}{
		"signature": signature,
		"category":  category,
		"phase":     phase,
		"attempt":   attempt,
		"remaining": remaining,
	})
}

// PhaseEscalated logs a phase transition.
func (l *Logger) PhaseEscalated(signature string, from, to int) {
	l.Info("phase_escalated", map[string]interface{}{
		"signature": signature,
		"from":      from,
		"to":        to,
	})
}

// Exhausted logs that a signature has used every phase.
func (l *Logger) Exhausted(signature string, totalAttempts int) {
	l.Warn("retries_exhausted", map[string]interface{}{
		"signature":      signature,
		"total_attempts": totalAttempts,
	})
}

// StoreFailure logs a persistence failure the engine degraded around.
func (l *Logger) StoreFailure(op, signature string, err error) {
	fields := map[string]interface{}{
		"op": op,
	}
	if signature != "" {
		fields["signature"] = signature
	}
	addError(fields, err)
	l.Warn("store_failure", fields)
}

// RecorderFailure logs a failure memory write that was swallowed.
func (l *Logger) RecorderFailure(signature string, err error) {
	fields := map[string]interface{}{
		"signature": signature,
	}
	addError(fields, err)
	l.Warn("recorder_failure", fields)
}

// addError sets the error text and, for engine errors, its code.
func addError(fields map[string]interface{}, err error) {
	if err == nil {
		return
	}
	fields["error"] = err.Error()
	if code := rkerrors.Code(err); code != "" {
		fields["code"] = string(code)
	}
}

// --- printf adapter ---

// Printf adapts a Logger to printf-style logger interfaces such as badger's.
type Printf struct {
	l *Logger
}

// AsPrintf returns a printf-style adapter.
func (l *Logger) AsPrintf() *Printf {
	return &Printf{l: l}
}

func (p *Printf) Errorf(format string, args ...interface{}) {
	p.l.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (p *Printf) Warningf(format string, args ...interface{}) {
	p.l.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (p *Printf) Infof(format string, args ...interface{}) {
	p.l.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (p *Printf) Debugf(format string, args ...interface{}) {
	p.l.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
