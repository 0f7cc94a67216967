package logger

import (
	"sync"
)

// TestLogger is an in-memory Logger for tests. Derived loggers obtained
// through With share the parent's entry sink, so assertions made on the
// root see everything logged by children.
type TestLogger struct {
	mu      sync.Mutex
	entries []LogEntry
	root    *TestLogger
	base    []Field
}

// Named implements Logger.
func (l *TestLogger) Named(name string) Logger {
	return l
}

// Sync implements Logger.
func (l *TestLogger) Sync() error {
	return nil
}

type LogEntry struct {
	Level   string
	Message string
	Fields  []Field
}

// NewTestLogger creates a new test logger.
func NewTestLogger() *TestLogger {
	return &TestLogger{
		entries: make([]LogEntry, 0),
	}
}

func (l *TestLogger) Debug(msg string, fields ...Field) {
	l.log("DEBUG", msg, fields...)
}

func (l *TestLogger) Info(msg string, fields ...Field) {
	l.log("INFO", msg, fields...)
}

func (l *TestLogger) Warn(msg string, fields ...Field) {
	l.log("WARN", msg, fields...)
}

func (l *TestLogger) Error(msg string, fields ...Field) {
	l.log("ERROR", msg, fields...)
}

func (l *TestLogger) Fatal(msg string, fields ...Field) {
	l.log("FATAL", msg, fields...)
}

func (l *TestLogger) With(fields ...Field) Logger {
	base := make([]Field, 0, len(l.base)+len(fields))
	base = append(base, l.base...)
	base = append(base, fields...)
	return &TestLogger{root: l.sink(), base: base}
}

func (l *TestLogger) sink() *TestLogger {
	if l.root != nil {
		return l.root
	}
	return l
}

func (l *TestLogger) log(level, msg string, fields ...Field) {
	all := make([]Field, 0, len(l.base)+len(fields))
	all = append(all, l.base...)
	all = append(all, fields...)

	s := l.sink()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, LogEntry{
		Level:   level,
		Message: msg,
		Fields:  all,
	})
}

// GetEntries returns a copy of all recorded entries.
func (l *TestLogger) GetEntries() []LogEntry {
	s := l.sink()
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]LogEntry, len(s.entries))
	copy(entries, s.entries)
	return entries
}

// Clear removes all recorded entries.
func (l *TestLogger) Clear() {
	s := l.sink()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.entries[:0]
}

// Messages returns the recorded messages at the given level, in order.
func (l *TestLogger) Messages(level string) []string {
	s := l.sink()
	s.mu.Lock()
	defer s.mu.Unlock()

	var msgs []string
	for _, e := range s.entries {
		if e.Level == level {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}
