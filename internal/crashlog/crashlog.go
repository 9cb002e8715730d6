// Package crashlog keeps a bounded, persistent record of errors, image
// failures, scroll events and memory pressure seen by the daemon.
package crashlog

import (
	"encoding/json"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warpdl/recognition/pkg/clock"
	"github.com/warpdl/recognition/pkg/logger"
)

// Type classifies an entry.
type Type string

const (
	TypeError  Type = "error"
	TypeMemory Type = "memory"
	TypeImage  Type = "image"
	TypeScroll Type = "scroll"
)

// MaxEntries is the number of entries retained. Older entries are
// discarded first.
const MaxEntries = 50

// Entry is a single crash log record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      Type      `json:"type"`
	Message   string    `json:"message"`
	Stack     string    `json:"stack,omitempty"`
	Agent     string    `json:"agent"`
	Memory    *Memory   `json:"memory,omitempty"`
}

// Opts configures a Logger. A nil *Opts gives an enabled, in-memory log.
type Opts struct {
	// Disabled turns every call into a no-op.
	Disabled bool
	// Store persists entries. Nil keeps them in memory only.
	Store Store
	// Agent identifies the process in each entry.
	Agent string
	Clock clock.Clock
	// Console receives a copy of every entry and persistence failures.
	Console logger.Logger
	// ReadMemory samples process memory. Defaults to the runtime's
	// statistics.
	ReadMemory func() Memory
}

// Logger is the crash log. It also satisfies logger.Logger so it can be
// combined with console output through logger.NewMultiLogger: Error
// records an error entry, Warning an image entry, Debug and Info are
// dropped.
type Logger struct {
	mu         sync.Mutex
	enabled    bool
	entries    []Entry
	store      Store
	agent      string
	clock      clock.Clock
	console    logger.Logger
	readMemory func() Memory
	monitor    *monitor
	closed     bool
}

var _ logger.Logger = (*Logger)(nil)

// New creates a crash log and loads any entries already persisted in the
// store.
func New(opts *Opts) (*Logger, error) {
	if opts == nil {
		opts = &Opts{}
	}
	l := &Logger{
		enabled:    !opts.Disabled,
		store:      opts.Store,
		agent:      opts.Agent,
		clock:      opts.Clock,
		console:    logger.OrNop(opts.Console),
		readMemory: opts.ReadMemory,
	}
	if l.agent == "" {
		l.agent = fmt.Sprintf("recognition (%s/%s; %s)", runtime.GOOS, runtime.GOARCH, runtime.Version())
	}
	if l.clock == nil {
		l.clock = clock.New()
	}
	if l.readMemory == nil {
		l.readMemory = ReadMemory
	}
	if l.enabled && l.store != nil {
		entries, err := l.store.Load()
		if err != nil {
			return nil, fmt.Errorf("error: cannot load crash log: %w", err)
		}
		if len(entries) > MaxEntries {
			entries = entries[len(entries)-MaxEntries:]
		}
		l.entries = entries
	}
	return l, nil
}

// Enabled reports whether the log records entries.
func (l *Logger) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Log records an entry with the current memory sample attached.
func (l *Logger) Log(typ Type, message, stack string) {
	l.mu.Lock()
	if !l.enabled || l.closed {
		l.mu.Unlock()
		return
	}
	mem := l.readMemory()
	e := Entry{
		ID:        uuid.NewString(),
		Timestamp: l.clock.Now().UTC(),
		Type:      typ,
		Message:   message,
		Stack:     stack,
		Agent:     l.agent,
		Memory:    &mem,
	}
	l.entries = append(l.entries, e)
	if n := len(l.entries); n > MaxEntries {
		l.entries = append([]Entry(nil), l.entries[n-MaxEntries:]...)
	}
	l.saveLocked()
	l.mu.Unlock()

	l.console.Debug("[CrashLogger %s] %s", typ, message)
}

func (l *Logger) saveLocked() {
	if l.store == nil {
		return
	}
	if err := l.store.Save(l.entries); err != nil {
		l.console.Error("Failed to save crash log: %v", err)
	}
}

// Entries returns a copy of the retained entries, oldest first.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Clear drops every entry, including the persisted ones.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return
	}
	l.entries = nil
	l.saveLocked()
}

// Export renders the entries as indented JSON.
func (l *Logger) Export() ([]byte, error) {
	entries := l.Entries()
	if entries == nil {
		entries = []Entry{}
	}
	return json.MarshalIndent(entries, "", "  ")
}

func (l *Logger) Debug(format string, args ...interface{}) {}

func (l *Logger) Info(format string, args ...interface{}) {}

func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(TypeImage, fmt.Sprintf(format, args...), "")
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(TypeError, fmt.Sprintf(format, args...), "")
}

// Close stops the memory monitor and closes the store.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.stopMonitorLocked()
	if l.store != nil {
		return l.store.Close()
	}
	return nil
}
