package crashlog

import (
	"fmt"
	"math"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/warpdl/recognition/pkg/clock"
)

const (
	DefaultMemoryInterval  = 5 * time.Second
	DefaultMemoryThreshold = 0.70
)

// Memory is a sample of the process's memory use in bytes.
type Memory struct {
	HeapAlloc uint64 `json:"heapAlloc"`
	HeapSys   uint64 `json:"heapSys"`
	// Limit is the soft memory limit, or the total obtained from the OS
	// when no limit is set.
	Limit  uint64 `json:"limit"`
	MaxRSS uint64 `json:"maxRSS,omitempty"`
}

// Usage is HeapAlloc as a fraction of Limit.
func (m Memory) Usage() float64 {
	if m.Limit == 0 {
		return 0
	}
	return float64(m.HeapAlloc) / float64(m.Limit)
}

// ReadMemory samples the Go runtime and the OS peak resident set size.
func ReadMemory() Memory {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m := Memory{
		HeapAlloc: ms.HeapAlloc,
		HeapSys:   ms.HeapSys,
		Limit:     ms.Sys,
		MaxRSS:    maxRSS(),
	}
	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit != math.MaxInt64 {
		m.Limit = uint64(limit)
	}
	return m
}

type monitor struct {
	interval  time.Duration
	threshold float64
	timer     clock.Timer
}

// StartMemoryMonitor samples memory every interval and records a memory
// entry whenever usage exceeds threshold. Zero values select the
// defaults. Calling it while a monitor is running does nothing.
func (l *Logger) StartMemoryMonitor(interval time.Duration, threshold float64) {
	if interval <= 0 {
		interval = DefaultMemoryInterval
	}
	if threshold <= 0 {
		threshold = DefaultMemoryThreshold
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled || l.closed || l.monitor != nil {
		return
	}
	m := &monitor{interval: interval, threshold: threshold}
	l.monitor = m
	l.armLocked(m)
}

// StopMemoryMonitor stops a running monitor.
func (l *Logger) StopMemoryMonitor() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopMonitorLocked()
}

func (l *Logger) stopMonitorLocked() {
	if l.monitor == nil {
		return
	}
	l.monitor.timer.Stop()
	l.monitor = nil
}

func (l *Logger) armLocked(m *monitor) {
	m.timer = l.clock.AfterFunc(m.interval, func() { l.checkMemory(m) })
}

func (l *Logger) checkMemory(m *monitor) {
	mem := l.readMemory()
	if usage := mem.Usage(); usage > m.threshold {
		l.Log(TypeMemory, fmt.Sprintf("High memory usage: %s / %s (%.0f%%)",
			humanize.IBytes(mem.HeapAlloc), humanize.IBytes(mem.Limit), usage*100), "")
	}
	l.mu.Lock()
	if l.monitor == m {
		l.armLocked(m)
	}
	l.mu.Unlock()
}
