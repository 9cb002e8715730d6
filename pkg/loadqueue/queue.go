// Package loadqueue bounds the number of image loads running at once.
//
// Loads beyond the concurrency limit wait in FIFO order and are admitted as
// slots free up. Every admitted load is guaranteed to give its slot back:
// either the load calls its done callback, it panics, or a safety timer
// fires on its behalf.
package loadqueue

import (
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/warpdl/recognition/pkg/clock"
	"github.com/warpdl/recognition/pkg/logger"
)

const (
	// DefaultMaxConcurrent keeps constrained mobile browsers from decoding
	// too many images at once.
	DefaultMaxConcurrent = 3
	// DefaultSafetyTimeout bounds how long a hung load can hold a slot.
	DefaultSafetyTimeout = 5 * time.Second
)

// LoadFunc starts a load and must eventually call done. Calling done more
// than once has no additional effect.
type LoadFunc func(done func())

// ScrollState reports whether the user is actively scrolling. Enqueue
// refuses new work while it returns true.
type ScrollState interface {
	IsScrolling() bool
}

// Release describes how an admitted load gave its slot back.
type Release int

const (
	// ReleaseDone means the load called done.
	ReleaseDone Release = iota
	// ReleaseTimeout means the safety timer called done.
	ReleaseTimeout
	// ReleasePanic means the load panicked while being started.
	ReleasePanic
	// ReleaseReset means Reset dropped the load while it was active.
	ReleaseReset
)

func (r Release) String() string {
	switch r {
	case ReleaseDone:
		return "done"
	case ReleaseTimeout:
		return "timeout"
	case ReleasePanic:
		return "panic"
	case ReleaseReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Opts configures a Queue. Zero values select the defaults.
type Opts struct {
	MaxConcurrent int
	SafetyTimeout time.Duration
	Clock         clock.Clock
	Scroll        ScrollState
	Logger        logger.Logger
	// OnAdmit is called with the id of every entry moved to the active set,
	// right before its LoadFunc runs.
	OnAdmit func(id string)
	// OnRelease is called after an admitted entry gave its slot back.
	OnRelease func(id string, how Release)
}

// Stats is a point-in-time snapshot of the queue counters.
type Stats struct {
	MaxConcurrent int    `json:"maxConcurrent"`
	Active        int    `json:"active"`
	Pending       int    `json:"pending"`
	Admitted      uint64 `json:"admitted"`
	Completed     uint64 `json:"completed"`
	TimedOut      uint64 `json:"timedOut"`
	Panicked      uint64 `json:"panicked"`
	Rejected      uint64 `json:"rejected"`
	Deduplicated  uint64 `json:"deduplicated"`
}

// entry is a load waiting for a slot.
type entry struct {
	id   string
	load LoadFunc
}

// slot is an admitted load holding one unit of concurrency.
type slot struct {
	id       string
	timer    clock.Timer
	released bool
}

// Queue admits at most MaxConcurrent loads at a time.
// It is safe for concurrent use; LoadFuncs run without the queue lock held,
// so done may be called synchronously or from another goroutine.
type Queue struct {
	maxConcurrent int
	safetyTimeout time.Duration
	clock         clock.Clock
	scroll        ScrollState
	log           logger.Logger
	onAdmit       func(id string)
	onRelease     func(id string, how Release)

	mu       sync.Mutex
	pending  []entry
	queued   map[string]struct{}
	admitted map[string]*slot
	stats    Stats
}

// New creates a Queue. opts may be nil.
func New(opts *Opts) *Queue {
	if opts == nil {
		opts = &Opts{}
	}
	q := &Queue{
		maxConcurrent: opts.MaxConcurrent,
		safetyTimeout: opts.SafetyTimeout,
		clock:         opts.Clock,
		scroll:        opts.Scroll,
		log:           logger.OrNop(opts.Logger),
		onAdmit:       opts.OnAdmit,
		onRelease:     opts.OnRelease,
		queued:        make(map[string]struct{}),
		admitted:      make(map[string]*slot),
	}
	if q.maxConcurrent <= 0 {
		q.maxConcurrent = DefaultMaxConcurrent
	}
	if q.safetyTimeout <= 0 {
		q.safetyTimeout = DefaultSafetyTimeout
	}
	if q.clock == nil {
		q.clock = clock.New()
	}
	return q
}

// Enqueue schedules load under id.
//
// It returns false without queuing while the user is scrolling. An id that
// is already pending or active is not queued again and reports true.
// Otherwise the entry is appended and the queue is drained, which may run
// load before Enqueue returns.
func (q *Queue) Enqueue(id string, load LoadFunc) bool {
	if q.scroll != nil && q.scroll.IsScrolling() {
		q.mu.Lock()
		q.stats.Rejected++
		q.mu.Unlock()
		q.log.Debug("load %q rejected while scrolling", id)
		return false
	}
	if load == nil {
		load = func(done func()) { done() }
	}

	q.mu.Lock()
	if q.hasLocked(id) {
		q.stats.Deduplicated++
		q.mu.Unlock()
		return true
	}
	q.pending = append(q.pending, entry{id: id, load: load})
	q.queued[id] = struct{}{}
	q.mu.Unlock()

	q.drain()
	return true
}

func (q *Queue) hasLocked(id string) bool {
	if _, ok := q.admitted[id]; ok {
		return true
	}
	_, ok := q.queued[id]
	return ok
}

// drain admits pending entries while slots are free.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.admitted) >= q.maxConcurrent || len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending[0] = entry{}
		q.pending = q.pending[1:]
		delete(q.queued, next.id)

		s := &slot{id: next.id}
		q.admitted[next.id] = s
		q.stats.Admitted++
		s.timer = q.clock.AfterFunc(q.safetyTimeout, func() {
			q.release(s, ReleaseTimeout)
		})
		q.mu.Unlock()

		if q.onAdmit != nil {
			q.onAdmit(next.id)
		}
		q.start(s, next.load)
	}
}

// start runs load, converting a panic into a release of its slot.
func (q *Queue) start(s *slot, load LoadFunc) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("load %q panicked: %v\n%s", s.id, r, debug.Stack())
			q.release(s, ReleasePanic)
		}
	}()
	load(func() { q.release(s, ReleaseDone) })
}

// release frees the slot held by s at most once, then drains.
func (q *Queue) release(s *slot, how Release) {
	q.mu.Lock()
	if s.released {
		q.mu.Unlock()
		return
	}
	s.released = true
	if cur, ok := q.admitted[s.id]; !ok || cur != s {
		// slot belongs to a session cleared by Reset
		q.mu.Unlock()
		return
	}
	delete(q.admitted, s.id)
	if how != ReleaseTimeout && s.timer != nil {
		s.timer.Stop()
	}
	switch how {
	case ReleaseDone:
		q.stats.Completed++
	case ReleaseTimeout:
		q.stats.TimedOut++
	case ReleasePanic:
		q.stats.Panicked++
	}
	q.mu.Unlock()

	if how == ReleaseTimeout {
		q.log.Warning("load %q did not finish within %s, releasing slot", s.id, q.safetyTimeout)
	}
	if q.onRelease != nil {
		q.onRelease(s.id, how)
	}
	q.drain()
}

// Reset drops every pending entry, forgets active loads and stops their
// safety timers. done callbacks handed out before Reset become no-ops.
// OnRelease is called with ReleaseReset for each load that was active.
func (q *Queue) Reset() {
	q.mu.Lock()
	dropped := make([]string, 0, len(q.admitted))
	for id, s := range q.admitted {
		s.released = true
		if s.timer != nil {
			s.timer.Stop()
		}
		dropped = append(dropped, id)
	}
	q.pending = nil
	q.queued = make(map[string]struct{})
	q.admitted = make(map[string]*slot)
	q.mu.Unlock()

	if q.onRelease == nil {
		return
	}
	sort.Strings(dropped)
	for _, id := range dropped {
		q.onRelease(id, ReleaseReset)
	}
}

// ActiveCount returns the number of admitted loads.
func (q *Queue) ActiveCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.admitted)
}

// PendingCount returns the number of loads waiting for a slot.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// MaxConcurrent returns the concurrency limit.
func (q *Queue) MaxConcurrent() int {
	return q.maxConcurrent
}

// IsActive reports whether id currently holds a slot.
func (q *Queue) IsActive(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.admitted[id]
	return ok
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	st := q.stats
	st.MaxConcurrent = q.maxConcurrent
	st.Active = len(q.admitted)
	st.Pending = len(q.pending)
	return st
}
