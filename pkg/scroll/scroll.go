// Package scroll tracks whether the user is actively scrolling.
//
// Every scroll event marks the page as scrolling and restarts a debounce
// window; when the window elapses without another event the flag clears and
// settle subscribers are notified. Consumers such as the image load queue
// read the flag to defer non-critical work.
package scroll

import (
	"sync"
	"time"

	"github.com/warpdl/recognition/pkg/clock"
)

// DefaultDebounce is the quiet period after the last scroll event before
// the page counts as settled.
const DefaultDebounce = 300 * time.Millisecond

// Opts configures a Manager. Zero values select the defaults.
type Opts struct {
	Debounce time.Duration
	Clock    clock.Clock
}

// Manager holds the process-wide scrolling flag. Create one per
// application root and pass it to consumers.
type Manager struct {
	debounce time.Duration
	clock    clock.Clock

	mu        sync.Mutex
	scrolling bool
	timer     clock.Timer
	gen       uint64
	nextID    uint64
	listeners map[uint64]func()
	order     []uint64
}

// New creates a Manager. opts may be nil.
func New(opts *Opts) *Manager {
	if opts == nil {
		opts = &Opts{}
	}
	m := &Manager{
		debounce:  opts.Debounce,
		clock:     opts.Clock,
		listeners: make(map[uint64]func()),
	}
	if m.debounce <= 0 {
		m.debounce = DefaultDebounce
	}
	if m.clock == nil {
		m.clock = clock.New()
	}
	return m
}

// OnScroll records a scroll event.
func (m *Manager) OnScroll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scrolling = true
	if m.timer != nil {
		m.timer.Stop()
	}
	m.gen++
	gen := m.gen
	m.timer = m.clock.AfterFunc(m.debounce, func() {
		m.settle(gen)
	})
}

func (m *Manager) settle(gen uint64) {
	m.mu.Lock()
	// a newer event re-armed the window after this timer was scheduled
	if gen != m.gen || !m.scrolling {
		m.mu.Unlock()
		return
	}
	m.scrolling = false
	m.timer = nil
	fns := m.snapshotLocked()
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// IsScrolling reports whether a scroll event happened within the debounce
// window.
func (m *Manager) IsScrolling() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scrolling
}

// Subscribe registers fn to run each time scrolling settles.
// The returned function removes fn; calling it again is a no-op.
func (m *Manager) Subscribe(fn func()) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = fn
	m.order = append(m.order, id)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.listeners[id]; !ok {
			return
		}
		delete(m.listeners, id)
		for i, cur := range m.order {
			if cur == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
}

func (m *Manager) snapshotLocked() []func() {
	fns := make([]func(), 0, len(m.order))
	for _, id := range m.order {
		fns = append(fns, m.listeners[id])
	}
	return fns
}

// Reset stops the debounce timer, clears the flag and drops all
// subscribers.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
	m.scrolling = false
	m.listeners = make(map[uint64]func())
	m.order = nil
}
