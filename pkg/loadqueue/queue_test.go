package loadqueue

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/warpdl/recognition/pkg/clock"
	"github.com/warpdl/recognition/pkg/logger"
)

type scrollFlag struct {
	scrolling bool
}

func (s *scrollFlag) IsScrolling() bool { return s.scrolling }

func newTestQueue(t *testing.T, opts *Opts) (*Queue, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(time.Unix(0, 0))
	if opts == nil {
		opts = &Opts{}
	}
	opts.Clock = clk
	return New(opts), clk
}

// hang is a load that never signals completion.
func hang(func()) {}

func TestQueue_Defaults(t *testing.T) {
	q := New(nil)
	if q.MaxConcurrent() != DefaultMaxConcurrent {
		t.Fatalf("expected max %d, got %d", DefaultMaxConcurrent, q.MaxConcurrent())
	}
	if q.safetyTimeout != DefaultSafetyTimeout {
		t.Fatalf("expected safety timeout %s, got %s", DefaultSafetyTimeout, q.safetyTimeout)
	}
}

// Five loads finishing after 100ms with a limit of three: the first batch
// completes at 100ms and admits the remaining two, which complete at 200ms.
func TestQueue_FiveItemsTwoWaves(t *testing.T) {
	q, clk := newTestQueue(t, nil)
	completed := 0
	for i := 0; i < 5; i++ {
		ok := q.Enqueue(fmt.Sprintf("id-%d", i), func(done func()) {
			clk.AfterFunc(100*time.Millisecond, func() {
				completed++
				done()
			})
		})
		if !ok {
			t.Fatalf("enqueue %d rejected", i)
		}
	}
	if q.ActiveCount() != 3 || q.PendingCount() != 2 {
		t.Fatalf("expected 3 active / 2 pending, got %d / %d", q.ActiveCount(), q.PendingCount())
	}

	clk.Advance(100 * time.Millisecond)
	if completed != 3 {
		t.Fatalf("expected 3 completed after 100ms, got %d", completed)
	}
	if q.ActiveCount() != 2 || q.PendingCount() != 0 {
		t.Fatalf("expected 2 active / 0 pending, got %d / %d", q.ActiveCount(), q.PendingCount())
	}

	clk.Advance(100 * time.Millisecond)
	if completed != 5 {
		t.Fatalf("expected 5 completed after 200ms, got %d", completed)
	}
	if q.ActiveCount() != 0 {
		t.Fatalf("expected no active loads, got %d", q.ActiveCount())
	}
	if clk.Pending() != 0 {
		t.Fatalf("expected safety timers to be stopped, %d still armed", clk.Pending())
	}
	st := q.Stats()
	if st.Completed != 5 || st.TimedOut != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestQueue_RejectsWhileScrolling(t *testing.T) {
	scroll := &scrollFlag{scrolling: true}
	q, _ := newTestQueue(t, &Opts{Scroll: scroll})
	ran := 0
	for i := 0; i < 10; i++ {
		if q.Enqueue(fmt.Sprintf("x%d", i), func(done func()) { ran++; done() }) {
			t.Fatalf("enqueue %d accepted while scrolling", i)
		}
	}
	if ran != 0 || q.ActiveCount() != 0 || q.PendingCount() != 0 {
		t.Fatalf("expected nothing admitted, ran=%d active=%d pending=%d", ran, q.ActiveCount(), q.PendingCount())
	}
	if q.Stats().Rejected != 10 {
		t.Fatalf("expected 10 rejections, got %d", q.Stats().Rejected)
	}

	scroll.scrolling = false
	if !q.Enqueue("x0", func(done func()) { ran++; done() }) {
		t.Fatal("expected enqueue to succeed once scrolling stopped")
	}
	if ran != 1 {
		t.Fatalf("expected load to run, ran=%d", ran)
	}
}

func TestQueue_DeduplicatesPendingAndActive(t *testing.T) {
	q, _ := newTestQueue(t, &Opts{MaxConcurrent: 1})
	runs := map[string]int{}
	load := func(id string) LoadFunc {
		return func(func()) { runs[id]++ }
	}

	if !q.Enqueue("active", load("active")) {
		t.Fatal("first enqueue rejected")
	}
	if !q.Enqueue("active", load("active")) {
		t.Fatal("duplicate of active id should report true")
	}
	if !q.Enqueue("waiting", load("waiting")) || !q.Enqueue("waiting", load("waiting")) {
		t.Fatal("duplicate of pending id should report true")
	}
	if runs["active"] != 1 {
		t.Fatalf("expected one run of active, got %d", runs["active"])
	}
	if q.PendingCount() != 1 {
		t.Fatalf("expected one pending entry, got %d", q.PendingCount())
	}
	if q.Stats().Deduplicated != 2 {
		t.Fatalf("expected 2 deduplicated enqueues, got %d", q.Stats().Deduplicated)
	}
}

func TestQueue_SafetyTimeoutReleasesSlot(t *testing.T) {
	q, clk := newTestQueue(t, &Opts{MaxConcurrent: 1})
	var admitted []string
	q.onAdmit = func(id string) { admitted = append(admitted, id) }
	var releases []Release
	q.onRelease = func(_ string, how Release) { releases = append(releases, how) }

	q.Enqueue("hung", hang)
	q.Enqueue("next", hang)

	clk.Advance(4999 * time.Millisecond)
	if !q.IsActive("hung") || q.PendingCount() != 1 {
		t.Fatalf("expected hung to hold the slot before 5s")
	}
	clk.Advance(time.Millisecond)
	if q.IsActive("hung") {
		t.Fatal("expected hung to be released at 5s")
	}
	if !q.IsActive("next") {
		t.Fatal("expected next to be admitted after the timeout")
	}
	if len(admitted) != 2 || admitted[1] != "next" {
		t.Fatalf("unexpected admissions: %v", admitted)
	}
	if len(releases) != 1 || releases[0] != ReleaseTimeout {
		t.Fatalf("expected one timeout release, got %v", releases)
	}
	if q.Stats().TimedOut != 1 {
		t.Fatalf("expected TimedOut=1, got %d", q.Stats().TimedOut)
	}
}

func TestQueue_DoneIsIdempotent(t *testing.T) {
	q, clk := newTestQueue(t, &Opts{MaxConcurrent: 2})
	var saved func()
	q.Enqueue("a", func(done func()) { saved = done })
	q.Enqueue("b", hang)
	q.Enqueue("c", hang)

	saved()
	saved()
	if q.ActiveCount() != 2 {
		t.Fatalf("expected 2 active after repeated done, got %d", q.ActiveCount())
	}
	if q.Stats().Completed != 1 {
		t.Fatalf("expected Completed=1, got %d", q.Stats().Completed)
	}

	// the timer of a finished load must not release anything later
	clk.Advance(DefaultSafetyTimeout)
	if q.Stats().Completed != 1 {
		t.Fatalf("expected Completed to stay 1, got %d", q.Stats().Completed)
	}
	saved()
	if q.ActiveCount() != 0 {
		t.Fatalf("expected b and c to time out, %d still active", q.ActiveCount())
	}
}

func TestQueue_PanicReleasesSlot(t *testing.T) {
	mock := logger.NewMockLogger()
	q, _ := newTestQueue(t, &Opts{MaxConcurrent: 1, Logger: mock})
	ran := false

	q.Enqueue("bad", func(func()) { panic("decode failed") })
	q.Enqueue("good", func(done func()) { ran = true; done() })

	if !ran {
		t.Fatal("expected the next load to run after a panic")
	}
	if q.ActiveCount() != 0 {
		t.Fatalf("expected no leaked slot, got %d active", q.ActiveCount())
	}
	if len(mock.ErrorCalls) != 1 {
		t.Fatalf("expected the panic to be logged once, got %v", mock.ErrorCalls)
	}
	if q.Stats().Panicked != 1 {
		t.Fatalf("expected Panicked=1, got %d", q.Stats().Panicked)
	}
}

func TestQueue_AdmissionIsFIFO(t *testing.T) {
	q, _ := newTestQueue(t, &Opts{MaxConcurrent: 2})
	var order []string
	dones := map[string]func(){}
	q.onAdmit = func(id string) { order = append(order, id) }
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		id := id
		q.Enqueue(id, func(done func()) { dones[id] = done })
	}
	// complete out of order
	dones["b"]()
	dones["a"]()
	dones["d"]()
	want := []string{"a", "b", "c", "d", "e"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Fatalf("expected admission order %v, got %v", want, order)
	}
}

func TestQueue_NilLoadCompletes(t *testing.T) {
	q, _ := newTestQueue(t, nil)
	if !q.Enqueue("empty", nil) {
		t.Fatal("expected nil load to be accepted")
	}
	if q.ActiveCount() != 0 || q.Stats().Completed != 1 {
		t.Fatalf("expected nil load to complete immediately: %+v", q.Stats())
	}
}

func TestQueue_Reset(t *testing.T) {
	releases := map[string]Release{}
	q, clk := newTestQueue(t, &Opts{
		OnRelease: func(id string, how Release) { releases[id] = how },
	})
	var dones []func()
	for i := 0; i < 5; i++ {
		q.Enqueue(fmt.Sprintf("id-%d", i), func(done func()) { dones = append(dones, done) })
	}
	q.Reset()
	if q.ActiveCount() != 0 || q.PendingCount() != 0 {
		t.Fatalf("expected empty queue after reset, got %d / %d", q.ActiveCount(), q.PendingCount())
	}
	if clk.Pending() != 0 {
		t.Fatalf("expected all safety timers stopped, %d armed", clk.Pending())
	}

	// only the three active loads are reported; pending ones never held a slot
	if len(releases) != 3 {
		t.Fatalf("expected 3 reset releases, got %v", releases)
	}
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("id-%d", i)
		if releases[id] != ReleaseReset {
			t.Fatalf("expected %s released by reset, got %v", id, releases)
		}
	}

	// stale callbacks from the previous session are ignored
	for _, d := range dones {
		d()
	}
	if q.Stats().Completed != 0 {
		t.Fatalf("expected stale done to be ignored, got Completed=%d", q.Stats().Completed)
	}
	if len(releases) != 3 {
		t.Fatalf("expected stale done to report nothing, got %v", releases)
	}

	// ids from the previous session can be queued again
	ran := false
	if !q.Enqueue("id-0", func(done func()) { ran = true; done() }) || !ran {
		t.Fatal("expected id-0 to run after reset")
	}
}

func TestQueue_ConcurrentNeverExceedsLimit(t *testing.T) {
	q := New(&Opts{MaxConcurrent: 3})
	var (
		running int32
		peak    int32
		wg      sync.WaitGroup
	)
	const n = 60
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			q.Enqueue(fmt.Sprintf("img-%d", i), func(done func()) {
				cur := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
						break
					}
				}
				go func() {
					time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
					atomic.AddInt32(&running, -1)
					done()
					wg.Done()
				}()
			})
		}(i)
	}
	wg.Wait()
	if peak > 3 {
		t.Fatalf("observed %d concurrent loads, limit is 3", peak)
	}
	if q.ActiveCount() != 0 || q.PendingCount() != 0 {
		t.Fatalf("expected drained queue, got %d / %d", q.ActiveCount(), q.PendingCount())
	}
}
