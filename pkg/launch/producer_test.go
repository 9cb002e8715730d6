package launch

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/warpdl/recognition/pkg/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 30, 0, time.UTC)

func newTestProducer(t *testing.T, cfg Config) (*Producer, *Store, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(epoch)
	store := NewStore()
	p, err := NewProducer(store, cfg, &ProducerOpts{
		Clock: clk,
		Rand:  rand.New(rand.NewSource(1)),
	})
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	return p, store, clk
}

func TestProducer_InitialDelayThenInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Randomize = false
	p, store, clk := newTestProducer(t, cfg)

	var published []int64
	store.Subscribe(func(ts int64) { published = append(published, ts) })
	p.Start()
	defer p.Stop()

	first := epoch.Add(5 * time.Second).UnixMilli()
	if len(published) != 1 || published[0] != first {
		t.Fatalf("expected first launch at %d, got %v", first, published)
	}

	clk.Advance(5 * time.Second)
	second := epoch.Add(65 * time.Second).UnixMilli()
	if len(published) != 2 || published[1] != second {
		t.Fatalf("expected second launch at %d, got %v", second, published)
	}

	clk.Advance(60 * time.Second)
	if len(published) != 3 {
		t.Fatalf("expected a third launch after the interval, got %v", published)
	}
}

func TestProducer_JitterStaysInBounds(t *testing.T) {
	p, _, _ := newTestProducer(t, DefaultConfig())
	lo := time.Duration(float64(60*time.Second) * 0.75)
	hi := time.Duration(float64(60*time.Second) * 1.25)
	for i := 0; i < 200; i++ {
		d := p.intervalLocked()
		if d < lo || d > hi {
			t.Fatalf("interval %s outside [%s, %s]", d, lo, hi)
		}
	}
}

func TestProducer_OnLaunchAndStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Randomize = false
	clk := clock.NewManual(epoch)
	store := NewStore()
	var launches []int64
	p, err := NewProducer(store, cfg, &ProducerOpts{
		Clock:    clk,
		OnLaunch: func(ts int64) { launches = append(launches, ts) },
	})
	if err != nil {
		t.Fatal(err)
	}
	p.Start()
	clk.Advance(5 * time.Second)
	if len(launches) != 1 || launches[0] != epoch.Add(5*time.Second).UnixMilli() {
		t.Fatalf("unexpected launches: %v", launches)
	}
	p.Stop()
	p.Stop()
	clk.Advance(5 * time.Minute)
	if len(launches) != 1 {
		t.Fatalf("expected no launches after Stop, got %v", launches)
	}
	if clk.Pending() != 0 {
		t.Fatalf("expected no armed timers, got %d", clk.Pending())
	}
}

func TestProducer_Trigger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Randomize = false
	p, store, clk := newTestProducer(t, cfg)
	p.Start()
	defer p.Stop()

	clk.Advance(time.Second)
	p.Trigger()
	ts, _ := store.Next()
	if want := epoch.Add(61 * time.Second).UnixMilli(); ts != want {
		t.Fatalf("expected next launch at %d after trigger, got %d", want, ts)
	}
	if clk.Pending() != 1 {
		t.Fatalf("expected exactly one armed launch timer, got %d", clk.Pending())
	}
}

func TestProducer_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	p, store, clk := newTestProducer(t, cfg)
	p.Start()
	if _, ok := store.Next(); ok {
		t.Fatal("disabled producer published a launch")
	}
	if clk.Pending() != 0 {
		t.Fatal("disabled producer armed a timer")
	}
}

func TestProducer_Cron(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cron = "* * * * *"
	p, store, _ := newTestProducer(t, cfg)
	p.Start()
	defer p.Stop()

	ts, ok := store.Next()
	if !ok {
		t.Fatal("expected a published launch")
	}
	next := time.UnixMilli(ts).UTC()
	if !next.After(epoch) || next.Sub(epoch) > time.Minute {
		t.Fatalf("expected next launch within a minute of %s, got %s", epoch, next)
	}
	if next.Second() != 0 {
		t.Fatalf("expected launch on a minute boundary, got %s", next)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"default", DefaultConfig(), nil},
		{"bad cron", Config{Cron: "every minute"}, ErrInvalidCron},
		{"negative jitter", Config{JitterPercent: -0.1}, ErrInvalidJitter},
		{"full jitter", Config{JitterPercent: 1}, ErrInvalidJitter},
		{"zero interval", Config{BaseInterval: 0}, ErrInvalidInterval},
		{"negative interval", Config{BaseInterval: -time.Second}, ErrInvalidInterval},
		{"negative initial delay", Config{InitialDelay: -time.Second, BaseInterval: time.Minute}, ErrInvalidInterval},
		{"cron ignores interval", Config{Cron: "* * * * *"}, nil},
		{"zero initial delay", Config{BaseInterval: time.Minute}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNewProducer_RejectsZeroInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Randomize = false
	cfg.BaseInterval = 0
	_, err := NewProducer(NewStore(), cfg, &ProducerOpts{Clock: clock.NewManual(epoch)})
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "T - 00:00"},
		{-time.Second, "T - 00:00"},
		{1500 * time.Millisecond, "T - 00:01"},
		{65 * time.Second, "T - 01:05"},
		{10 * time.Minute, "T - 10:00"},
	}
	for _, tt := range tests {
		if got := FormatCountdown(tt.in); got != tt.want {
			t.Errorf("FormatCountdown(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProducer_StaleTimerAfterTrigger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Randomize = false
	clk := clock.NewManual(epoch)
	var launches []int64
	p, err := NewProducer(NewStore(), cfg, &ProducerOpts{
		Clock:    clk,
		OnLaunch: func(ts int64) { launches = append(launches, ts) },
	})
	if err != nil {
		t.Fatal(err)
	}
	p.Start()
	defer p.Stop()

	// a real timer can expire and block on the lock while Trigger runs
	p.mu.Lock()
	stale := p.gen
	p.mu.Unlock()
	p.Trigger()
	p.fire(stale)

	if len(launches) != 1 {
		t.Fatalf("expected a single launch, got %v", launches)
	}

	p.Stop()
	p.mu.Lock()
	stale = p.gen
	p.mu.Unlock()
	p.Start()
	p.fire(stale)
	if len(launches) != 1 {
		t.Fatalf("expected a timer from before Stop to be ignored, got %v", launches)
	}
}
