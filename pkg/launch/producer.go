package launch

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/warpdl/recognition/pkg/clock"
	"github.com/warpdl/recognition/pkg/logger"
)

var (
	ErrInvalidCron   = errors.New("invalid launch cron expression")
	ErrCronNeverDue  = errors.New("launch cron expression has no occurrence within a year")
	ErrInvalidJitter = errors.New("launch jitter must be within [0, 1)")
	// ErrInvalidInterval is returned for a negative initial delay, or a
	// non-positive base interval when no cron expression is set.
	ErrInvalidInterval = errors.New("launch interval must be positive")
)

// Config controls launch timing.
type Config struct {
	Enabled bool
	// InitialDelay is the wait before the first launch.
	InitialDelay time.Duration
	// BaseInterval is the wait between launches.
	BaseInterval time.Duration
	// Randomize enables JitterPercent.
	Randomize bool
	// JitterPercent spreads each interval by +/- this fraction of
	// BaseInterval.
	JitterPercent float64
	// Cron, when set, replaces the interval with the ticks of a cron
	// expression.
	Cron string
}

// DefaultConfig returns the stock launch timing: first launch after 5s,
// then every minute +/- 25%.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		InitialDelay:  5 * time.Second,
		BaseInterval:  60 * time.Second,
		Randomize:     true,
		JitterPercent: 0.25,
	}
}

// Validate checks the timing, the jitter bounds and the cron expression.
func (c Config) Validate() error {
	if c.JitterPercent < 0 || c.JitterPercent >= 1 {
		return ErrInvalidJitter
	}
	if c.InitialDelay < 0 {
		return fmt.Errorf("%w: initial delay %s", ErrInvalidInterval, c.InitialDelay)
	}
	if c.Cron == "" {
		if c.BaseInterval <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidInterval, c.BaseInterval)
		}
		return nil
	}
	if !gronx.New().IsValid(c.Cron) {
		return fmt.Errorf("%w: %q", ErrInvalidCron, c.Cron)
	}
	if !hasOccurrenceWithinYear(c.Cron, time.Now()) {
		return fmt.Errorf("%w: %q", ErrCronNeverDue, c.Cron)
	}
	return nil
}

// ProducerOpts holds optional collaborators for a Producer.
type ProducerOpts struct {
	Clock  clock.Clock
	Rand   *rand.Rand
	Logger logger.Logger
	// OnLaunch is called each time a scheduled launch time is reached,
	// before the following launch is published.
	OnLaunch func(ts int64)
}

// Producer decides launch times and publishes them to a Store.
type Producer struct {
	store    *Store
	cfg      Config
	clock    clock.Clock
	log      logger.Logger
	onLaunch func(ts int64)

	mu      sync.Mutex
	rnd     *rand.Rand
	timer   clock.Timer
	gen     uint64
	running bool
}

// NewProducer validates cfg and returns a stopped Producer. opts may be nil.
func NewProducer(store *Store, cfg Config, opts *ProducerOpts) (*Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &ProducerOpts{}
	}
	p := &Producer{
		store:    store,
		cfg:      cfg,
		clock:    opts.Clock,
		log:      logger.OrNop(opts.Logger),
		onLaunch: opts.OnLaunch,
		rnd:      opts.Rand,
	}
	if p.clock == nil {
		p.clock = clock.New()
	}
	if p.rnd == nil {
		p.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return p, nil
}

// Start publishes the first launch time and arms the launch timer.
// It does nothing when the producer is disabled or already running.
func (p *Producer) Start() {
	if !p.cfg.Enabled {
		p.log.Info("Rocket launches disabled")
		return
	}
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	now := p.clock.Now()
	delay := p.cfg.InitialDelay
	if p.cfg.Cron != "" {
		delay = p.cronDelay(now)
	}
	ts := p.armLocked(now, delay)
	p.mu.Unlock()

	p.store.SetNext(ts)
}

// Trigger launches immediately and reschedules the following launch.
func (p *Producer) Trigger() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	launched, ts := p.relaunchLocked()
	p.mu.Unlock()
	p.publish(launched, ts)
}

// Stop cancels the pending launch. It is safe to call more than once.
func (p *Producer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// fire runs when the timer armed as generation gen expires. A timer that
// was stopped after it had already fired is ignored.
func (p *Producer) fire(gen uint64) {
	p.mu.Lock()
	if !p.running || gen != p.gen {
		p.mu.Unlock()
		return
	}
	launched, ts := p.relaunchLocked()
	p.mu.Unlock()
	p.publish(launched, ts)
}

func (p *Producer) relaunchLocked() (launched, next int64) {
	now := p.clock.Now()
	return now.UnixMilli(), p.armLocked(now, p.nextDelayLocked(now))
}

func (p *Producer) publish(launched, next int64) {
	if p.onLaunch != nil {
		p.onLaunch(launched)
	}
	p.log.Debug("Rocket launched, next launch at %d", next)
	p.store.SetNext(next)
}

func (p *Producer) armLocked(now time.Time, delay time.Duration) int64 {
	if delay < 0 {
		delay = 0
	}
	p.gen++
	gen := p.gen
	p.timer = p.clock.AfterFunc(delay, func() { p.fire(gen) })
	return now.Add(delay).UnixMilli()
}

func (p *Producer) nextDelayLocked(now time.Time) time.Duration {
	if p.cfg.Cron != "" {
		return p.cronDelay(now)
	}
	return p.intervalLocked()
}

// intervalLocked returns BaseInterval spread by the configured jitter.
func (p *Producer) intervalLocked() time.Duration {
	base := p.cfg.BaseInterval
	if !p.cfg.Randomize || p.cfg.JitterPercent == 0 {
		return base
	}
	spread := (p.rnd.Float64()*2 - 1) * p.cfg.JitterPercent
	return time.Duration(float64(base) * (1 + spread))
}

func (p *Producer) cronDelay(now time.Time) time.Duration {
	next, err := nextCronOccurrence(p.cfg.Cron, now)
	if err != nil {
		p.log.Warning("Cron %q has no next launch, falling back to interval: %v", p.cfg.Cron, err)
		return p.cfg.BaseInterval
	}
	return next.Sub(now)
}

// nextCronOccurrence returns the next time the cron expression fires strictly
// after start.
func nextCronOccurrence(expr string, start time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, start, false)
}

// hasOccurrenceWithinYear reports whether expr fires within a year of from.
func hasOccurrenceWithinYear(expr string, from time.Time) bool {
	next, err := gronx.NextTickAfter(expr, from, false)
	if err != nil {
		return false
	}
	return next.Before(from.Add(365 * 24 * time.Hour))
}

// FormatCountdown renders the time left before a launch as "T - MM:SS".
// Negative durations render as zero.
func FormatCountdown(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	total := int64(remaining / time.Second)
	return fmt.Sprintf("T - %02d:%02d", total/60, total%60)
}
