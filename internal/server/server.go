// Package server implements the recognition daemon: it owns the gallery
// data, the load queue, the scroll manager and the launch schedule, and
// serves them over JSON-RPC with WebSocket push.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/warpdl/recognition/common"
	"github.com/warpdl/recognition/internal/crashlog"
	"github.com/warpdl/recognition/internal/gallery"
	"github.com/warpdl/recognition/internal/preload"
	"github.com/warpdl/recognition/pkg/clock"
	"github.com/warpdl/recognition/pkg/launch"
	"github.com/warpdl/recognition/pkg/loadqueue"
	"github.com/warpdl/recognition/pkg/logger"
	"github.com/warpdl/recognition/pkg/scroll"
)

const shutdownTimeout = 5 * time.Second

// Config holds the daemon settings.
type Config struct {
	Addr   string
	Secret string // Auth token; empty rejects every RPC request
	// Origins lists host patterns allowed to open the WebSocket from a
	// browser. Same-origin requests are always allowed.
	Origins   []string
	DataFile  string
	PublicDir string
	// Fs holds the data file and public directory. Defaults to the OS.
	Fs afero.Fs

	Version   string
	Commit    string
	BuildType string

	Launch        launch.Config
	Debounce      time.Duration
	MaxConcurrent int
	SafetyTimeout time.Duration

	// CrashLog receives daemon errors. Nil disables the crash log.
	CrashLog *crashlog.Logger
	Clock    clock.Clock
}

// Server is the recognition daemon.
type Server struct {
	cfg      Config
	log      logger.Logger
	rpc      *RPCServer
	notifier *RPCNotifier
	unsub    []func()

	mu       sync.Mutex
	http     *http.Server
	listener net.Listener
	started  bool
	closed   bool
}

// New loads the people data, reads photo sizes and wires the schedulers
// together. It does not start listening.
func New(cfg *Config, l logger.Logger) (*Server, error) {
	c := *cfg
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Addr == "" {
		c.Addr = common.DefaultAddr
	}
	l = logger.OrNop(l)

	store, err := gallery.Load(c.Fs, c.DataFile)
	if err != nil {
		return nil, err
	}
	err = store.WithDimensions(context.Background(), c.Fs, c.PublicDir, func(ph gallery.GroupPhoto, err error) {
		l.Warning("Could not read size of %s: %v", ph.ImagePath, err)
	})
	if err != nil {
		return nil, err
	}
	if rep := gallery.Validate(store.Data()); !rep.OK() {
		for _, is := range rep.Issues {
			l.Warning("people data: %s", is)
		}
	}

	crash := c.CrashLog
	if crash == nil {
		crash, err = crashlog.New(&crashlog.Opts{Disabled: true})
		if err != nil {
			return nil, err
		}
	}

	sm := scroll.New(&scroll.Opts{Debounce: c.Debounce, Clock: c.Clock})
	q := loadqueue.New(&loadqueue.Opts{
		MaxConcurrent: c.MaxConcurrent,
		SafetyTimeout: c.SafetyTimeout,
		Clock:         c.Clock,
		Scroll:        sm,
		Logger:        l,
		OnRelease: func(id string, how loadqueue.Release) {
			if how != loadqueue.ReleaseDone {
				crash.Log(crashlog.TypeImage, fmt.Sprintf("Image load %s: %s", how, id), "")
			}
		},
	})

	launches := launch.NewStore()
	var producer *launch.Producer
	if c.Launch.Enabled {
		producer, err = launch.NewProducer(launches, c.Launch, &launch.ProducerOpts{
			Clock:  c.Clock,
			Logger: l,
		})
		if err != nil {
			return nil, err
		}
	}

	notifier := NewRPCNotifier(l)
	s := &Server{
		cfg:      c,
		log:      l,
		notifier: notifier,
	}
	s.rpc = &RPCServer{
		notifier:  notifier,
		origins:   c.Origins,
		log:       l,
		clock:     c.Clock,
		version:   common.VersionResult{Version: c.Version, Commit: c.Commit, BuildType: c.BuildType},
		gallery:   store,
		scroll:    sm,
		queue:     q,
		launches:  launches,
		producer:  producer,
		crash:     crash,
		preloader: preload.New(q, &preload.FileFetcher{Fs: c.Fs, Root: c.PublicDir}, l),
	}
	s.rpc.register()

	s.unsub = append(s.unsub,
		launches.Subscribe(func(ts int64) {
			notifier.Broadcast(common.NOTIFY_LAUNCH_SCHEDULED, &common.LaunchNotification{Timestamp: ts})
		}),
		sm.Subscribe(func() {
			notifier.Broadcast(common.NOTIFY_SCROLL_SETTLED, &common.ScrollResult{Scrolling: false})
		}),
	)
	return s, nil
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("error listening: %w", err)
	}
	return s.Serve(ctx, l)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		l.Close()
		return errors.New("server already started")
	}
	s.started = true
	s.listener = l
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.ToStdLogger(s.log),
	}
	srv := s.http
	s.mu.Unlock()

	if s.cfg.Secret == "" {
		s.log.Warning("No RPC secret set; RPC endpoints will reject every request")
	}
	s.StartLaunches()
	s.log.Info("Daemon listening on %s", l.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(l)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		s.Shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// StartLaunches publishes the first launch and starts the launch timer.
// Serve calls it; it does nothing when launches are disabled or already
// running.
func (s *Server) StartLaunches() {
	if s.rpc.producer != nil {
		s.rpc.producer.Start()
	}
}

// Addr returns the address the server is listening on, or nil before
// Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops the schedulers, closes WebSocket sessions and stops the
// HTTP server, waiting up to 5 seconds for in-flight requests. It is safe
// to call more than once.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.rpc.producer != nil {
		s.rpc.producer.Stop()
	}
	s.notifier.Close()
	for _, fn := range s.unsub {
		fn()
	}
	s.unsub = nil

	var err error
	if s.http != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err = s.http.Shutdown(shutdownCtx); err != nil {
			s.log.Error("Error shutting down web server: %v", err)
		}
		s.http = nil
	}
	s.rpc.Close()
	s.rpc.queue.Reset()
	s.rpc.scroll.Reset()
	return err
}
