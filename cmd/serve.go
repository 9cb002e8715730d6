package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli"
	"github.com/warpdl/recognition/common"
	"github.com/warpdl/recognition/internal/crashlog"
	"github.com/warpdl/recognition/internal/daemon"
	"github.com/warpdl/recognition/internal/server"
	"github.com/warpdl/recognition/pkg/launch"
	"github.com/warpdl/recognition/pkg/logger"
)

// currentBuild is the build info the daemon reports from system.getVersion.
var currentBuild BuildArgs

var (
	serveData          string
	servePublic        string
	serveOrigins       cli.StringSlice
	serveLaunchCron    string
	serveInitialDelay  time.Duration
	serveInterval      time.Duration
	serveJitter        float64
	serveNoLaunch      bool
	serveMaxConcurrent int
	serveSafety        time.Duration
	serveDebounce      time.Duration
	serveNoCrashLog    bool
	serveDebug         bool

	serveFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "addr",
			Usage:       "listen address",
			Value:       common.DefaultAddr,
			EnvVar:      common.AddrEnv,
			Destination: &daemonAddr,
		},
		cli.StringFlag{
			Name:        "secret",
			Usage:       "RPC secret clients must present",
			EnvVar:      common.RPCSecretEnv,
			Destination: &rpcSecret,
		},
		cli.StringFlag{
			Name:        "data, d",
			Usage:       "path of people.json",
			Value:       common.DefaultDataFile,
			EnvVar:      common.DataEnv,
			Destination: &serveData,
		},
		cli.StringFlag{
			Name:        "public",
			Usage:       "directory image paths are resolved against",
			Value:       common.DefaultPublicDir,
			EnvVar:      common.PublicDirEnv,
			Destination: &servePublic,
		},
		cli.StringSliceFlag{
			Name:  "origin",
			Usage: "host pattern allowed to open the WebSocket from a browser (repeatable)",
			Value: &serveOrigins,
		},
		cli.StringFlag{
			Name:        "launch-cron",
			Usage:       "schedule launches with a cron expression instead of an interval",
			EnvVar:      common.LaunchCronEnv,
			Destination: &serveLaunchCron,
		},
		cli.DurationFlag{
			Name:        "initial-delay",
			Usage:       "wait before the first launch",
			Value:       launch.DefaultConfig().InitialDelay,
			Destination: &serveInitialDelay,
		},
		cli.DurationFlag{
			Name:        "interval",
			Usage:       "base wait between launches",
			Value:       launch.DefaultConfig().BaseInterval,
			Destination: &serveInterval,
		},
		cli.Float64Flag{
			Name:        "jitter",
			Usage:       "spread each interval by +/- this fraction, 0 disables",
			Value:       launch.DefaultConfig().JitterPercent,
			Destination: &serveJitter,
		},
		cli.BoolFlag{
			Name:        "no-launch",
			Usage:       "do not schedule launches",
			Destination: &serveNoLaunch,
		},
		cli.IntFlag{
			Name:        "max-concurrent, m",
			Usage:       "image loads admitted at once",
			Value:       DEF_MAX_CONCURRENT,
			Destination: &serveMaxConcurrent,
		},
		cli.DurationFlag{
			Name:        "safety-timeout",
			Usage:       "release a load slot after this long even if the load never finishes",
			Value:       DEF_SAFETY_TIMEOUT,
			Destination: &serveSafety,
		},
		cli.DurationFlag{
			Name:        "debounce",
			Usage:       "quiet period after the last scroll event",
			Value:       DEF_DEBOUNCE,
			Destination: &serveDebounce,
		},
		cli.BoolFlag{
			Name:        "no-crash-log",
			Usage:       "disable the crash log",
			Destination: &serveNoCrashLog,
		},
		cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging",
			Destination: &serveDebug,
		},
	}
)

// daemonComponents holds what serve creates so it can be torn down in
// reverse order.
type daemonComponents struct {
	Crash  *crashlog.Logger
	Server *server.Server
	log    logger.Logger
	once   sync.Once
}

// Close stops the server and records the shutdown in the crash log. Only
// the first call does anything.
func (c *daemonComponents) Close() {
	c.once.Do(c.close)
}

func (c *daemonComponents) close() {
	if c.Server != nil {
		_ = c.Server.Shutdown()
	}
	if c.Crash != nil {
		c.Crash.Log(crashlog.TypeScroll, "Daemon shutdown", "")
		_ = c.Crash.Close()
	}
	if c.log != nil {
		c.log.Info("Daemon stopped")
	}
}

func launchConfig() (launch.Config, error) {
	cfg := launch.DefaultConfig()
	cfg.Enabled = !serveNoLaunch
	cfg.Cron = serveLaunchCron
	cfg.InitialDelay = serveInitialDelay
	cfg.BaseInterval = serveInterval
	cfg.JitterPercent = serveJitter
	cfg.Randomize = serveJitter > 0
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openCrashLog returns the persistent crash log under the config dir, or a
// disabled one when crash logging is turned off.
func openCrashLog(console logger.Logger) (*crashlog.Logger, error) {
	if serveNoCrashLog || !common.EnvBool(common.CrashLogEnv, true) {
		return crashlog.New(&crashlog.Opts{Disabled: true})
	}
	path, err := crashLogPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("error: cannot create config dir: %w", err)
	}
	store, err := crashlog.OpenSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	cl, err := crashlog.New(&crashlog.Opts{
		Store:   store,
		Agent:   fmt.Sprintf("recognition/%s", currentBuild.Version),
		Console: console,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	return cl, nil
}

func initDaemonComponents(console logger.Logger) (*daemonComponents, error) {
	lc, err := launchConfig()
	if err != nil {
		return nil, err
	}
	crash, err := openCrashLog(console)
	if err != nil {
		return nil, err
	}
	l := logger.NewMultiLogger(console, crash)
	srv, err := server.New(&server.Config{
		Addr:          daemonAddr,
		Secret:        rpcSecret,
		Origins:       serveOrigins.Value(),
		DataFile:      serveData,
		PublicDir:     servePublic,
		Fs:            newFs(),
		Version:       currentBuild.Version,
		Commit:        currentBuild.Commit,
		BuildType:     currentBuild.BuildType,
		Launch:        lc,
		Debounce:      serveDebounce,
		MaxConcurrent: serveMaxConcurrent,
		SafetyTimeout: serveSafety,
		CrashLog:      crash,
	}, l)
	if err != nil {
		crash.Close()
		return nil, err
	}
	crash.StartMemoryMonitor(DEF_MEMORY_CHECK, crashlog.DefaultMemoryThreshold)
	return &daemonComponents{Crash: crash, Server: srv, log: console}, nil
}

func serve(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	debug := serveDebug || common.EnvBool(common.DebugEnv, false)
	console := logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags), debug)

	comps, err := initDaemonComponents(console)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer comps.Close()

	runner := daemon.New(&daemon.Config{
		Addr:            daemonAddr,
		ShutdownTimeout: DEF_SHUTDOWN_TIMEOUT,
	}, &daemon.Dependencies{
		Serve: comps.Server.Serve,
		ShutdownFunc: func() error {
			comps.Close()
			return nil
		},
	})

	sctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runner.Start(sctx)
}
