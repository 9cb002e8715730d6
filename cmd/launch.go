package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli"
	cmdCommon "github.com/warpdl/recognition/cmd/common"
	"github.com/warpdl/recognition/common"
	"github.com/warpdl/recognition/pkg/launch"
)

var (
	launchWatch bool
	launchSet   string
	launchNow   bool

	launchFlags = withClientFlags(
		cli.BoolFlag{
			Name:        "watch, w",
			Usage:       "follow the schedule and print a countdown",
			Destination: &launchWatch,
		},
		cli.StringFlag{
			Name:        "set, s",
			Usage:       "publish the next launch (RFC 3339 time or Unix milliseconds)",
			Destination: &launchSet,
		},
		cli.BoolFlag{
			Name:        "now, n",
			Usage:       "launch now and let the daemon schedule the next one",
			Destination: &launchNow,
		},
	)
)

// now is the wall clock used for countdowns.
var now = time.Now

func launchCmd(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	if launchSet != "" && launchNow {
		return cmdCommon.PrintErrWithCmdHelp(ctx, fmt.Errorf("--set and --now are mutually exclusive"))
	}
	client, err := getClient()
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "launch", "new_client", err)
		return nil
	}
	defer client.Close()
	w := cmdCommon.Out(ctx)

	var res *common.LaunchResult
	rctx, cancel := rpcContext()
	switch {
	case launchSet != "":
		ts, perr := parseLaunchTime(launchSet)
		if perr != nil {
			cancel()
			return cmdCommon.PrintErrWithCmdHelp(ctx, perr)
		}
		res, err = client.SetLaunch(rctx, ts)
	case launchNow:
		res, err = client.SetLaunch(rctx, 0)
	default:
		res, err = client.NextLaunch(rctx)
	}
	cancel()
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "launch", "get", err)
		return nil
	}
	if !launchWatch {
		if !res.Scheduled {
			fmt.Fprintln(w, "recognition: no launch scheduled")
			return nil
		}
		printLaunch(w, res.Timestamp)
		return nil
	}

	sctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchLaunches(sctx, w, func(ctx context.Context, fn func(int64)) error {
		return client.WatchLaunches(ctx, fn)
	})
}

// watchLaunches prints each launch as it is scheduled. On a terminal the
// countdown to the latest launch is redrawn every second.
func watchLaunches(ctx context.Context, w io.Writer, watch func(context.Context, func(int64)) error) error {
	var (
		mu     sync.Mutex
		next   int64
		latest int64
	)
	onLaunch := func(ts int64) {
		mu.Lock()
		defer mu.Unlock()
		if ts == latest {
			return
		}
		latest = ts
		next = ts
		if isTerminal(w) {
			fmt.Fprint(w, "\n")
		}
		printLaunch(w, ts)
	}

	if isTerminal(w) {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					mu.Lock()
					if next > 0 {
						fmt.Fprintf(w, "\r%s", cmdCommon.Beaut(launch.FormatCountdown(untilMillis(next)), 20))
					}
					mu.Unlock()
				}
			}
		}()
	}
	return watch(ctx, onLaunch)
}

func printLaunch(w io.Writer, ts int64) {
	at := time.UnixMilli(ts)
	fmt.Fprintf(w, "Next launch at %s (%s)\n", at.Format(time.RFC3339), launch.FormatCountdown(untilMillis(ts)))
}

func untilMillis(ts int64) time.Duration {
	return time.UnixMilli(ts).Sub(now())
}

// parseLaunchTime accepts an RFC 3339 time or Unix milliseconds.
func parseLaunchTime(s string) (int64, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms <= 0 {
			return 0, fmt.Errorf("launch time must be positive: %d", ms)
		}
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid launch time %q: want RFC 3339 or Unix milliseconds", s)
	}
	return t.UnixMilli(), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
