package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	cmdCommon "github.com/warpdl/recognition/cmd/common"
	"github.com/warpdl/recognition/common"
	"github.com/warpdl/recognition/internal/gallery"
	"github.com/warpdl/recognition/internal/preload"
	"github.com/warpdl/recognition/pkg/loadqueue"
	"github.com/warpdl/recognition/pkg/logger"
)

var (
	preloadData          string
	preloadPublic        string
	preloadBaseURL       string
	preloadProxy         string
	preloadDaemon        bool
	preloadMaxConcurrent int
	preloadSafety        time.Duration

	preloadFlags = withClientFlags(
		cli.StringFlag{
			Name:        "data, d",
			Usage:       "path of people.json",
			Value:       common.DefaultDataFile,
			EnvVar:      common.DataEnv,
			Destination: &preloadData,
		},
		cli.StringFlag{
			Name:        "public",
			Usage:       "directory image paths are resolved against",
			Value:       common.DefaultPublicDir,
			EnvVar:      common.PublicDirEnv,
			Destination: &preloadPublic,
		},
		cli.StringFlag{
			Name:        "base-url, u",
			Usage:       "fetch images from this site instead of --public",
			Destination: &preloadBaseURL,
		},
		cli.StringFlag{
			Name:        "proxy, x",
			Usage:       "proxy for --base-url requests (http, https or socks5)",
			Destination: &preloadProxy,
		},
		cli.BoolFlag{
			Name:        "daemon",
			Usage:       "ask the daemon to preload through its own queue",
			Destination: &preloadDaemon,
		},
		cli.IntFlag{
			Name:        "max-concurrent, m",
			Usage:       "images fetched at once",
			Value:       DEF_MAX_CONCURRENT,
			Destination: &preloadMaxConcurrent,
		},
		cli.DurationFlag{
			Name:        "safety-timeout",
			Usage:       "release a queue slot after this long even if the fetch hangs",
			Value:       DEF_SAFETY_TIMEOUT,
			Destination: &preloadSafety,
		},
	)
)

func preloadCmd(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	sctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if preloadDaemon {
		return preloadOnDaemon(ctx, sctx)
	}
	return preloadLocal(ctx, sctx)
}

func preloadOnDaemon(ctx *cli.Context, sctx context.Context) error {
	client, err := getClient()
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "preload", "new_client", err)
		return nil
	}
	defer client.Close()
	res, err := client.Preload(sctx, ctx.Args())
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "preload", "run", err)
		return nil
	}
	printPreloadResult(ctx, res.Result, res.Total)
	return nil
}

func preloadLocal(ctx *cli.Context, sctx context.Context) error {
	srcs := uniqueSources(ctx.Args())
	if len(srcs) == 0 {
		store, err := gallery.Load(newFs(), preloadData)
		if err != nil {
			cmdCommon.PrintRuntimeErr(ctx, "preload", "load", err)
			return nil
		}
		srcs = preload.Sources(store.Data())
	}
	if len(srcs) == 0 {
		fmt.Fprintln(cmdCommon.Out(ctx), "recognition: no images to preload")
		return nil
	}

	var fetcher preload.Fetcher = &preload.FileFetcher{Fs: newFs(), Root: preloadPublic}
	if preloadBaseURL != "" {
		hc, err := preload.NewHTTPClient(preloadProxy, DEF_TIMEOUT)
		if err != nil {
			cmdCommon.PrintRuntimeErr(ctx, "preload", "proxy", err)
			return nil
		}
		fetcher = &preload.HTTPFetcher{Client: hc, BaseURL: preloadBaseURL}
	}

	p := mpb.New(mpb.WithOutput(cmdCommon.Out(ctx)), mpb.WithWidth(64))
	l := logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags), common.EnvBool(common.DebugEnv, false))
	q := loadqueue.New(&loadqueue.Opts{
		MaxConcurrent: preloadMaxConcurrent,
		SafetyTimeout: preloadSafety,
		Logger:        l,
	})

	var failed, rejected int64
	bar := cmdCommon.InitPreloadBar(p, "", len(srcs), &failed, &rejected)
	res, err := preload.New(q, fetcher, l).Run(sctx, srcs, func(pr preload.Progress) {
		switch {
		case errors.Is(pr.Err, preload.ErrRejected):
			atomic.AddInt64(&rejected, 1)
		case pr.Err != nil:
			atomic.AddInt64(&failed, 1)
		}
		bar.Increment()
	})
	if err != nil {
		bar.Abort(false)
	}
	p.Wait()
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "preload", "run", err)
		return nil
	}
	printPreloadResult(ctx, res, len(srcs))
	return nil
}

func printPreloadResult(ctx *cli.Context, res preload.Result, total int) {
	fmt.Fprintf(cmdCommon.Out(ctx), "Preloaded %d of %d images (%d failed, %d rejected)\n",
		res.Loaded, total, res.Failed, res.Rejected)
}

// uniqueSources drops repeated arguments so the bar total matches the
// number of fetches.
func uniqueSources(args []string) []string {
	seen := make(map[string]bool, len(args))
	var out []string
	for _, a := range args {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
