package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli"
	cmdCommon "github.com/warpdl/recognition/cmd/common"
	"github.com/warpdl/recognition/common"
	"github.com/warpdl/recognition/internal/crashlog"
)

const crashLogFile = "crashlog.db"

var (
	crashLogClear  bool
	crashLogExport bool
	crashLogLocal  bool

	crashLogFlags = withClientFlags(
		cli.BoolFlag{
			Name:        "clear",
			Usage:       "delete every entry",
			Destination: &crashLogClear,
		},
		cli.BoolFlag{
			Name:        "export, e",
			Usage:       "print the entries as JSON",
			Destination: &crashLogExport,
		},
		cli.BoolFlag{
			Name:        "local",
			Usage:       "read the crash log database directly instead of asking the daemon",
			Destination: &crashLogLocal,
		},
	)
)

func crashLogPath() (string, error) {
	dir, err := common.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, crashLogFile), nil
}

func crashLogCmd(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	var entries []crashlog.Entry
	if crashLogLocal {
		path, err := crashLogPath()
		if err != nil {
			cmdCommon.PrintRuntimeErr(ctx, "crashlog", "config_dir", err)
			return nil
		}
		store, err := crashlog.OpenSQLiteStore(path)
		if err != nil {
			cmdCommon.PrintRuntimeErr(ctx, "crashlog", "open", err)
			return nil
		}
		cl, err := crashlog.New(&crashlog.Opts{Store: store})
		if err != nil {
			store.Close()
			cmdCommon.PrintRuntimeErr(ctx, "crashlog", "load", err)
			return nil
		}
		defer cl.Close()
		if crashLogClear {
			cl.Clear()
			fmt.Fprintln(cmdCommon.Out(ctx), "Crash log cleared")
			return nil
		}
		entries = cl.Entries()
	} else {
		client, err := getClient()
		if err != nil {
			cmdCommon.PrintRuntimeErr(ctx, "crashlog", "new_client", err)
			return nil
		}
		defer client.Close()
		rctx, cancel := rpcContext()
		defer cancel()
		if crashLogClear {
			if err := client.ClearCrashLogs(rctx); err != nil {
				cmdCommon.PrintRuntimeErr(ctx, "crashlog", "clear", err)
				return nil
			}
			fmt.Fprintln(cmdCommon.Out(ctx), "Crash log cleared")
			return nil
		}
		res, err := client.CrashLogs(rctx)
		if err != nil {
			cmdCommon.PrintRuntimeErr(ctx, "crashlog", "list", err)
			return nil
		}
		if !res.Enabled {
			fmt.Fprintln(cmdCommon.Out(ctx), "recognition: crash log is disabled on the daemon")
			return nil
		}
		entries = res.Entries
	}

	w := cmdCommon.Out(ctx)
	if crashLogExport {
		if entries == nil {
			entries = []crashlog.Entry{}
		}
		b, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
		return nil
	}
	printCrashLog(w, entries)
	return nil
}

func printCrashLog(w io.Writer, entries []crashlog.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "recognition: crash log is empty")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s [%s] %s", e.Timestamp.Format(time.RFC3339), e.Type, e.Message)
		if e.Memory != nil && e.Memory.HeapAlloc > 0 {
			fmt.Fprintf(w, " (heap %s)", humanize.IBytes(e.Memory.HeapAlloc))
		}
		fmt.Fprintln(w)
		if e.Stack != "" {
			fmt.Fprintf(w, "    %s\n", e.Stack)
		}
	}
}
