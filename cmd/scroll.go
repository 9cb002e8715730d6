package cmd

import (
	"fmt"

	"github.com/urfave/cli"
	cmdCommon "github.com/warpdl/recognition/cmd/common"
)

func scrollCmd(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, err := getClient()
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "scroll", "new_client", err)
		return nil
	}
	defer client.Close()
	rctx, cancel := rpcContext()
	defer cancel()
	res, err := client.Scroll(rctx)
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "scroll", "event", err)
		return nil
	}
	fmt.Fprintf(cmdCommon.Out(ctx), "Scrolling: %t\n", res.Scrolling)
	return nil
}

func queueCmd(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, err := getClient()
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "queue", "new_client", err)
		return nil
	}
	defer client.Close()
	rctx, cancel := rpcContext()
	defer cancel()
	st, err := client.QueueStats(rctx)
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "queue", "stats", err)
		return nil
	}
	w := cmdCommon.Out(ctx)
	fmt.Fprintf(w, "Active:       %d / %d\n", st.Active, st.MaxConcurrent)
	fmt.Fprintf(w, "Pending:      %d\n", st.Pending)
	fmt.Fprintf(w, "Scrolling:    %t\n", st.Scrolling)
	fmt.Fprintf(w, "Admitted:     %d\n", st.Admitted)
	fmt.Fprintf(w, "Completed:    %d\n", st.Completed)
	fmt.Fprintf(w, "Timed out:    %d\n", st.TimedOut)
	fmt.Fprintf(w, "Panicked:     %d\n", st.Panicked)
	fmt.Fprintf(w, "Rejected:     %d\n", st.Rejected)
	fmt.Fprintf(w, "Deduplicated: %d\n", st.Deduplicated)
	return nil
}
