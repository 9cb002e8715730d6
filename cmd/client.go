package cmd

import (
	"context"
	"time"

	"github.com/urfave/cli"
	"github.com/warpdl/recognition/common"
	"github.com/warpdl/recognition/pkg/gallerycli"
)

var (
	daemonAddr string
	rpcSecret  string
	rpcTimeout time.Duration

	clientFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "addr",
			Usage:       "daemon address",
			Value:       common.DefaultAddr,
			EnvVar:      common.AddrEnv,
			Destination: &daemonAddr,
		},
		cli.StringFlag{
			Name:        "secret",
			Usage:       "RPC secret shared with the daemon",
			EnvVar:      common.RPCSecretEnv,
			Destination: &rpcSecret,
		},
		cli.DurationFlag{
			Name:        "timeout",
			Usage:       "timeout for each RPC call",
			Value:       DEF_TIMEOUT,
			Destination: &rpcTimeout,
		},
	}
)

func getClient() (*gallerycli.Client, error) {
	return gallerycli.NewClient(daemonAddr, rpcSecret)
}

func rpcContext() (context.Context, context.CancelFunc) {
	if rpcTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), rpcTimeout)
}

func withClientFlags(flags ...cli.Flag) []cli.Flag {
	out := make([]cli.Flag, 0, len(flags)+len(clientFlags))
	out = append(out, flags...)
	return append(out, clientFlags...)
}
