package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/maruel/subcommands"
)

const cmdBlastUsage = `blast [flags]`

var cmdBlast = &subcommands.Command{
	UsageLine: cmdBlastUsage,
	ShortDesc: "generates load against a dispatch service.",
	LongDesc:  "Sends Message-0 to Message-<n-1> concurrently and reports the acks and the throughput.",
	CommandRun: func() subcommands.CommandRun {
		c := &blastRun{}
		c.Init()
		c.Flags.IntVar(&c.n, "n", 1000, "Number of messages.")
		c.Flags.IntVar(&c.concurrency, "c", 100, "Number of concurrent senders.")
		return c
	},
}

type blastRun struct {
	clientFlags
	n           int
	concurrency int
}

func (c *blastRun) Parse() error {
	if err := c.clientFlags.Parse(); err != nil {
		return err
	}
	if c.n <= 0 {
		return errors.New("-n must be positive")
	}
	if c.concurrency <= 0 {
		return errors.New("-c must be positive")
	}
	return nil
}

func (c *blastRun) Run(a subcommands.Application, args []string, _ subcommands.Env) int {
	if len(args) != 0 {
		return usageErr(a, cmdBlastUsage, errors.New("unexpected arguments"))
	}
	if err := c.Parse(); err != nil {
		return usageErr(a, cmdBlastUsage, err)
	}
	cli, err := c.newClient()
	if err != nil {
		return printErr(a, err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := cli.Blast(ctx, c.route, c.n, c.concurrency)
	if report != nil {
		fmt.Fprintf(a.GetOut(), "route=%s sent=%d acked=%d failed=%d elapsed=%s throughput=%.1f msg/s\n",
			report.Route, report.Sent, report.Acked, report.Failed, report.Elapsed, report.Throughput())
		if report.FirstError != nil {
			fmt.Fprintf(a.GetOut(), "first error: %s\n", report.FirstError)
		}
	}
	if err != nil {
		return printErr(a, err)
	}
	return 0
}
