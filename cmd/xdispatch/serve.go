package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/maruel/subcommands"

	"github.com/benz9527/xdispatch/config"
)

const cmdServeUsage = `serve [-config file]`

var cmdServe = &subcommands.Command{
	UsageLine: cmdServeUsage,
	ShortDesc: "runs the dispatch service.",
	LongDesc:  "Runs the HTTP dispatch service until SIGINT or SIGTERM, then drains both dispatchers.",
	CommandRun: func() subcommands.CommandRun {
		c := &serveRun{}
		c.Flags.StringVar(&c.configFile, "config", "", "YAML config file, the environment overrides it.")
		return c
	},
}

type serveRun struct {
	subcommands.CommandRunBase
	configFile string
}

func (c *serveRun) Run(a subcommands.Application, args []string, _ subcommands.Env) int {
	if len(args) != 0 {
		return usageErr(a, cmdServeUsage, errors.New("unexpected arguments"))
	}
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return printErr(a, err)
	}
	app := newServeApp(cfg, configPath(c.configFile))
	if err = app.Err(); err != nil {
		return printErr(a, err)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()
	if err = app.Start(startCtx); err != nil {
		return printErr(a, err)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err = app.Stop(stopCtx); err != nil {
		return printErr(a, err)
	}
	return 0
}
