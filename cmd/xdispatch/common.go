package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/maruel/subcommands"

	"github.com/benz9527/xdispatch/client"
	"github.com/benz9527/xdispatch/config"
	"github.com/benz9527/xdispatch/dispatch"
	"github.com/benz9527/xdispatch/xlog"
)

const envServiceAddr = "XDISPATCH_ADDR"

// clientFlags are shared by the subcommands talking to a running service.
type clientFlags struct {
	subcommands.CommandRunBase
	addr     string
	routeStr string
	route    dispatch.Route
}

func (c *clientFlags) Init() {
	c.Flags.StringVar(&c.addr, "addr", config.GetEnv(envServiceAddr, "http://localhost:8080"),
		"Dispatch service URL. Set $"+envServiceAddr+" to set a default.")
	c.Flags.StringVar(&c.routeStr, "route", "ring", "Dispatch route, ring or queue.")
}

func (c *clientFlags) Parse() error {
	if strings.TrimSpace(c.addr) == "" {
		return errors.New("must provide -addr")
	}
	route, err := dispatch.ParseRoute(c.routeStr)
	if err != nil {
		return fmt.Errorf("invalid -route %q: %w", c.routeStr, err)
	}
	c.route = route
	return nil
}

func (c *clientFlags) newClient() (*client.Client, error) {
	return client.New(c.addr, client.WithLogger(xlog.NewXLogger(
		xlog.WithXLoggerStdOutWriter(),
		xlog.WithXLoggerEncoder(xlog.PlainText),
		xlog.WithXLoggerLevel(xlog.LogLevelWarn),
	)))
}

func printErr(a subcommands.Application, err error) int {
	fmt.Fprintf(a.GetErr(), "%s: %s\n", a.GetName(), err)
	return 1
}

func usageErr(a subcommands.Application, usage string, err error) int {
	fmt.Fprintf(a.GetErr(), "%s: %s\nusage: %s %s\n", a.GetName(), err, a.GetName(), usage)
	return 1
}
