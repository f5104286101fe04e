package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/maruel/subcommands"
)

const cmdSendUsage = `send [flags] <message>`

var cmdSend = &subcommands.Command{
	UsageLine: cmdSendUsage,
	ShortDesc: "publishes one message and prints the ack.",
	LongDesc:  "Publishes one message to a running dispatch service and prints the ack verbatim.",
	CommandRun: func() subcommands.CommandRun {
		c := &sendRun{}
		c.Init()
		return c
	},
}

type sendRun struct {
	clientFlags
}

func (c *sendRun) Run(a subcommands.Application, args []string, _ subcommands.Env) int {
	if len(args) != 1 {
		return usageErr(a, cmdSendUsage, errors.New("expected exactly one message"))
	}
	if err := c.Parse(); err != nil {
		return usageErr(a, cmdSendUsage, err)
	}
	cli, err := c.newClient()
	if err != nil {
		return printErr(a, err)
	}
	ack, err := cli.Send(context.Background(), c.route, args[0])
	if len(ack) > 0 {
		fmt.Fprintln(a.GetOut(), ack)
	}
	if err != nil {
		return printErr(a, err)
	}
	return 0
}
