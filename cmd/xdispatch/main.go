package main

import (
	"log"
	"os"

	"github.com/maruel/subcommands"
	"go.uber.org/automaxprocs/maxprocs"
)

var application = &subcommands.DefaultApplication{
	Name:  "xdispatch",
	Title: "Ring buffer and queue message dispatch service.",
	// Keep in alphabetical order of their name.
	Commands: []*subcommands.Command{
		cmdBlast,
		subcommands.CmdHelp,
		cmdSend,
		cmdServe,
	},
}

func main() {
	log.SetFlags(log.Lmicroseconds)
	if _, err := maxprocs.Set(maxprocs.Logger(log.Printf)); err != nil {
		log.Printf("maxprocs: %v", err)
	}
	os.Exit(subcommands.Run(application, nil))
}
