package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mailcouncil/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:    "mailcouncil",
		Usage:   "Agentic team debates over triaged emails and ad-hoc queries",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "",
			},
		},
		Commands: []*cli.Command{
			cmd.ServeCommand(),
			cmd.DebateCommand(),
			cmd.TeamsCommand(),
			cmd.AuthCommand(),
			cmd.ConfigCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
