package main

import "github.com/urfave/cli/v2"

var (
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   "config.json",
		Usage:   "load configuration from `file`",
	}
	CollectionFlag = &cli.StringFlag{
		Name:     "collection",
		Usage:    "collection short name",
		Required: true,
	}
	OnceFlag = &cli.BoolFlag{
		Name:  "once",
		Usage: "run a single cycle and exit",
	}
)
