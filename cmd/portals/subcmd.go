package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/xyths/hs"

	"portals-sniper/portals"
)

var (
	modelsCommand = &cli.Command{
		Action: listModels,
		Name:   "models",
		Usage:  "List models of a collection with rarity and floor price",
		Flags: []cli.Flag{
			CollectionFlag,
		},
	}
	snipeCommand = &cli.Command{
		Action: snipe,
		Name:   "snipe",
		Usage:  "Poll configured collections and buy qualifying listings",
		Flags: []cli.Flag{
			OnceFlag,
		},
	}
	walletCommand = &cli.Command{
		Action: wallet,
		Name:   "wallet",
		Usage:  "Show wallet balances",
	}
)

func load(c *cli.Context) (*portals.Sniper, error) {
	configFile := c.String(ConfigFlag.Name)
	cfg := portals.Config{}
	if err := hs.ParseJsonConfig(configFile, &cfg); err != nil {
		return nil, err
	}
	s := portals.New(cfg)
	if err := s.Init(c.Context); err != nil {
		return nil, err
	}
	return s, nil
}

func listModels(c *cli.Context) error {
	s, err := load(c)
	if err != nil {
		return err
	}
	defer s.Close(c.Context)
	models, err := s.Models(c.Context, c.String(CollectionFlag.Name))
	if err != nil {
		return err
	}
	for _, m := range models {
		floor := "-"
		if m.Floor != nil {
			floor = portals.FormatAmount(*m.Floor) + " TON"
		}
		fmt.Printf("%-32s rarity %4d/1000  floor %s\n", m.Name, m.RarityPerMille, floor)
	}
	return nil
}

func snipe(c *cli.Context) error {
	s, err := load(c)
	if err != nil {
		return err
	}
	defer s.Close(c.Context)
	if c.Bool(OnceFlag.Name) {
		return s.RunOnce(c.Context)
	}
	return s.Run(c.Context)
}

func wallet(c *cli.Context) error {
	s, err := load(c)
	if err != nil {
		return err
	}
	defer s.Close(c.Context)
	rows, err := s.Wallet(c.Context)
	if err != nil {
		return err
	}
	for _, r := range rows {
		fmt.Printf("%-8s %s\n", r.Symbol, portals.FormatAmount(r.Balance))
	}
	return nil
}
