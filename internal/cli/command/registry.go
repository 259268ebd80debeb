package command

import (
	"github.com/urfave/cli/v2"
)

// RegistryCommand returns the registry subcommand group.
func RegistryCommand() *cli.Command {
	return &cli.Command{
		Name:    "registry",
		Aliases: []string{"reg"},
		Usage:   "Registry summary",
		Subcommands: []*cli.Command{
			{
				Name:   "info",
				Usage:  "Show authority, supply and last commit",
				Action: registryInfoAction,
			},
			{
				Name:   "supply",
				Usage:  "Show the number of claims minted",
				Action: registrySupplyAction,
			},
		},
	}
}

func registryInfoAction(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var info registryInfo
	if err := client.GetJSON(ctx, "/v1/registry", &info); err != nil {
		return err
	}
	return render(c, info)
}

func registrySupplyAction(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var supply supplyInfo
	if err := client.GetJSON(ctx, "/v1/supply", &supply); err != nil {
		return err
	}
	return render(c, supply)
}
