package command

import (
	"fmt"
	"net/url"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// HolderCommand returns the holder subcommand group.
func HolderCommand() *cli.Command {
	return &cli.Command{
		Name:  "holder",
		Usage: "Query claims by holder address",
		Subcommands: []*cli.Command{
			{
				Name:      "tokens",
				Usage:     "List the token ids held by an address",
				ArgsUsage: "ADDRESS",
				Action:    holderTokens,
			},
			{
				Name:      "check",
				Usage:     "Report whether an address holds any claim",
				ArgsUsage: "ADDRESS",
				Action:    holderCheck,
			},
		},
	}
}

// addressArg validates the first positional argument as an address.
func addressArg(c *cli.Context) (domain.Address, error) {
	if c.NArg() < 1 {
		return "", fmt.Errorf("address required")
	}
	return domain.ParseAddress(c.Args().First())
}

func holderTokens(c *cli.Context) error {
	addr, err := addressArg(c)
	if err != nil {
		return err
	}
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var held holderClaims
	if err := client.GetJSON(ctx, "/v1/holders/"+url.PathEscape(addr.String())+"/claims", &held); err != nil {
		return err
	}
	return render(c, held)
}

func holderCheck(c *cli.Context) error {
	addr, err := addressArg(c)
	if err != nil {
		return err
	}
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var valid holderValid
	if err := client.GetJSON(ctx, "/v1/holders/"+url.PathEscape(addr.String())+"/valid", &valid); err != nil {
		return err
	}
	return render(c, valid)
}
