package command

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// ClaimCommand returns the claim subcommand group.
func ClaimCommand() *cli.Command {
	return &cli.Command{
		Name:  "claim",
		Usage: "Read committed claims",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show a claim with its decoded metadata",
				ArgsUsage: "TOKEN_ID",
				Action:    claimGet,
			},
			{
				Name:      "uri",
				Usage:     "Show the metadata URI of a claim",
				ArgsUsage: "TOKEN_ID",
				Action:    claimURI,
			},
			{
				Name:  "list",
				Usage: "List claims in mint order",
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:  "after",
						Usage: "start after this token id",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "page size (server default when 0)",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "follow pages until the end",
					},
				},
				Action: claimListAction,
			},
		},
	}
}

// tokenIDArg parses the first positional argument as a token id.
func tokenIDArg(c *cli.Context) (domain.TokenID, error) {
	if c.NArg() < 1 {
		return 0, fmt.Errorf("token id required")
	}
	return domain.ParseTokenID(c.Args().First())
}

func claimGet(c *cli.Context) error {
	id, err := tokenIDArg(c)
	if err != nil {
		return err
	}
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var cl claim
	if err := client.GetJSON(ctx, fmt.Sprintf("/v1/claims/%d", id), &cl); err != nil {
		return err
	}
	return render(c, cl)
}

func claimURI(c *cli.Context) error {
	id, err := tokenIDArg(c)
	if err != nil {
		return err
	}
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var uri tokenURI
	if err := client.GetJSON(ctx, fmt.Sprintf("/v1/claims/%d/uri", id), &uri); err != nil {
		return err
	}
	return render(c, uri)
}

func claimListAction(c *cli.Context) error {
	limit := c.Int("limit")
	if limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var all claimList
	after := c.Uint64("after")
	for {
		q := url.Values{}
		q.Set("after", strconv.FormatUint(after, 10))
		if limit > 0 {
			q.Set("limit", strconv.Itoa(limit))
		}

		var page claimList
		if err := client.GetJSON(ctx, "/v1/claims?"+q.Encode(), &page); err != nil {
			return err
		}
		all.Claims = append(all.Claims, page.Claims...)
		all.NextAfter = page.NextAfter

		if !c.Bool("all") || page.NextAfter == 0 {
			break
		}
		after = page.NextAfter
	}

	if err := render(c, all); err != nil {
		return err
	}
	if all.NextAfter != 0 {
		if format, _ := outputFormat(c); format == "table" {
			fmt.Fprintf(stderr(c), "\nmore claims: use --after %d or --all\n", all.NextAfter)
		}
	}
	return nil
}
