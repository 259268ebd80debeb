package command

import (
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/claimledger-go/internal/cli/connection"
	"github.com/yndnr/claimledger-go/internal/cli/output"
	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// VerifyCommand returns the verify command.
func VerifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Verify every claim and, optionally, one holder's claims",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "address",
				Aliases: []string{"a"},
				Usage:   "also report on the claims held by this address",
				EnvVars: []string{"CLAIMLEDGER_MINT_TO"},
			},
		},
		Action: verifyAction,
	}
}

// tokenCheck is the verification of one token.
type tokenCheck struct {
	ID          uint64                     `json:"id"`
	Owner       string                     `json:"owner,omitempty"`
	ClaimData   string                     `json:"claim_data,omitempty"`
	MetadataURI string                     `json:"metadata_uri,omitempty"`
	OwnerValid  bool                       `json:"owner_has_valid_claim"`
	OwnerTokens []uint64                   `json:"owner_tokens,omitempty"`
	Metadata    *domain.StructuredMetadata `json:"metadata,omitempty"`
	Error       string                     `json:"error,omitempty"`
}

// holderReport summarizes one holder.
type holderReport struct {
	Address  string       `json:"address"`
	Valid    bool         `json:"valid"`
	TokenIDs []uint64     `json:"token_ids"`
	Tokens   []tokenCheck `json:"tokens"`
}

// verifyReport is the output of verify.
type verifyReport struct {
	TotalSupply uint64        `json:"total_supply"`
	Tokens      []tokenCheck  `json:"tokens"`
	Holder      *holderReport `json:"holder,omitempty"`
}

func verifyAction(c *cli.Context) error {
	var holder domain.Address
	if s := c.String("address"); s != "" {
		addr, err := domain.ParseAddress(s)
		if err != nil {
			return err
		}
		holder = addr
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	report, err := buildVerifyReport(c, client, holder)
	if err != nil {
		return err
	}

	format, err := outputFormat(c)
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		writeVerifyReport(stdout(c), report)
	} else if err := render(c, report); err != nil {
		return err
	}

	for _, t := range report.Tokens {
		if t.Error != "" {
			return fmt.Errorf("verification failed for one or more tokens")
		}
	}
	return nil
}

// buildVerifyReport checks tokens 1..supply one by one. A failure on one
// token is recorded in its entry and does not stop the rest.
func buildVerifyReport(c *cli.Context, client *connection.HTTPClient, holder domain.Address) (*verifyReport, error) {
	ctx, cancel := requestContext(c)
	defer cancel()

	var supply supplyInfo
	if err := client.GetJSON(ctx, "/v1/supply", &supply); err != nil {
		return nil, err
	}

	report := &verifyReport{
		TotalSupply: supply.TotalSupply,
		Tokens:      make([]tokenCheck, 0, supply.TotalSupply),
	}
	for id := uint64(1); id <= supply.TotalSupply; id++ {
		report.Tokens = append(report.Tokens, checkToken(c, client, id, true))
	}

	if holder != "" {
		hr, err := checkHolder(c, client, holder)
		if err != nil {
			return nil, err
		}
		report.Holder = hr
	}
	return report, nil
}

func checkToken(c *cli.Context, client *connection.HTTPClient, id uint64, withOwner bool) tokenCheck {
	ctx, cancel := requestContext(c)
	defer cancel()

	check := tokenCheck{ID: id}

	var cl claim
	if err := client.GetJSON(ctx, fmt.Sprintf("/v1/claims/%d", id), &cl); err != nil {
		check.Error = err.Error()
		return check
	}
	check.Owner = cl.Owner
	check.ClaimData = cl.ClaimData
	check.MetadataURI = cl.MetadataURI
	check.Metadata = cl.Metadata

	if !withOwner {
		return check
	}

	var valid holderValid
	if err := client.GetJSON(ctx, "/v1/holders/"+cl.Owner+"/valid", &valid); err != nil {
		check.Error = err.Error()
		return check
	}
	check.OwnerValid = valid.Valid

	var held holderClaims
	if err := client.GetJSON(ctx, "/v1/holders/"+cl.Owner+"/claims", &held); err != nil {
		check.Error = err.Error()
		return check
	}
	check.OwnerTokens = held.TokenIDs
	return check
}

func checkHolder(c *cli.Context, client *connection.HTTPClient, addr domain.Address) (*holderReport, error) {
	ctx, cancel := requestContext(c)
	defer cancel()

	var valid holderValid
	if err := client.GetJSON(ctx, "/v1/holders/"+addr.String()+"/valid", &valid); err != nil {
		return nil, err
	}
	var held holderClaims
	if err := client.GetJSON(ctx, "/v1/holders/"+addr.String()+"/claims", &held); err != nil {
		return nil, err
	}

	hr := &holderReport{
		Address:  addr.String(),
		Valid:    valid.Valid,
		TokenIDs: held.TokenIDs,
		Tokens:   make([]tokenCheck, 0, len(held.TokenIDs)),
	}
	for _, id := range held.TokenIDs {
		hr.Tokens = append(hr.Tokens, checkToken(c, client, id, false))
	}
	return hr, nil
}

// claimDataPreview is the length of claim data shown in holder details.
const claimDataPreview = 100

func writeVerifyReport(w io.Writer, r *verifyReport) {
	fmt.Fprintf(w, "Total claims minted: %d\n", r.TotalSupply)
	if r.TotalSupply == 0 {
		fmt.Fprintln(w, "No claims minted yet.")
	}

	for _, t := range r.Tokens {
		fmt.Fprintf(w, "\n--- Token %d ---\n", t.ID)
		if t.Error != "" {
			fmt.Fprintf(w, "  error:        %s\n", t.Error)
			continue
		}
		fmt.Fprintf(w, "  owner:        %s\n", t.Owner)
		fmt.Fprintf(w, "  claim data:   %s\n", t.ClaimData)
		fmt.Fprintf(w, "  metadata uri: %s\n", orDash(t.MetadataURI))
		fmt.Fprintf(w, "  owner valid:  %t\n", t.OwnerValid)
		fmt.Fprintf(w, "  owner tokens: %s\n", joinIDs(t.OwnerTokens))

		if t.Metadata == nil {
			fmt.Fprintf(w, "  raw claim data (not structured)\n")
			continue
		}
		fmt.Fprintln(w, "  parsed claim:")
		for _, kv := range metadataRows(t.Metadata) {
			fmt.Fprintf(w, "    %-12s %s\n", kv[0]+":", kv[1])
		}
	}

	if h := r.Holder; h != nil {
		fmt.Fprintf(w, "\nClaims for %s\n", h.Address)
		fmt.Fprintf(w, "  valid:       %t\n", h.Valid)
		fmt.Fprintf(w, "  token count: %d\n", len(h.TokenIDs))
		fmt.Fprintf(w, "  token ids:   %s\n", joinIDs(h.TokenIDs))
		for _, t := range h.Tokens {
			fmt.Fprintf(w, "  token %d:\n", t.ID)
			if t.Error != "" {
				fmt.Fprintf(w, "    error: %s\n", t.Error)
				continue
			}
			fmt.Fprintf(w, "    uri:  %s\n", orDash(t.MetadataURI))
			fmt.Fprintf(w, "    data: %s\n", preview(t.ClaimData, claimDataPreview))
		}
	}
}

func joinIDs(ids []uint64) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
