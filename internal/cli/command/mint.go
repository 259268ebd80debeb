package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/claimledger-go/internal/cli/connection"
	"github.com/yndnr/claimledger-go/internal/cli/output"
	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// pollInterval spaces submission status checks while waiting.
var pollInterval = 500 * time.Millisecond

// MintCommand returns the mint command.
func MintCommand() *cli.Command {
	return &cli.Command{
		Name:  "mint",
		Usage: "Mint a claim to a holder (issuer key required)",
		Description: "Claim data is given verbatim with --claim-data, read from --metadata-file,\n" +
			"or built from --type/--title/--description/--sub-type/--sub-answer/--attr.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "owner",
				Aliases:  []string{"to"},
				Usage:    "holder address",
				EnvVars:  []string{"CLAIMLEDGER_MINT_TO"},
				Required: true,
			},
			&cli.StringFlag{
				Name:  "uri",
				Usage: "metadata URI",
			},
			&cli.StringFlag{
				Name:  "claim-data",
				Usage: "raw claim data, stored verbatim",
			},
			&cli.PathFlag{
				Name:  "metadata-file",
				Usage: "JSON file with claim metadata",
			},
			&cli.StringFlag{Name: "type", Usage: "claim type (e.g. Achievement, KYC)"},
			&cli.StringFlag{Name: "title", Usage: "claim title"},
			&cli.StringFlag{Name: "description", Usage: "claim description"},
			&cli.StringFlag{Name: "sub-type", Usage: "sub-type (e.g. Level, Verified)"},
			&cli.StringFlag{Name: "sub-answer", Usage: "sub-answer (e.g. 18+ done)"},
			&cli.StringFlag{Name: "issuer", Usage: "issuer recorded in the metadata (default: registry authority)"},
			&cli.StringSliceFlag{Name: "attr", Usage: "metadata attribute KEY=VALUE (repeatable)"},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "wait until the mint is committed",
			},
			&cli.DurationFlag{
				Name:  "wait-timeout",
				Usage: "give up waiting after this long; the mint keeps going",
				Value: 2 * time.Minute,
			},
		},
		Action: mintAction,
	}
}

func mintAction(c *cli.Context) error {
	owner, err := domain.ParseAddress(c.String("owner"))
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	req := &mintRequest{
		Owner:       owner.String(),
		MetadataURI: c.String("uri"),
		Wait:        c.Bool("wait"),
	}
	if err := fillClaimData(c, client, req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var sub submission
	status, err := client.PostJSON(ctx, "/v1/claims", req, &sub)
	if err != nil {
		return err
	}

	if req.Wait && status == http.StatusAccepted && !sub.done() {
		waitCtx, cancelWait := context.WithTimeout(contextOf(c), c.Duration("wait-timeout"))
		defer cancelWait()

		sub, err = awaitSubmission(waitCtx, c, client, sub)
		if err != nil {
			return err
		}
	}

	if err := render(c, sub); err != nil {
		return err
	}
	return submissionError(sub)
}

// fillClaimData sets exactly one of ClaimData or Metadata on req.
func fillClaimData(c *cli.Context, client *connection.HTTPClient, req *mintRequest) error {
	raw := c.String("claim-data")
	file := c.Path("metadata-file")
	built := metadataFlagsSet(c)

	sources := 0
	for _, set := range []bool{raw != "", file != "", built} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return fmt.Errorf("use only one of --claim-data, --metadata-file or the metadata flags")
	}

	switch {
	case raw != "":
		req.ClaimData = raw
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read metadata file: %w", err)
		}
		var meta domain.StructuredMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			return fmt.Errorf("parse metadata file %s: %w", file, err)
		}
		req.Metadata = &meta
	case built:
		meta, err := buildMetadata(c, client)
		if err != nil {
			return err
		}
		req.Metadata = meta
	}
	return nil
}

var metadataFlags = []string{"type", "title", "description", "sub-type", "sub-answer", "issuer", "attr"}

func metadataFlagsSet(c *cli.Context) bool {
	for _, name := range metadataFlags {
		if c.IsSet(name) {
			return true
		}
	}
	return false
}

// buildMetadata assembles claim metadata from flags. The issuer defaults
// to the registry authority and the timestamp to the current time.
func buildMetadata(c *cli.Context, client *connection.HTTPClient) (*domain.StructuredMetadata, error) {
	meta := &domain.StructuredMetadata{
		Type:        c.String("type"),
		Title:       c.String("title"),
		Description: c.String("description"),
		SubType:     c.String("sub-type"),
		SubAnswer:   c.String("sub-answer"),
		Issuer:      c.String("issuer"),
		Timestamp:   time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	if meta.Type == "" {
		return nil, fmt.Errorf("--type is required when building metadata")
	}

	attrs, err := parseAttributes(c.StringSlice("attr"))
	if err != nil {
		return nil, err
	}
	meta.Attributes = attrs

	if meta.Issuer == "" {
		ctx, cancel := requestContext(c)
		defer cancel()

		var info registryInfo
		if err := client.GetJSON(ctx, "/v1/registry", &info); err != nil {
			return nil, fmt.Errorf("resolve issuer: %w", err)
		}
		meta.Issuer = info.Authority
	}
	return meta, nil
}

// parseAttributes turns KEY=VALUE pairs into attributes. Values that
// parse as JSON numbers or booleans keep that type.
func parseAttributes(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	attrs := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --attr %q: want KEY=VALUE", pair)
		}
		attrs[key] = attributeValue(value)
	}
	return attrs, nil
}

func attributeValue(s string) any {
	if s == "true" || s == "false" {
		return s == "true"
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// awaitSubmission polls a pending submission until it resolves or ctx ends.
// A spinner runs on stderr for table output.
func awaitSubmission(ctx context.Context, c *cli.Context, client *connection.HTTPClient, sub submission) (submission, error) {
	var spin *output.Spinner
	if format, _ := outputFormat(c); format == output.FormatTable {
		spin = output.NewSpinner(stderr(c), "waiting for submission "+sub.SubmissionID)
		spin.Start()
		defer spin.Stop()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				if spin != nil {
					spin.Stop()
				}
				fmt.Fprintf(stderr(c), "still pending; check later with: submission get %s\n", sub.SubmissionID)
				return sub, nil
			}
			return sub, ctx.Err()
		case <-ticker.C:
		}

		reqCtx, cancel := requestContext(c)
		var next submission
		err := client.GetJSON(reqCtx, "/v1/submissions/"+sub.SubmissionID, &next)
		cancel()
		if err != nil {
			return sub, err
		}
		sub = next
		if sub.done() {
			return sub, nil
		}
	}
}

// submissionError turns a failed submission into a command error.
func submissionError(sub submission) error {
	if sub.Status != statusFailed {
		return nil
	}
	if sub.ErrorCode != "" {
		return fmt.Errorf("submission %s failed: [%s] %s", sub.SubmissionID, sub.ErrorCode, sub.Error)
	}
	return fmt.Errorf("submission %s failed: %s", sub.SubmissionID, sub.Error)
}

func contextOf(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}
