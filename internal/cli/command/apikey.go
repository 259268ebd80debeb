package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/claimledger-go/internal/cli/output"
	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// APIKeyCommand returns the apikey subcommand group.
func APIKeyCommand() *cli.Command {
	return &cli.Command{
		Name:    "apikey",
		Aliases: []string{"key"},
		Usage:   "Manage API keys",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List API keys configured on the server (admin key required)",
				Action: apikeyList,
			},
			{
				Name:  "hash",
				Usage: "Generate a secret and its hash for the server's security.api_keys",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "secret",
						Usage: "hash this secret instead of generating one",
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "key id for the config entry",
					},
					&cli.StringFlag{
						Name:  "address",
						Usage: "address the key authenticates as",
					},
					&cli.StringFlag{
						Name:  "role",
						Usage: "key role (issuer, admin)",
						Value: string(domain.RoleIssuer),
					},
				},
				Action: apikeyHash,
			},
		},
	}
}

func apikeyList(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var result struct {
		Keys []apiKeyInfo `json:"keys"`
	}
	if err := client.GetJSON(ctx, "/admin/v1/keys", &result); err != nil {
		return err
	}

	if err := render(c, result.Keys); err != nil {
		return err
	}
	if format, _ := outputFormat(c); format == output.FormatTable {
		fmt.Fprintf(stdout(c), "\nTotal: %d keys\n", len(result.Keys))
	}
	return nil
}

// apiKeyEntry is one security.api_keys item of the server config.
type apiKeyEntry struct {
	ID         string `json:"id"`
	SecretHash string `json:"secret_hash"`
	Address    string `json:"address,omitempty"`
	Role       string `json:"role"`
}

// hashedKey is the output of apikey hash.
type hashedKey struct {
	Secret string      `json:"secret"`
	Entry  apiKeyEntry `json:"entry"`
}

func apikeyHash(c *cli.Context) error {
	role := c.String("role")
	if !domain.IsValidRole(role) {
		return fmt.Errorf("unknown role %q (want issuer or admin)", role)
	}

	var addr string
	if s := c.String("address"); s != "" {
		a, err := domain.ParseAddress(s)
		if err != nil {
			return err
		}
		addr = a.String()
	}

	secret := c.String("secret")
	generated := secret == ""
	if generated {
		s, err := domain.GenerateSecret()
		if err != nil {
			return err
		}
		secret = s
	}

	hash, err := domain.HashSecret(secret)
	if err != nil {
		return err
	}

	out := hashedKey{
		Secret: secret,
		Entry: apiKeyEntry{
			ID:         c.String("id"),
			SecretHash: hash,
			Address:    addr,
			Role:       role,
		},
	}

	format, err := outputFormat(c)
	if err != nil {
		return err
	}
	if format != output.FormatTable {
		return render(c, out)
	}

	w := stdout(c)
	if generated {
		fmt.Fprintf(w, "Secret (shown once, store it now): %s\n\n", out.Secret)
	}
	fmt.Fprintln(w, "Add to security.api_keys in the server config:")
	fmt.Fprintln(w)
	return (&output.YAMLFormatter{}).Format(w, []apiKeyEntry{out.Entry})
}
