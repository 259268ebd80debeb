package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/claimledger-go/internal/cli/config"
	"github.com/yndnr/claimledger-go/internal/cli/output"
	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage saved connection profiles",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "List profiles (secrets masked)",
				Action: configShow,
			},
			{
				Name:      "use",
				Usage:     "Make a profile current",
				ArgsUsage: "PROFILE",
				Action:    configUse,
			},
			{
				Name:      "set",
				Usage:     "Create or update a profile from the connection flags",
				ArgsUsage: "PROFILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "current",
						Usage: "also make the profile current",
					},
				},
				Action: configSet,
			},
			{
				Name:      "delete",
				Usage:     "Remove a profile",
				ArgsUsage: "PROFILE",
				Action:    configDelete,
			},
		},
	}
}

// profileView is a display-safe profile.
type profileView struct {
	Name     string `json:"name"`
	Current  bool   `json:"current"`
	Server   string `json:"server"`
	APIKeyID string `json:"api_key_id,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
	CAFile   string `json:"ca_file,omitempty" table:"wide"`
	Insecure bool   `json:"insecure,omitempty" table:"wide"`
}

func configShow(c *cli.Context) error {
	cfg := GetCLIConfig(c)

	views := make([]profileView, 0, len(cfg.Profiles))
	for _, name := range cfg.ProfileNames() {
		p := cfg.Profiles[name]
		v := profileView{
			Name:     name,
			Current:  name == cfg.CurrentProfile,
			Server:   p.Server,
			APIKeyID: p.APIKeyID,
			CAFile:   p.CAFile,
			Insecure: p.Insecure,
		}
		if p.APIKey != "" {
			v.APIKey = domain.MaskSecret(p.APIKey)
		}
		views = append(views, v)
	}

	if len(views) == 0 {
		if format, _ := outputFormat(c); format == output.FormatTable {
			fmt.Fprintf(stdout(c), "No profiles in %s\n", c.String("config"))
			return nil
		}
	}
	return render(c, views)
}

func configUse(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("profile name required")
	}

	cfg := GetCLIConfig(c)
	if _, ok := cfg.Profiles[name]; !ok {
		return fmt.Errorf("profile %q not found", name)
	}
	cfg.CurrentProfile = name
	if err := config.Save(cfg, c.String("config")); err != nil {
		return err
	}
	fmt.Fprintf(stdout(c), "Switched to profile %s\n", name)
	return nil
}

// configSet stores the global connection flags under a profile name.
// Flags left unset keep the profile's existing values.
func configSet(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("profile name required")
	}

	cfg := GetCLIConfig(c)
	flags := ParseGlobalFlags(c)
	p := cfg.Profiles[name]

	p.Server = firstNonEmpty(flags.Server, p.Server, config.DefaultServer)
	p.APIKeyID = firstNonEmpty(flags.APIKeyID, p.APIKeyID)
	p.APIKey = firstNonEmpty(flags.APIKey, p.APIKey)
	p.CAFile = firstNonEmpty(flags.CAFile, p.CAFile)
	if c.IsSet("insecure") {
		p.Insecure = flags.Insecure
	}
	cfg.Profiles[name] = p

	if c.Bool("current") || cfg.CurrentProfile == "" {
		cfg.CurrentProfile = name
	}
	if err := config.Save(cfg, c.String("config")); err != nil {
		return err
	}
	fmt.Fprintf(stdout(c), "Saved profile %s (%s)\n", name, p.Server)
	return nil
}

func configDelete(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("profile name required")
	}

	cfg := GetCLIConfig(c)
	if _, ok := cfg.Profiles[name]; !ok {
		return fmt.Errorf("profile %q not found", name)
	}
	delete(cfg.Profiles, name)
	if cfg.CurrentProfile == name {
		cfg.CurrentProfile = ""
	}
	if err := config.Save(cfg, c.String("config")); err != nil {
		return err
	}
	fmt.Fprintf(stdout(c), "Deleted profile %s\n", name)
	return nil
}
