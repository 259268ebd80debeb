package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/claimledger-go/internal/cli/config"
	"github.com/yndnr/claimledger-go/internal/cli/connection"
	"github.com/yndnr/claimledger-go/internal/cli/output"
	"github.com/yndnr/claimledger-go/internal/infra/buildinfo"
)

const (
	metaConnMgr   = "connMgr"
	metaCLIConfig = "cliConfig"
)

// App creates the CLI application.
func App() *cli.App {
	app := &cli.App{
		Name:                 "claimledger-cli",
		Usage:                "Claim registry command-line client",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			RegistryCommand(),
			MintCommand(),
			ClaimCommand(),
			HolderCommand(),
			VerifyCommand(),
			SubmissionCommand(),
			APIKeyCommand(),
			SystemCommand(),
			ConfigCommand(),
			ShellCommand(),
			VersionCommand(),
		},
		Before: before,
	}

	return app
}

// before loads the CLI config file and prepares the connection manager.
func before(c *cli.Context) error {
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	c.App.Metadata[metaCLIConfig] = cfg
	c.App.Metadata[metaConnMgr] = connection.NewManager()
	return nil
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "server address (default " + config.DefaultServer + ")",
			EnvVars: []string{"CLAIMLEDGER_SERVER"},
		},
		&cli.StringFlag{
			Name:    "api-key-id",
			Aliases: []string{"k"},
			Usage:   "API key ID for authentication",
			EnvVars: []string{"CLAIMLEDGER_API_KEY_ID"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Aliases: []string{"K"},
			Usage:   "API key secret for authentication",
			EnvVars: []string{"CLAIMLEDGER_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "ca-file",
			Usage:   "PEM file with additional trusted CA certificates",
			EnvVars: []string{"CLAIMLEDGER_CA_FILE"},
		},
		&cli.BoolFlag{
			Name:    "insecure",
			Usage:   "skip server certificate verification",
			EnvVars: []string{"CLAIMLEDGER_INSECURE"},
		},
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "connection profile from the CLI config file",
			EnvVars: []string{"CLAIMLEDGER_PROFILE"},
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file",
			EnvVars: []string{"CLAIMLEDGER_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
			EnvVars: []string{"CLAIMLEDGER_OUTPUT"},
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "show wide output (more columns)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "per-request timeout",
			Value: connection.DefaultTimeout,
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "enable verbose output",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	// Server connection
	Server   string
	APIKeyID string
	APIKey   string
	CAFile   string
	Insecure bool
	Profile  string
	Timeout  time.Duration

	// Output format
	Output string
	Wide   bool

	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Server:   c.String("server"),
		APIKeyID: c.String("api-key-id"),
		APIKey:   c.String("api-key"),
		CAFile:   c.String("ca-file"),
		Insecure: c.Bool("insecure"),
		Profile:  c.String("profile"),
		Timeout:  c.Duration("timeout"),
		Output:   c.String("output"),
		Wide:     c.Bool("wide"),
		Verbose:  c.Bool("verbose"),
	}
}

// GetConnectionManager retrieves the connection manager from context.
func GetConnectionManager(c *cli.Context) *connection.Manager {
	if mgr, ok := c.App.Metadata[metaConnMgr].(*connection.Manager); ok {
		return mgr
	}
	return nil
}

// GetCLIConfig retrieves the loaded CLI config, or defaults.
func GetCLIConfig(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[metaCLIConfig].(*config.CLIConfig); ok {
		return cfg
	}
	return config.Default()
}

// ResolveConnection merges the selected profile with flags. A non-empty
// flag value wins over the profile.
func ResolveConnection(c *cli.Context) (*connection.Connection, error) {
	flags := ParseGlobalFlags(c)

	profile, _, err := GetCLIConfig(c).Profile(flags.Profile)
	if err != nil {
		return nil, err
	}

	conn := &connection.Connection{
		Name:     flags.Profile,
		Server:   firstNonEmpty(flags.Server, profile.Server, config.DefaultServer),
		APIKeyID: firstNonEmpty(flags.APIKeyID, profile.APIKeyID),
		APIKey:   firstNonEmpty(flags.APIKey, profile.APIKey),
		CAFile:   firstNonEmpty(flags.CAFile, profile.CAFile),
		Insecure: flags.Insecure || profile.Insecure,
		Timeout:  flags.Timeout,
	}
	return conn, nil
}

// EnsureConnected resolves the connection once per invocation and
// returns its HTTP client.
func EnsureConnected(c *cli.Context) (*connection.HTTPClient, error) {
	mgr := GetConnectionManager(c)
	if mgr == nil {
		return nil, fmt.Errorf("connection manager not initialized")
	}
	if mgr.IsConnected() {
		return mgr.Client(), nil
	}

	conn, err := ResolveConnection(c)
	if err != nil {
		return nil, err
	}
	if err := mgr.Connect(conn); err != nil {
		return nil, fmt.Errorf("connect %s: %w", conn.Server, err)
	}
	return mgr.Client(), nil
}

// requestContext derives a context bounded by the --timeout flag.
func requestContext(c *cli.Context) (context.Context, context.CancelFunc) {
	parent := c.Context
	if parent == nil {
		parent = context.Background()
	}
	timeout := c.Duration("timeout")
	if timeout <= 0 {
		timeout = connection.DefaultTimeout
	}
	return context.WithTimeout(parent, timeout)
}

// outputFormat returns the --output format, falling back to the config default.
func outputFormat(c *cli.Context) (output.Format, error) {
	name := c.String("output")
	if name == "" {
		name = GetCLIConfig(c).DefaultOutput
	}
	return output.ParseFormat(name)
}

// render writes data in the selected output format.
func render(c *cli.Context, data any) error {
	format, err := outputFormat(c)
	if err != nil {
		return err
	}
	return output.NewFormatter(format, c.Bool("wide")).Format(stdout(c), data)
}

func stdout(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func stderr(c *cli.Context) io.Writer {
	if c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
