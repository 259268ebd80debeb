package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/claimledger-go/internal/cli/output"
	"github.com/yndnr/claimledger-go/internal/infra/buildinfo"
)

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Server operations",
		Subcommands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show server status summary (admin key required)",
				Action: systemStatus,
			},
			{
				Name:   "health",
				Usage:  "Check server health",
				Action: systemHealth,
			},
			{
				Name:  "cluster",
				Usage: "Raft cluster membership (admin key required)",
				Subcommands: []*cli.Command{
					{
						Name:   "status",
						Usage:  "Show cluster members and leader",
						Action: clusterStatusAction,
					},
					{
						Name:  "join",
						Usage: "Add a node to the cluster as a voter",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "node-id", Usage: "raft node id", Required: true},
							&cli.StringFlag{Name: "addr", Usage: "raft address host:port", Required: true},
						},
						Action: clusterJoinAction,
					},
				},
			},
		},
	}
}

func systemStatus(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var summary statusSummary
	if err := client.GetJSON(ctx, "/admin/v1/status/summary", &summary); err != nil {
		return err
	}
	return render(c, summary)
}

func systemHealth(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var result struct {
		Status string `json:"status"`
		Time   string `json:"time"`
	}
	if err := client.GetJSON(ctx, "/health", &result); err != nil {
		return fmt.Errorf("server unhealthy: %w", err)
	}

	if format, _ := outputFormat(c); format != output.FormatTable {
		return render(c, result)
	}
	if result.Status == "healthy" {
		fmt.Fprintf(stdout(c), "✓ Server is healthy\n  Target: %s\n", client.BaseURL())
		return nil
	}
	fmt.Fprintf(stdout(c), "✗ Server is unhealthy: %s\n", result.Status)
	return fmt.Errorf("server unhealthy")
}

func clusterStatusAction(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var st clusterStatus
	if err := client.GetJSON(ctx, "/admin/v1/cluster/status", &st); err != nil {
		return err
	}
	if err := render(c, st); err != nil {
		return err
	}
	if format, _ := outputFormat(c); format == output.FormatTable {
		fmt.Fprintf(stdout(c), "\nnode %s is %s, leader %s (applied %d of %d)\n",
			st.NodeID, st.State, orDash(st.LeaderID), st.AppliedIndex, st.LastIndex)
	}
	return nil
}

func clusterJoinAction(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	body := map[string]string{
		"node_id": c.String("node-id"),
		"addr":    c.String("addr"),
	}
	var result map[string]string
	if _, err := client.PostJSON(ctx, "/admin/v1/cluster/join", body, &result); err != nil {
		return err
	}
	return render(c, result)
}

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show client build information",
		Action: func(c *cli.Context) error {
			return render(c, buildinfo.Get())
		},
	}
}
