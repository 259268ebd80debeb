package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

// SubmissionCommand returns the submission subcommand group.
func SubmissionCommand() *cli.Command {
	return &cli.Command{
		Name:    "submission",
		Aliases: []string{"sub"},
		Usage:   "Inspect pending submissions",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show the status of a submission",
				ArgsUsage: "SUBMISSION_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "wait until the submission resolves",
					},
					&cli.DurationFlag{
						Name:  "wait-timeout",
						Usage: "give up waiting after this long",
						Value: 2 * time.Minute,
					},
				},
				Action: submissionGet,
			},
		},
	}
}

func submissionGet(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("submission id required")
	}
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var sub submission
	if err := client.GetJSON(ctx, "/v1/submissions/"+id, &sub); err != nil {
		return err
	}

	if c.Bool("wait") && !sub.done() {
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
