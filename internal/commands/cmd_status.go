package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"mdreview/api/internal/reviewapi"
)

type StatusCmd struct {
	flags          *Flags
	includeContent bool
}

// NewStatusCmd creates a new status command.
func NewStatusCmd(flags *Flags) *StatusCmd {
	return &StatusCmd{flags: flags}
}

// Register adds the status command to the application.
func (cmd *StatusCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "status",
		Usage:     "Show the current status of a review without waiting",
		UsageText: "mdreview status [--content] <review-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "content",
				Usage:       "print the markdown content after the summary",
				Destination: &cmd.includeContent,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *StatusCmd) run(ctx context.Context, c *cli.Command) error {
	id, err := singleArg(c, "review id")
	if err != nil {
		return err
	}

	review, err := cmd.flags.Client().GetReview(ctx, id)
	if err != nil {
		return fmt.Errorf("get review: %w", err)
	}

	title := "(untitled)"
	if review.Title != nil && *review.Title != "" {
		title = *review.Title
	}

	out := c.Root().Writer
	_, _ = fmt.Fprintf(out, "Review Status: %s\nTitle: %s\nMessage: %s\nURL: %s\n\n%s\n",
		strings.ToUpper(review.Status), title, reviewapi.MessageOrNone(review.DecisionMessage), review.URL,
		reviewapi.Report(reviewapi.Summarize(review.Threads), review.Threads))
	if cmd.includeContent {
		_, _ = fmt.Fprintf(out, "\n---\n%s\n", review.Content)
	}
	return nil
}

func singleArg(c *cli.Command, name string) (string, error) {
	if c.Args().Len() != 1 || strings.TrimSpace(c.Args().First()) == "" {
		return "", fmt.Errorf("expected exactly one argument: %s", name)
	}
	return c.Args().First(), nil
}
