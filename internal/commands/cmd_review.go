package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"mdreview/api/internal/tui"
)

type ReviewCmd struct {
	flags  *Flags
	author string
}

// NewReviewCmd creates a new review command.
func NewReviewCmd(flags *Flags) *ReviewCmd {
	return &ReviewCmd{flags: flags}
}

// Register adds the review command to the application.
func (cmd *ReviewCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "review",
		Usage:     "Review a document in the terminal",
		UsageText: "mdreview review [--author <name>] <review-id>",
		Description: `Opens the review TUI. Drag with the mouse across blocks, or press c on
the cursor block, to comment. A, X and R approve, request changes and reject.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "author",
				Usage:       "name shown on your comments",
				Sources:     cli.EnvVars("MDREVIEW_AUTHOR", "USER"),
				Destination: &cmd.author,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *ReviewCmd) run(ctx context.Context, c *cli.Command) error {
	id, err := singleArg(c, "review id")
	if err != nil {
		return err
	}
	return tui.Run(ctx, cmd.flags.Client(), tui.Options{
		ReviewID:   id,
		AuthorName: cmd.author,
	})
}
