package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"mdreview/api/internal/reviewapi"
)

var decisionAliases = map[string]string{
	"approve":           reviewapi.StatusApproved,
	"approved":          reviewapi.StatusApproved,
	"reject":            reviewapi.StatusRejected,
	"rejected":          reviewapi.StatusRejected,
	"changes":           reviewapi.StatusChangesRequested,
	"changes_requested": reviewapi.StatusChangesRequested,
}

type DecideCmd struct {
	flags   *Flags
	message string
}

// NewDecideCmd creates a new decide command.
func NewDecideCmd(flags *Flags) *DecideCmd {
	return &DecideCmd{flags: flags}
}

// Register adds the decide command to the application.
func (cmd *DecideCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "decide",
		Usage:     "Approve, reject or request changes on a review",
		UsageText: "mdreview decide [--message <text>] <review-id> <approve|reject|changes>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "message",
				Aliases:     []string{"m"},
				Usage:       "optional message for the author",
				Destination: &cmd.message,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *DecideCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("expected a review id and a decision")
	}
	id := c.Args().Get(0)
	status, ok := decisionAliases[strings.ToLower(c.Args().Get(1))]
	if !ok {
		return fmt.Errorf("unknown decision %q (want approve, reject or changes)", c.Args().Get(1))
	}

	req := reviewapi.DecisionRequest{Status: status}
	if strings.TrimSpace(cmd.message) != "" {
		req.Message = &cmd.message
	}

	decision, err := cmd.flags.Client().SubmitDecision(ctx, id, req)
	if err != nil {
		return fmt.Errorf("submit decision: %w", err)
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "Review %s: %s\n", decision.ID, strings.ToUpper(decision.Status))
	return nil
}
