package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"mdreview/api/internal/reviewapi"
)

// ErrStillPending is returned by wait when the timeout elapses without a
// decision.
var ErrStillPending = errors.New("review still pending")

type WaitCmd struct {
	flags   *Flags
	timeout int
}

// NewWaitCmd creates a new wait command.
func NewWaitCmd(flags *Flags) *WaitCmd {
	return &WaitCmd{flags: flags}
}

// Register adds the wait command to the application.
func (cmd *WaitCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "wait",
		Usage:     "Block until a reviewer decides or the timeout passes",
		UsageText: "mdreview wait [--timeout <seconds>] <review-id>",
		Description: `Long-polls the review until it is approved, rejected or has changes
requested. The server caps the wait at 300 seconds.

Exits non-zero when the review is still pending at the timeout.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "timeout",
				Usage:       "maximum seconds to wait (1-300)",
				Value:       300,
				Destination: &cmd.timeout,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *WaitCmd) run(ctx context.Context, c *cli.Command) error {
	id, err := singleArg(c, "review id")
	if err != nil {
		return err
	}
	if cmd.timeout < 1 || cmd.timeout > 300 {
		return fmt.Errorf("timeout must be between 1 and 300 seconds")
	}

	res, err := cmd.flags.Client().WaitForReview(ctx, id, cmd.timeout)
	if err != nil {
		return fmt.Errorf("wait for review: %w", err)
	}

	out := c.Root().Writer
	if res.Pending != nil {
		_, _ = fmt.Fprintf(out, "Review is still pending after %d seconds. Run 'mdreview wait %s' again to continue waiting.\n", cmd.timeout, id)
		return ErrStillPending
	}

	d := res.Decision
	_, _ = fmt.Fprintf(out, "Review completed!\n\nStatus: %s\nMessage: %s\n\n%s\n",
		strings.ToUpper(d.Status), reviewapi.MessageOrNone(d.DecisionMessage), reviewapi.Report(d.Summary, d.Threads))
	return nil
}
