package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"mdreview/api/internal/reviewapi"
)

type ThreadCmd struct {
	flags      *Flags
	authorType string
	authorName string
	reopen     bool
}

// NewThreadCmd creates the reply and resolve commands.
func NewThreadCmd(flags *Flags) *ThreadCmd {
	return &ThreadCmd{flags: flags}
}

// Register adds the reply and resolve commands to the application.
func (cmd *ThreadCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "reply",
			Usage:     "Reply to a comment thread",
			UsageText: "mdreview reply [--as agent|human] [--name <name>] <thread-id> <body>",
			Description: `Adds a comment to an existing thread. Agent replies reopen a review
that already has a decision.`,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:        "as",
					Usage:       "author type (agent or human)",
					Value:       reviewapi.AuthorAgent,
					Destination: &cmd.authorType,
				},
				&cli.StringFlag{
					Name:        "name",
					Usage:       "author display name",
					Value:       "AI Agent",
					Destination: &cmd.authorName,
				},
			},
			Action: cmd.runReply,
		},
		&cli.Command{
			Name:      "resolve",
			Usage:     "Mark a thread resolved",
			UsageText: "mdreview resolve [--reopen] <thread-id>",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:        "reopen",
					Usage:       "mark the thread unresolved instead",
					Destination: &cmd.reopen,
				},
			},
			Action: cmd.runResolve,
		},
	)
	return app
}

func (cmd *ThreadCmd) runReply(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() < 2 {
		return fmt.Errorf("expected a thread id and a comment body")
	}
	threadID := c.Args().Get(0)
	body := strings.Join(c.Args().Slice()[1:], " ")

	req := reviewapi.ReplyRequest{Body: body, AuthorType: cmd.authorType}
	if strings.TrimSpace(cmd.authorName) != "" {
		req.AuthorName = &cmd.authorName
	}

	comment, err := cmd.flags.Client().AddReply(ctx, threadID, req)
	if err != nil {
		return fmt.Errorf("add reply: %w", err)
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "Comment added successfully!\n\nThread: %s\nComment: %s\n", threadID, comment.Body)
	return nil
}

func (cmd *ThreadCmd) runResolve(ctx context.Context, c *cli.Command) error {
	threadID, err := singleArg(c, "thread id")
	if err != nil {
		return err
	}

	res, err := cmd.flags.Client().ResolveThread(ctx, threadID, !cmd.reopen)
	if err != nil {
		return fmt.Errorf("resolve thread: %w", err)
	}
	state := "unresolved"
	if res.Resolved {
		state = "resolved"
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "Thread %s %s\n", res.ID, state)
	return nil
}
