package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"mdreview/api/internal/reviewapi"
)

type RequestCmd struct {
	flags   *Flags
	title   string
	source  string
	agentID string
}

// NewRequestCmd creates a new request command.
func NewRequestCmd(flags *Flags) *RequestCmd {
	return &RequestCmd{flags: flags}
}

// Register adds the request command to the application.
func (cmd *RequestCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "request",
		Usage:     "Create a review from a markdown file",
		UsageText: "mdreview request [--title <title>] <file | ->",
		Description: `Uploads a markdown document and prints the shareable review URL.

Pass "-" to read the document from stdin.

Examples:
  mdreview request plan.md
  mdreview request --title "Migration plan" plan.md
  cat notes.md | mdreview request -`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "title",
				Aliases:     []string{"t"},
				Usage:       "review title",
				Destination: &cmd.title,
			},
			&cli.StringFlag{
				Name:        "source",
				Usage:       "review source (manual or agent)",
				Value:       reviewapi.SourceManual,
				Destination: &cmd.source,
			},
			&cli.StringFlag{
				Name:        "agent-id",
				Usage:       "identifier of the requesting agent",
				Sources:     cli.EnvVars("MDREVIEW_AGENT_ID"),
				Destination: &cmd.agentID,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *RequestCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	path := c.Args().First()

	content, err := readDocument(c.Root().Reader, path)
	if err != nil {
		return err
	}

	req := reviewapi.CreateReviewRequest{Content: content, Source: cmd.source}
	if strings.TrimSpace(cmd.title) != "" {
		req.Title = &cmd.title
	}
	if strings.TrimSpace(cmd.agentID) != "" {
		req.AgentID = &cmd.agentID
	}

	created, err := cmd.flags.Client().CreateReview(ctx, req)
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}

	out := c.Root().Writer
	_, _ = fmt.Fprintf(out, "Review created: %s\n", created.URL)
	_, _ = fmt.Fprintf(out, "ID: %s\n", created.ID)
	_, _ = fmt.Fprintf(out, "Status: %s\n", created.Status)
	return nil
}

func readDocument(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
