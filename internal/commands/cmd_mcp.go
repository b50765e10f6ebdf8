package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"mdreview/api/internal/mcpserver"
)

type MCPCmd struct {
	flags *Flags
}

// NewMCPCmd creates a new mcp command.
func NewMCPCmd(flags *Flags) *MCPCmd {
	return &MCPCmd{flags: flags}
}

// Register adds the mcp command to the application.
func (cmd *MCPCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "mcp",
		Usage: "Serve the review tools to coding agents over MCP stdio",
		Description: `Starts an MCP server on stdin/stdout exposing request_review,
wait_for_review, get_review_status and add_comment.`,
		Action: func(ctx context.Context, _ *cli.Command) error {
			return mcpserver.New(cmd.flags.Client()).Run(ctx)
		},
	})
	return app
}
