package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
)

type ExportCmd struct {
	flags  *Flags
	format string
	output string
}

// NewExportCmd creates a new export command.
func NewExportCmd(flags *Flags) *ExportCmd {
	return &ExportCmd{flags: flags}
}

// Register adds the export command to the application.
func (cmd *ExportCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "export",
		Usage:     "Download a review with its threads",
		UsageText: "mdreview export [--format yaml|json|html|pdf] [-o <path>] <review-id>",
		Description: `Writes the review export to a file. Without --output the server's
suggested filename is used in the current directory; "-o -" writes to stdout.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "export format (yaml, json, html, pdf)",
				Value:       "yaml",
				Destination: &cmd.format,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output path",
				Destination: &cmd.output,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *ExportCmd) run(ctx context.Context, c *cli.Command) error {
	id, err := singleArg(c, "review id")
	if err != nil {
		return err
	}

	data, filename, err := cmd.flags.Client().Export(ctx, id, cmd.format)
	if err != nil {
		return fmt.Errorf("export review: %w", err)
	}

	out := c.Root().Writer
	if cmd.output == "-" {
		_, err := out.Write(data)
		return err
	}

	path := cmd.output
	if path == "" {
		if filename == "" {
			filename = "review." + cmd.format
		}
		path = filepath.Base(filename)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Wrote %s (%d bytes)\n", path, len(data))
	return nil
}
