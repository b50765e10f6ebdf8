package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
)

type SearchCmd struct {
	flags      *Flags
	resultType string
	limit      int
}

// NewSearchCmd creates a new search command.
func NewSearchCmd(flags *Flags) *SearchCmd {
	return &SearchCmd{flags: flags}
}

// Register adds the search command to the application.
func (cmd *SearchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "search",
		Usage:     "Search reviews and comment threads",
		UsageText: "mdreview search [--type review|thread] [--limit N] <query>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "type",
				Usage:       "restrict results to review or thread",
				Destination: &cmd.resultType,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "maximum results",
				Value:       20,
				Destination: &cmd.limit,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *SearchCmd) run(ctx context.Context, c *cli.Command) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("expected a search query")
	}

	resp, err := cmd.flags.Client().Search(ctx, query, cmd.resultType, cmd.limit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out := c.Root().Writer
	if len(resp.Results) == 0 {
		_, _ = fmt.Fprintf(out, "No results for %q\n", query)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TYPE\tID\tSTATUS\tTITLE")
	for _, r := range resp.Results {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Type, r.ID, r.Status, r.Title)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "\n%d of %d results\n", len(resp.Results), resp.Total)
	return nil
}
