package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/filmjoin/app"
	"github.com/jonwraymond/filmjoin/join"
)

func (c *CLI) newWorksCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "works",
		Short: "Fetch once and print every film with its people",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Observe.Logging.Enabled = false

			ctx := cmd.Context()
			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(ctx) }()

			works, err := a.Catalog.EnrichedWorks(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(works)
			}
			return printTable(out, works)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

// printTable writes works as two aligned columns. Widths are measured in
// terminal cells so CJK titles line up.
func printTable(w io.Writer, works []join.Work) error {
	const titleHeader, peopleHeader = "TITLE", "PEOPLE"

	width := runewidth.StringWidth(titleHeader)
	for _, work := range works {
		if n := runewidth.StringWidth(work.Title); n > width {
			width = n
		}
	}

	if _, err := fmt.Fprintf(w, "%s  %s\n", runewidth.FillRight(titleHeader, width), peopleHeader); err != nil {
		return err
	}
	for _, work := range works {
		people := strings.Join(work.People, ", ")
		if people == "" {
			people = "-"
		}
		if _, err := fmt.Fprintf(w, "%s  %s\n", runewidth.FillRight(work.Title, width), people); err != nil {
			return err
		}
	}
	return nil
}
