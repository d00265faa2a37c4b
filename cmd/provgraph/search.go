package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/provenance-graph/pkg/search"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		fuzzy  bool
		phrase bool
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find nodes by label, definition or information values",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fuzzy && phrase {
				return fmt.Errorf("--fuzzy and --phrase are exclusive")
			}
			ctx := cmd.Context()
			ad, err := a.adapter(ctx)
			if err != nil {
				return err
			}
			g, res := ad.LoadGraph(ctx)
			if !res.OK() {
				return res.Error()
			}

			labels, _ := a.labelGraph(cmd, g)
			idx := search.NewIndex(search.Project(g, labels)...)

			query := strings.Join(args, " ")
			var results []search.Result
			switch {
			case fuzzy:
				results = idx.Fuzzy(query, limit)
			case phrase:
				results = idx.SearchPhrase(query)
			default:
				results = idx.Search(query)
			}
			if !fuzzy && limit > 0 && len(results) > limit {
				results = results[:limit]
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, results)
			}
			tw := newTable(out)
			fmt.Fprintln(tw, "SCORE\tTITLE\tTYPE\tID")
			for _, r := range results {
				fmt.Fprintf(tw, "%.2f\t%s\t%s\t%s\n", r.Score, r.Title, r.Type, r.ID)
			}
			return tw.Flush()
		},
	}
	addVersionFlags(cmd)
	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "match titles and information approximately")
	cmd.Flags().BoolVar(&phrase, "phrase", false, "match the query as an exact phrase")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum results (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
