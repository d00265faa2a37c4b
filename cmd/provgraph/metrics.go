package main

import (
	"github.com/spf13/cobra"

	"github.com/dd0wney/provenance-graph/pkg/health"
)

func newMetricsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print store metrics in the Prometheus text format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := a.adapter(ctx); err != nil {
				return err
			}
			if c, ok := a.store.(health.Counter); ok {
				nodes, edges, err := c.Counts(ctx)
				if err != nil {
					return err
				}
				a.metrics.UpdateStoreCounts(nodes, edges)
			}
			return a.metrics.WriteText(cmd.OutOrStdout())
		},
	}
}
