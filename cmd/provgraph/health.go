package main

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dd0wney/provenance-graph/pkg/health"
	"github.com/dd0wney/provenance-graph/pkg/provenance"
	"github.com/dd0wney/provenance-graph/pkg/versioning"
)

var errUnhealthy = errors.New("unhealthy")

func memoryUsage() (uint64, uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc, m.Sys
}

func newHealthCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the store, the catalog and the stored graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ad, err := a.adapter(ctx)
			if err != nil {
				return err
			}

			hc := health.NewHealthChecker(a.cfg.Persistence.StoreTimeout)
			if c, ok := a.store.(health.Counter); ok {
				hc.RegisterCheck("store", health.StoreCheck(c))
			}
			hc.RegisterCheck("catalog", health.CatalogCheck(a.catalog))
			hc.RegisterCheck("graph", health.GraphCheck(func(ctx context.Context) (*provenance.Graph, error) {
				g, res := ad.LoadGraph(ctx)
				if !res.OK() {
					return nil, res.Error()
				}
				return g, nil
			}, versioning.NewEngine(a.catalog), a.versionOptions(cmd)...))
			hc.RegisterCheck("memory", health.MemoryCheck(memoryUsage))

			resp := hc.Check(ctx)
			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
					return err
				}
			} else {
				names := make([]string, 0, len(resp.Checks))
				for name := range resp.Checks {
					names = append(names, name)
				}
				sort.Strings(names)

				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "CHECK\tSTATUS\tMESSAGE")
				for _, name := range names {
					c := resp.Checks[name]
					fmt.Fprintf(tw, "%s\t%s\t%s\n", name, c.Status, c.Message)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Status)
			}

			if !resp.Healthy() {
				return errUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full response as JSON")
	addVersionFlags(cmd)
	return cmd
}
