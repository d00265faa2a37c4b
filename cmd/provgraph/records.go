package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/provenance-graph/pkg/importer"
)

func newCatalogCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List node definitions and relationship rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, map[string]any{
					"definitions": a.catalog.Definitions(),
					"rules":       a.catalog.Rules(),
				})
			}

			tw := newTable(out)
			fmt.Fprintln(tw, "DEFINITION\tCLASSIFICATION\tLABEL\tINFORMATION")
			for _, d := range a.catalog.Definitions() {
				label := d.LabelFormatString
				if label == "" {
					label = d.Label
				}
				fields := make([]string, len(d.InformationFields))
				for i, f := range d.InformationFields {
					fields[i] = f.Name
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Classification, label, strings.Join(fields, ", "))
			}
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "RULE\tSOURCE\tTARGET\tTYPES\tCARDINALITY")
			for _, r := range a.catalog.Rules() {
				types := make([]string, len(r.Types))
				for i, t := range r.Types {
					types[i] = string(t)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Source, r.Target, strings.Join(types, ", "), r.Cardinality)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "import <export.json>",
		Short: "Import a provenance export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := importer.ReadFile(args[0])
			if err != nil {
				return err
			}
			ad, err := a.adapter(ctx)
			if err != nil {
				return err
			}

			imp := importer.New(ad,
				importer.WithWorkers(a.cfg.Import.Workers),
				importer.WithLogger(a.logger),
				importer.WithMetrics(a.metrics))
			summary, err := imp.Import(ctx, e)
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
			if strict && summary.Failed() {
				return fmt.Errorf("%d items were refused", len(summary.Failures))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any item is refused")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the graph in the export format (stdout when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ad, err := a.adapter(ctx)
			if err != nil {
				return err
			}
			g, res := ad.LoadGraph(ctx)
			if !res.OK() {
				return res.Error()
			}

			e := importer.FromGraph(g)
			if len(args) == 0 {
				return e.Encode(cmd.OutOrStdout())
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := e.Encode(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every node and edge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the graph without --yes")
			}
			ad, err := a.adapter(cmd.Context())
			if err != nil {
				return err
			}
			res := ad.Clear(cmd.Context())
			if !res.OK() {
				return res.Error()
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
