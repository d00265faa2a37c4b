package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/provenance-graph/pkg/algorithms"
	"github.com/dd0wney/provenance-graph/pkg/constraints"
	"github.com/dd0wney/provenance-graph/pkg/logging"
	"github.com/dd0wney/provenance-graph/pkg/provenance"
	"github.com/dd0wney/provenance-graph/pkg/versioning"
)

type labelRow struct {
	ID           string `json:"id"`
	DefinitionID string `json:"definitionId"`
	StudyID      string `json:"studyId,omitempty"`
	Version      *int   `json:"version,omitempty"`
	Label        string `json:"label"`
}

func (a *app) versionOptions(cmd *cobra.Command) []versioning.Option {
	studyScope, transitive := a.cfg.Versioning.StudyScope, a.cfg.Versioning.Transitive
	if cmd.Flags().Changed("study-scope") {
		studyScope, _ = cmd.Flags().GetBool("study-scope")
	}
	if cmd.Flags().Changed("transitive") {
		transitive, _ = cmd.Flags().GetBool("transitive")
	}

	var opts []versioning.Option
	if studyScope {
		opts = append(opts, versioning.WithStudyScope())
	}
	if transitive {
		opts = append(opts, versioning.WithTransitiveAncestry())
	}
	return opts
}

func addVersionFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("study-scope", false, "number versions separately within each study")
	cmd.Flags().Bool("transitive", true, "count same-definition ancestors reached through other definitions")
}

// labelGraph computes labels and records the run.
func (a *app) labelGraph(cmd *cobra.Command, g *provenance.Graph) (map[string]string, *versioning.Report) {
	start := time.Now()
	labels, report := versioning.NewEngine(a.catalog).Labels(g, a.versionOptions(cmd)...)

	var cyclic []string
	for _, c := range report.Cycles() {
		cyclic = append(cyclic, c.DefinitionID)
	}
	a.metrics.RecordVersionRun(time.Since(start), cyclic, report.Dangling())
	for _, err := range report.Errors {
		fields := []logging.Field{logging.Error(err)}
		var (
			cycle    *versioning.CyclicDependencyError
			dangling *constraints.DanglingDefinitionError
		)
		switch {
		case errors.As(err, &cycle):
			fields = append(fields, logging.DefinitionID(cycle.DefinitionID), logging.StudyID(cycle.StudyID))
		case errors.As(err, &dangling):
			fields = append(fields, logging.NodeID(dangling.NodeID), logging.DefinitionID(dangling.DefinitionID))
		}
		a.logger.Warn("versioning problem", fields...)
	}
	return labels, report
}

// dependencyOrder lists node ids with every ancestor before its dependents.
// Graphs with dependency cycles keep their stored order.
func dependencyOrder(g *provenance.Graph) []string {
	d := algorithms.NewDigraph()
	for _, n := range g.Nodes {
		d.AddVertex(n.ID)
	}
	for _, dep := range g.Dependencies {
		if d.HasVertex(dep.Source) && d.HasVertex(dep.Target) {
			d.AddArc(dep.Target, dep.Source)
		}
	}
	order, err := algorithms.TopologicalSort(d)
	if errors.Is(err, algorithms.ErrNotDAG) {
		return d.Vertices()
	}
	return order
}

func newLabelsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Compute versions and print the label of every node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ad, err := a.adapter(ctx)
			if err != nil {
				return err
			}
			g, res := ad.LoadGraph(ctx)
			if !res.OK() {
				return res.Error()
			}

			labels, report := a.labelGraph(cmd, g)
			rows := make([]labelRow, 0, len(g.Nodes))
			for _, id := range dependencyOrder(g) {
				n, _ := g.NodeByID(id)
				row := labelRow{ID: n.ID, DefinitionID: n.DefinitionID, StudyID: n.StudyID, Label: labels[n.ID]}
				if v, ok := report.Version(n.ID); ok {
					row.Version = &v
				}
				rows = append(rows, row)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, rows)
			}
			tw := newTable(out)
			fmt.Fprintln(tw, "LABEL\tVERSION\tDEFINITION\tID")
			for _, r := range rows {
				version := "-"
				if r.Version != nil {
					version = fmt.Sprint(*r.Version)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Label, version, r.DefinitionID, r.ID)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			for _, c := range report.Cycles() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", c)
			}
			return nil
		},
	}
	addVersionFlags(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
