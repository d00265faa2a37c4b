package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dd0wney/provenance-graph/pkg/constraints"
	"github.com/dd0wney/provenance-graph/pkg/logging"
)

func newAuditCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		strict bool
		only   []string
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check the stored graph against the schemas and relationship rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			types := make([]constraints.ViolationType, 0, len(only))
			for _, name := range only {
				vt, err := constraints.ParseViolationType(name)
				if err != nil {
					return err
				}
				types = append(types, vt)
			}

			ctx := cmd.Context()
			ad, err := a.adapter(ctx)
			if err != nil {
				return err
			}

			timer := logging.StartTimer(a.logger, "audit")
			result, err := constraints.NewAuditValidator(a.catalog).Validate(ctx, ad.Store())
			if err != nil {
				timer.EndError(err)
				return err
			}
			timer.End(logging.Count(len(result.Violations)))

			counts := make(map[[2]string]int)
			for _, v := range result.Violations {
				counts[[2]string{v.Type.String(), v.Severity.String()}]++
			}
			a.metrics.RecordAudit(counts)

			if len(types) > 0 {
				kept := make([]constraints.Violation, 0, len(result.Violations))
				for _, vt := range types {
					kept = append(kept, result.GetViolationsByType(vt)...)
				}
				result.Violations = kept
				result.Valid = len(kept) == 0
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, result); err != nil {
					return err
				}
			} else {
				tw := newTable(out)
				fmt.Fprintln(tw, "SEVERITY\tTYPE\tNODE\tEDGE\tMESSAGE")
				for _, v := range result.Violations {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.Severity, v.Type, v.NodeID, v.EdgeID, v.Message)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(out, "%d violations\n", len(result.Violations))
			}

			if strict && len(result.GetViolationsBySeverity(constraints.Error)) > 0 {
				return fmt.Errorf("audit failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when an error-severity violation is found")
	cmd.Flags().StringSliceVar(&only, "type", nil, "only report these violation types, e.g. CyclicDependency")
	return cmd
}
