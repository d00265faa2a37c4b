package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newInfoCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "info <node-id> [Key=Value ...]",
		Short: "Set and list the information fields of a node",
		Long: "Each Key=Value pair is written to the node before listing; an empty value\n" +
			"removes the field. Keys and enumerated values are checked against the catalog.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ad, err := a.adapter(ctx)
			if err != nil {
				return err
			}

			nodeID := args[0]
			for _, pair := range args[1:] {
				key, value, ok := strings.Cut(pair, "=")
				if !ok || key == "" {
					return fmt.Errorf("expected Key=Value, got %q", pair)
				}
				if res := ad.SetInformation(ctx, nodeID, key, value); !res.OK() {
					return res.Error()
				}
			}

			res := ad.Information(ctx, nodeID)
			if !res.OK() {
				return res.Error()
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res.Items)
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "KEY\tVALUE")
			for _, item := range res.Items {
				fmt.Fprintf(tw, "%s\t%s\n", item.String("key"), item.String("value"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
