package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/provenance-graph/pkg/snapshot"
)

type snapshotStore interface {
	snapshot.Snapshotter
	snapshot.Restorer
}

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Archive the in-memory store in S3",
	}

	archive := func(ctx context.Context) (*snapshot.Archive, snapshotStore, error) {
		if _, err := a.adapter(ctx); err != nil {
			return nil, nil, err
		}
		s, ok := a.store.(snapshotStore)
		if !ok {
			return nil, nil, fmt.Errorf("snapshots need the %q store backend", "memory")
		}
		arc, err := a.newArchive(ctx, a.cfg.Snapshot, a.logger)
		if err != nil {
			return nil, nil, err
		}
		return arc, s, nil
	}

	push := &cobra.Command{
		Use:   "push [name]",
		Short: "Upload a snapshot (named by timestamp when no name is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, s, err := archive(cmd.Context())
			if err != nil {
				return err
			}
			name := time.Now().UTC().Format("20060102T150405Z")
			if len(args) == 1 {
				name = args[0]
			}
			info, err := arc.Push(cmd.Context(), name, s)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), info)
		},
	}

	pull := &cobra.Command{
		Use:   "pull <name>",
		Short: "Replace the store with an archived snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, s, err := archive(cmd.Context())
			if err != nil {
				return err
			}
			return arc.Pull(cmd.Context(), args[0], s)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List archived snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			arc, err := a.newArchive(cmd.Context(), a.cfg.Snapshot, a.logger)
			if err != nil {
				return err
			}
			infos, err := arc.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED")
			for _, i := range infos {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", i.Name, i.Size, i.LastModified.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an archived snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, err := a.newArchive(cmd.Context(), a.cfg.Snapshot, a.logger)
			if err != nil {
				return err
			}
			return arc.Delete(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(push, pull, list, del)
	return cmd
}
