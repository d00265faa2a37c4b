package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dd0wney/provenance-graph/pkg/catalog"
	"github.com/dd0wney/provenance-graph/pkg/config"
	"github.com/dd0wney/provenance-graph/pkg/logging"
	"github.com/dd0wney/provenance-graph/pkg/metrics"
	"github.com/dd0wney/provenance-graph/pkg/persistence"
	"github.com/dd0wney/provenance-graph/pkg/pgstore"
	"github.com/dd0wney/provenance-graph/pkg/snapshot"
	"github.com/dd0wney/provenance-graph/pkg/storage"
)

// app holds what the commands share. The store is opened on first use.
type app struct {
	cfgFile string

	cfg     *config.Config
	logger  logging.Logger
	metrics *metrics.Registry
	catalog *catalog.Catalog

	store   persistence.GraphStore
	closeFn func() error

	// newArchive is replaced in tests.
	newArchive func(ctx context.Context, cfg snapshot.Config, logger logging.Logger) (*snapshot.Archive, error)
}

func newRootCmd() *cobra.Command {
	return newRootCmdFor(&app{newArchive: snapshot.Connect})
}

func newRootCmdFor(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:               "provgraph",
		Short:             "Manage a provenance graph of simulation and data artefacts",
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.init(cmd) },
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.shutdown()
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "YAML config file")

	root.AddCommand(
		newCatalogCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newClearCmd(a),
		newLabelsCmd(a),
		newAuditCmd(a),
		newSearchCmd(a),
		newSnapshotCmd(a),
		newMetricsCmd(a),
		newInfoCmd(a),
		newHealthCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = logging.NewJSONLogger(cmd.ErrOrStderr(), logging.ParseLevel(cfg.Log.Level))
	logging.SetDefaultLogger(a.logger)
	a.metrics = metrics.NewRegistry()

	a.catalog, err = loadCatalog(cfg.Catalog)
	return err
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return catalog.Load(f)
}

// adapter opens the configured store and wraps it in a persistence adapter.
func (a *app) adapter(ctx context.Context) (*persistence.Adapter, error) {
	if a.store == nil {
		if err := a.openStore(ctx); err != nil {
			return nil, err
		}
	}
	return persistence.NewAdapter(a.store, a.catalog,
		persistence.WithConfig(a.cfg.Persistence),
		persistence.WithLogger(a.logger),
		persistence.WithMetrics(a.metrics)), nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Store.Backend {
	case config.BackendPostgres:
		s, err := pgstore.Connect(ctx, a.cfg.Store.PGOptions())
		if err != nil {
			return err
		}
		a.store = s
		a.closeFn = s.Close
		return nil

	default:
		gs := storage.NewGraphStorage()
		path := a.cfg.Store.DataFile
		if path != "" {
			if err := restoreFile(gs, path); err != nil {
				return err
			}
		}
		a.store = gs
		a.closeFn = func() error {
			if path == "" {
				return nil
			}
			return saveFile(gs, path)
		}
		return nil
	}
}

func restoreFile(gs *storage.GraphStorage, path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()
	return gs.Restore(f)
}

// saveFile writes a snapshot next to path and renames it into place.
func saveFile(gs *storage.GraphStorage, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("save data file: %w", err)
	}
	if err := gs.Snapshot(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (a *app) shutdown() error {
	if a.closeFn == nil {
		return nil
	}
	err := a.closeFn()
	a.closeFn = nil
	a.store = nil
	return err
}
