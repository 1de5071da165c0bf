package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/agentic-research/easel/internal/breakpoint"
	"github.com/agentic-research/easel/internal/canvas"
	"github.com/agentic-research/easel/internal/catalog"
	"github.com/agentic-research/easel/internal/config"
	"github.com/agentic-research/easel/internal/datasource"
	"github.com/agentic-research/easel/internal/graph"
	"github.com/agentic-research/easel/internal/idgen"
	"github.com/agentic-research/easel/internal/persist"
)

// workspace bundles what every subcommand needs: configuration, the
// component catalog, the document store and an editor over the stored
// canvas.
type workspace struct {
	cfg         config.Config
	catalog     *catalog.Catalog
	breakpoints *breakpoint.Catalog
	store       persist.Store
	editor      *canvas.Editor
}

func openWorkspace(ctx context.Context) (*workspace, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	gen, err := idgen.ByName(cfg.IDGenerator)
	if err != nil {
		return nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	f, err := store.Load(ctx, cat)
	switch {
	case errors.Is(err, persist.ErrNoDocument):
		f = graph.NewForest()
	case errors.Is(err, persist.ErrSummaryOnly):
		_ = store.Close()
		return nil, fmt.Errorf("%s holds only a summary of its last save and cannot be edited", cfg.Document)
	case err != nil:
		_ = store.Close()
		return nil, fmt.Errorf("load %s: %w", cfg.Document, err)
	}
	return &workspace{
		cfg:         cfg,
		catalog:     cat,
		breakpoints: breakpoint.Default(),
		store:       store,
		editor:      canvas.NewEditor(canvas.WithForest(f), canvas.WithIDGenerator(gen)),
	}, nil
}

func openStore(cfg config.Config) (persist.Store, error) {
	if cfg.DB != "" {
		return persist.OpenSQLite(cfg.DB, cfg.Document)
	}
	return persist.OpenFileStore(cfg.Document), nil
}

// loadCatalog returns the builtin components plus any from path.
func loadCatalog(path string) (*catalog.Catalog, error) {
	cat := catalog.Builtin()
	if path == "" {
		return cat, nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fh.Close() }()
	extra, err := catalog.Load(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, m := range extra.List() {
		cat.Add(m)
	}
	return cat, nil
}

// sources builds the data-source registry, or nil when none are configured.
func (w *workspace) sources() (*datasource.Registry, error) {
	if w.cfg.DataSources == "" {
		return nil, nil
	}
	defs, err := datasource.LoadConfig(w.cfg.DataSources)
	if err != nil {
		return nil, err
	}
	reg := datasource.NewRegistry(
		datasource.NewHTTPFetcher(w.cfg.FetchTimeout),
		datasource.WithConcurrency(w.cfg.MaxConcurrentFetches),
	)
	for _, d := range defs {
		if err := reg.Register(d); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// breakpoint returns the configured breakpoint, validated.
func (w *workspace) breakpoint() (string, error) {
	id := w.cfg.Breakpoint
	if _, ok := w.breakpoints.Lookup(id); !ok {
		return "", fmt.Errorf("unknown breakpoint %q", id)
	}
	return id, nil
}

func (w *workspace) save(ctx context.Context) error {
	err := w.store.Save(ctx, w.editor.Forest())
	if errors.Is(err, persist.ErrSummaryOnly) {
		return fmt.Errorf("%s: canvas holds values that cannot be stored: %w", w.cfg.Document, err)
	}
	return err
}

func (w *workspace) Close() error {
	return w.store.Close()
}
