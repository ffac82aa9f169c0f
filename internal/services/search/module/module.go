// Package module wires the search indexer and exposes its ports
package module

import (
	"context"

	"listingsync/internal/modkit"
	"listingsync/internal/modkit/httpkit"
	catalog "listingsync/internal/services/catalog/domain"
	"listingsync/internal/services/search/domain"
	"listingsync/internal/services/search/memindex"
	"listingsync/internal/services/search/repo"
	"listingsync/internal/services/search/service"
)

// Indexer projects and writes one catalog entry
type Indexer interface {
	Index(ctx context.Context, e catalog.Entry) error
}

// Ports is what other modules consume
type Ports struct {
	Indexer  Indexer
	Searcher domain.Searcher
}

// Module defines the search module
type Module struct {
	opts  Options
	ch    *repo.CH
	ports Ports

	// Memory is set when no clickhouse handle was wired
	Memory *memindex.Index
}

// New constructs the indexer on deps.CH, or on an in-memory index when CH is nil
func New(deps modkit.Deps, overrides Options) *Module {
	opts := FromConfig(deps.Cfg)
	if overrides.Timeout > 0 {
		opts.Timeout = overrides.Timeout
	}
	if overrides.Migrate {
		opts.Migrate = true
	}

	m := &Module{opts: opts}
	var (
		idx domain.Indexer
		s   domain.Searcher
	)
	if deps.CH != nil {
		m.ch = repo.NewCH(deps.CH)
		idx, s = m.ch, m.ch
	} else {
		m.Memory = memindex.New()
		idx, s = m.Memory, m.Memory
	}
	m.ports = Ports{Indexer: service.New(idx, opts.Timeout), Searcher: s}
	return m
}

// Migrate creates the clickhouse table when enabled
func (m *Module) Migrate(ctx context.Context) error {
	if m.ch == nil || !m.opts.Migrate {
		return nil
	}
	return m.ch.Migrate(ctx)
}

// Name returns the module name
func (m *Module) Name() string { return "search" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op
func (m *Module) MountRoutes(_ httpkit.Router) {}
