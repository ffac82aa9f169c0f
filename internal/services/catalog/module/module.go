// Package module wires the catalog writer and exposes its port
package module

import (
	"context"
	"fmt"
	"time"

	"listingsync/internal/modkit"
	"listingsync/internal/modkit/httpkit"
	"listingsync/internal/modkit/repokit"
	"listingsync/internal/services/catalog/domain"
	"listingsync/internal/services/catalog/repo"
	"listingsync/internal/services/catalog/service"
)

// Ports is what other modules consume
type Ports struct {
	Catalog domain.Port
}

// Module defines the catalog module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports

	// Memory is set when no postgres handle was wired
	Memory *repo.Memory
}

// New constructs the catalog on deps.PG, or on an in-memory store when PG is nil
func New(deps modkit.Deps, overrides Options) *Module {
	opts := FromConfig(deps.Cfg).merge(overrides)
	m := &Module{deps: deps, opts: opts}

	var (
		db     repokit.TxRunner
		binder repokit.Binder[repo.Repo]
	)
	if deps.PG != nil {
		db = repokit.WithBeginHooks(deps.PG, lockTimeout(opts.LockTimeout))
		binder = repo.NewPG()
	} else {
		m.Memory = repo.NewMemory()
		db, binder = m.Memory, m.Memory
	}

	m.ports = Ports{Catalog: service.New(db, binder, domain.DefaultRegion(opts.GeoToleranceKm))}
	return m
}

// Migrate applies the catalog schema when enabled and backed by postgres
func (m *Module) Migrate(ctx context.Context) error {
	if m.deps.PG == nil || !m.opts.Migrate {
		return nil
	}
	return repo.Migrate(ctx, m.deps.PG)
}

// Name returns the module name
func (m *Module) Name() string { return "catalog" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op; the catalog has no HTTP surface
func (m *Module) MountRoutes(_ httpkit.Router) {}

// lockTimeout makes a writer give up on a held row lock instead of stalling a worker
func lockTimeout(d time.Duration) repokit.BeginHook {
	return func(ctx context.Context, q repokit.Queryer) error {
		if d <= 0 {
			return nil
		}
		_, err := q.Exec(ctx, fmt.Sprintf("set local lock_timeout = '%dms'", d.Milliseconds()))
		return err
	}
}
