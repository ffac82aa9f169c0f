// Package module wires the ingest coordinator and worker pool
package module

import (
	"listingsync/internal/adapters/queue/memq"
	"listingsync/internal/adapters/queue/redisq"
	"listingsync/internal/core/listing"
	"listingsync/internal/core/resolver"
	"listingsync/internal/modkit"
	"listingsync/internal/modkit/httpkit"
	auditdomain "listingsync/internal/services/audit/domain"
	catalog "listingsync/internal/services/catalog/domain"
	"listingsync/internal/services/ingest/domain"
	"listingsync/internal/services/ingest/service"
)

// Wiring is the set of ports ingest consumes from other modules
type Wiring struct {
	Catalog catalog.Port
	Indexer domain.Indexer
	Audit   auditdomain.Sink
}

// Ports defines the ingest module ports
type Ports struct {
	Runner      domain.RunnerPort
	Coordinator *service.Coordinator
}

// Module implements the ingest module
type Module struct {
	opts  Options
	ports Ports

	// Memory is set when no redis handle was wired; every worker shares it
	Memory *memq.Queue
}

// New constructs the coordinator and pool; queues come from deps.RDS or an in-memory queue
// It does not mount any routes
func New(deps modkit.Deps, overrides Options, w Wiring) *Module {
	opts := FromConfig(deps.Cfg).merge(overrides)
	m := &Module{opts: opts}

	rcfg := ResolverConfig(deps.Cfg)
	newQueue := func(consumer string) domain.Queue { return redisq.New(deps.RDS, consumer) }
	if deps.RDS == nil {
		m.Memory = memq.New()
		newQueue = func(string) domain.Queue { return m.Memory }
	}

	coord := service.New(service.Deps{
		Queue:    newQueue(opts.Consumer),
		Norm:     listing.NewNormalizer(opts.Sources...),
		Resolver: resolver.MustNew(rcfg),
		Catalog:  w.Catalog,
		Index:    w.Indexer,
		Audit:    w.Audit,
		Metrics:  deps.Metrics,
	}, service.Config{
		RecordTimeout:  opts.RecordTimeout,
		MaxAttempts:    opts.MaxAttempts,
		MaxRecords:     opts.MaxRecords,
		ReceiveWait:    opts.ReceiveWait,
		CandidateLimit: rcfg.CandidateLimit,
	})

	pool := service.NewPool(coord, newQueue, service.PoolConfig{
		Sources:     opts.Sources,
		Concurrency: opts.Concurrency,
		Consumer:    opts.Consumer,
		Idle:        opts.Idle,
		Once:        opts.Once,
	})

	m.ports = Ports{Runner: pool, Coordinator: coord}
	return m
}

// Options returns the effective options
func (m *Module) Options() Options { return m.opts }

// Name returns the module name
func (m *Module) Name() string { return "ingest" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op as ingest has no routes
func (m *Module) MountRoutes(_ httpkit.Router) {}
