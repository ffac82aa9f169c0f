// Package module wires meta endpoints into the API using a tiny module
package module

import (
	"context"
	"net/http"
	"time"

	"listingsync/internal/core/version"
	modkit "listingsync/internal/modkit"
	"listingsync/internal/modkit/httpkit"
	"listingsync/internal/platform/store"
	str "listingsync/internal/platform/strings"

	metahttp "listingsync/internal/services/api/meta/http"
)

// Module implements module.Module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string
	mws    []func(http.Handler) http.Handler

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	startedAt time.Time
}

// New constructs a meta module with the provided dependencies and options
// CORE_META_SERVICE overrides the reported service name
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		startedAt: time.Now(),
	}

	cfg := deps.Cfg.Prefix("CORE_META_")
	hd := metahttp.Deps{
		ServiceName: cfg.MayString("SERVICE", version.Info().Service),
		StartedAt:   m.startedAt,
		Checks:      Checks(deps),
		Timeout:     cfg.MayDuration("READY_TIMEOUT", 2*time.Second),
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		metahttp.Register(r, hd)
		if external != nil {
			external(r)
		}
	}

	return m
}

// Checks builds the readiness probes for every backend in deps
// a backend that is nil or cannot be pinged is reported as skipped
func Checks(deps modkit.Deps) []metahttp.Check {
	out := []metahttp.Check{{Name: "pg"}, {Name: "ch"}, {Name: "redis"}}
	if p, ok := deps.PG.(store.Pinger); ok && deps.PG != nil {
		out[0].Ping = p.Ping
	}
	if p, ok := deps.CH.(store.Pinger); ok && deps.CH != nil {
		out[1].Ping = p.Ping
	}
	if deps.RDS != nil {
		rds := deps.RDS
		out[2].Ping = func(ctx context.Context) error { return rds.Ping(ctx).Err() }
	}
	return out
}

// MountRoutes implements module.Module
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.prefix, m.mws, func(rr httpkit.Router) {
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		m.register(rr)
	})
}

// Name implements module.Module
func (m *Module) Name() string { return str.MustString(m.name, "meta") }

// Prefix implements module.Module
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares implements module.Module
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }

// Ports implements module.Module
func (m *Module) Ports() any { return nil }
