// Package module wires the audit trail into the API and the ingest worker
package module

import (
	"context"
	"net/http"

	"listingsync/internal/modkit"
	"listingsync/internal/modkit/httpkit"
	auditdomain "listingsync/internal/services/audit/domain"
	audithttp "listingsync/internal/services/audit/http"
	auditrepo "listingsync/internal/services/audit/repo"
	auditsvc "listingsync/internal/services/audit/service"
)

// Ports is what other modules consume
type Ports struct {
	Audit auditdomain.Port
}

// Module implements the audit module
type Module struct {
	deps   modkit.Deps
	opts   Options
	name   string
	prefix string
	mws    []func(http.Handler) http.Handler

	register func(httpkit.Router)
	ports    Ports

	// Memory is set when no postgres handle was wired
	Memory *auditrepo.Memory
}

// New constructs the audit module; routes mount under /runs of the caller router unless overridden
func New(deps modkit.Deps, overrides Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("audit"), modkit.WithPrefix("/runs")}, opts...)...)

	o := FromConfig(deps.Cfg)
	if overrides.AppendAttempts > 0 {
		o.AppendAttempts = overrides.AppendAttempts
	}
	if overrides.AppendBackoff > 0 {
		o.AppendBackoff = overrides.AppendBackoff
	}
	if overrides.Migrate {
		o.Migrate = true
	}

	m := &Module{deps: deps, opts: o, name: b.Name, prefix: b.Prefix, mws: b.Mw}

	var r auditrepo.Repo
	if deps.PG != nil {
		r = auditrepo.NewPG().Bind(deps.PG)
	} else {
		m.Memory = auditrepo.NewMemory()
		r = m.Memory
	}
	svc := auditsvc.New(r, auditsvc.Config{AppendAttempts: o.AppendAttempts, AppendBackoff: o.AppendBackoff})
	m.ports = Ports{Audit: svc}

	external := b.Register
	m.register = func(rr httpkit.Router) {
		audithttp.Register(rr, svc)
		external(rr)
	}
	return m
}

// Migrate applies the audit schema when enabled and backed by postgres
func (m *Module) Migrate(ctx context.Context) error {
	if m.deps.PG == nil || !m.opts.Migrate {
		return nil
	}
	return auditrepo.Migrate(ctx, m.deps.PG)
}

// MountRoutes mounts the run endpoints under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.prefix, m.mws, m.register)
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return m.prefix }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
