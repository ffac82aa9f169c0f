// Package api provides the HTTP API for the application
package api

import (
	"net/http"

	"listingsync/internal/platform/config"
	"listingsync/internal/platform/metrics"
	phttp "listingsync/internal/platform/net/http"
	"listingsync/internal/platform/store"

	"listingsync/internal/modkit"
	"listingsync/internal/modkit/httpkit"
	"listingsync/internal/modkit/module"

	metamod "listingsync/internal/services/api/meta/module"
	auditmod "listingsync/internal/services/audit/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Metrics        *metrics.Metrics
	EnableProfiler bool
	CORSOrigins    []string
}

// Mounted exposes the modules Mount built so callers can migrate them
type Mounted struct {
	Audit *auditmod.Module
	Meta  *metamod.Module
}

// Mount mounts the audit query API plus the admin surface onto r
func Mount(r phttp.Router, opt Options) Mounted {
	deps := modkit.FromStore(opt.Store, opt.Config, opt.Metrics)

	out := Mounted{
		Audit: auditmod.New(deps, auditmod.Options{}),
		Meta:  metamod.New(deps),
	}
	mount(r, opt.Metrics, opt.CORSOrigins, out.Meta, out.Audit)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)
	return out
}

// MountAdmin mounts only health, readiness and metrics; the ingest binary serves this
func MountAdmin(r phttp.Router, deps modkit.Deps) *metamod.Module {
	meta := metamod.New(deps)
	mount(r, deps.Metrics, nil, meta)
	return meta
}

func mount(r phttp.Router, m *metrics.Metrics, origins []string, mods ...module.Module) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(origins...), func(api httpkit.Router) {
		for _, mod := range mods {
			mod.MountRoutes(api)
		}
	})
}
