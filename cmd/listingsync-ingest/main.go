package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"listingsync/internal/modkit"
	"listingsync/internal/modkit/module"
	"listingsync/internal/modkit/repokit"
	"listingsync/internal/platform/config"
	"listingsync/internal/platform/logger"
	"listingsync/internal/platform/metrics"
	phttp "listingsync/internal/platform/net/http"
	"listingsync/internal/platform/store"

	"listingsync/internal/services/api"
	auditmod "listingsync/internal/services/audit/module"
	catalogmod "listingsync/internal/services/catalog/module"
	"listingsync/internal/services/ingest/domain"
	ingestmod "listingsync/internal/services/ingest/module"
	searchmod "listingsync/internal/services/search/module"

	"golang.org/x/sync/errgroup"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	var (
		fSources = flag.String("sources", "", "comma-separated source names to consume (CORE_INGEST_SOURCES)")
		fConc    = flag.Int("concurrency", 0, "worker count; 0 keeps CORE_INGEST_CONCURRENCY")
		fOnce    = flag.Bool("once", false, "drain every source once, then exit")
		fAdmin   = flag.String("admin-addr", "", "listen address for health and metrics (CORE_INGEST_ADMIN_ADDR)")
	)
	flag.Parse()

	// flags win over env; modules read everything through FromConfig
	mustSetEnv("CORE_INGEST_SOURCES", strings.TrimSpace(*fSources))
	if *fConc > 0 {
		mustSetEnv("CORE_INGEST_CONCURRENCY", fmt.Sprintf("%d", *fConc))
	}
	if *fOnce {
		mustSetEnv("CORE_INGEST_ONCE", "true")
	}
	mustSetEnv("CORE_INGEST_ADMIN_ADDR", *fAdmin)
	if os.Getenv("CORE_INGEST_ADMIN_ADDR") == "" {
		// keep clear of the api default :4000 when both run on one host
		_ = os.Setenv("CORE_INGEST_ADMIN_ADDR", ":9091")
	}

	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	rdsCfg := root.Prefix("SERVICE_REDIS_")

	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Config{
		AppName: "listingsync-ingest",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 8)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled:    chCfg.MayString("DBURL", "") != "",
			URL:        chCfg.MayString("DBURL", ""),
			ClientName: "listingsync",
			ClientTag:  "ingest",
		},
		RDS: store.RedisConfig{
			Enabled:  true,
			Addr:     rdsCfg.MustString("ADDR"),
			Username: rdsCfg.MayString("USERNAME", ""),
			Password: rdsCfg.MayString("PASSWORD", ""),
			DB:       rdsCfg.MayInt("DB", 0),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	deps := modkit.FromStore(st, root, metrics.New())

	cat := catalogmod.New(deps, catalogmod.Options{})
	search := searchmod.New(deps, searchmod.Options{})
	audit := auditmod.New(deps, auditmod.Options{})
	for name, migrate := range map[string]func(context.Context) error{
		"catalog": cat.Migrate, "search": search.Migrate, "audit": audit.Migrate,
	} {
		if err := migrate(ctx); err != nil {
			l.Panic().Err(err).Str("module", name).Msg("migrate failed")
		}
	}
	repokit.MustGuard(ctx, st)

	ingest := ingestmod.New(deps, ingestmod.Options{}, ingestmod.Wiring{
		Catalog: module.MustPortsOf[catalogmod.Ports](cat).Catalog,
		Indexer: module.MustPortsOf[searchmod.Indexer](search),
		Audit:   module.MustPortsOf[auditmod.Ports](audit).Audit,
	})
	runner := module.MustPortsOf[domain.RunnerPort](ingest)
	opts := ingest.Options()

	adminCfg := root.Prefix("CORE_INGEST_ADMIN_")
	admin := phttp.NewServer(adminCfg)
	api.MountAdmin(admin.Router(), deps)

	l.Info().Strs("sources", opts.Sources).Int("concurrency", opts.Concurrency).Bool("once", opts.Once).
		Str("admin_addr", admin.Addr()).Msg("ingest starting")

	// the pool returning ends the admin server too; a signal drains both
	g, gctx := errgroup.WithContext(ctx)
	runCtx, stopRun := context.WithCancel(gctx)
	defer stopRun()
	g.Go(func() error {
		defer stopRun()
		return runner.Run(runCtx)
	})
	g.Go(func() error { return admin.Run(runCtx) })

	if err := g.Wait(); err != nil {
		l.Fatal().Err(err).Msg("ingest stopped with error")
	}
	l.Info().Msg("ingest stopped")
}
