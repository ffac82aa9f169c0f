package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"listingsync/internal/modkit/repokit"
	"listingsync/internal/platform/config"
	"listingsync/internal/platform/logger"
	"listingsync/internal/platform/metrics"
	phttp "listingsync/internal/platform/net/http"
	"listingsync/internal/platform/store"

	"listingsync/internal/services/api"
)

func main() {
	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	rdsCfg := root.Prefix("SERVICE_REDIS_")

	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the runs API only reads postgres; redis is opened for readiness when configured
	st, err := store.Open(ctx, store.Config{
		AppName: "listingsync-api",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", true),
		},
		RDS: store.RedisConfig{
			Enabled:  rdsCfg.MayString("ADDR", "") != "",
			Addr:     rdsCfg.MayString("ADDR", ""),
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

	// http server (reads CORE_API_ADDR)
	srv := phttp.NewServer(apiCfg)

	mounted := api.Mount(srv.Router(), api.Options{
		Config:         root,
		Store:          st,
		Metrics:        metrics.New(),
		EnableProfiler: apiCfg.MayBool("PROFILER", false),
		CORSOrigins:    apiCfg.MayCSV("CORS_ORIGINS", nil),
	})
	if err := mounted.Audit.Migrate(ctx); err != nil {
		l.Panic().Err(err).Msg("audit migrate failed")
	}
	repokit.MustGuard(ctx, st)

	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
