// Package modkit provides module wiring and core deps
package modkit

import (
	"listingsync/internal/modkit/repokit"
	"listingsync/internal/platform/config"
	"listingsync/internal/platform/logger"
	"listingsync/internal/platform/metrics"
	"listingsync/internal/platform/store"

	"github.com/redis/go-redis/v9"
)

// Deps holds core dependencies passed to modules
// every store is optional; modules fall back to in-memory adapters when one is nil
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
	RDS redis.UniversalClient

	// Metrics may be nil; its methods are nil-safe
	Metrics *metrics.Metrics
}

// FromStore copies the opened backends of st into a Deps
func FromStore(st *store.Store, cfg config.Conf, m *metrics.Metrics) Deps {
	d := Deps{Cfg: cfg, Metrics: m}
	if st == nil {
		return d
	}
	d.Log, d.PG, d.CH, d.RDS = st.Log, st.PG, st.CH, st.RDS
	return d
}

// ZeroOK returns true when deps are safe to use with zero values in tests
// consumers should still nil check for optional stores
func (d Deps) ZeroOK() bool { return true }
