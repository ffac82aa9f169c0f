package module

import (
	"time"

	"listingsync/internal/platform/config"
)

// Options controls the catalog writer. Values may also be read from env
type Options struct {
	// GeoToleranceKm is the resolver tolerance; the candidate box is three times it
	GeoToleranceKm float64
	// LockTimeout bounds how long a writer waits on another worker's row lock
	LockTimeout time.Duration
	// Migrate applies the schema on startup
	Migrate bool
}

// FromConfig reads CORE_RESOLVE_GEO_TOLERANCE_KM and the CORE_CATALOG_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_CATALOG_")
	return Options{
		GeoToleranceKm: cfg.Prefix("CORE_RESOLVE_").MayFloat64("GEO_TOLERANCE_KM", 5),
		LockTimeout:    c.MayDuration("LOCK_TIMEOUT", 5*time.Second),
		Migrate:        c.MayBool("MIGRATE", true),
	}
}

func (o Options) merge(over Options) Options {
	if over.GeoToleranceKm > 0 {
		o.GeoToleranceKm = over.GeoToleranceKm
	}
	if over.LockTimeout > 0 {
		o.LockTimeout = over.LockTimeout
	}
	if over.Migrate {
		o.Migrate = true
	}
	return o
}
