package module

import (
	"time"

	"listingsync/internal/platform/config"
)

// Options controls the search indexer. Values may also be read from env
type Options struct {
	Timeout time.Duration
	Migrate bool
}

// FromConfig reads options using the CORE_SEARCH_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_SEARCH_")
	return Options{
		Timeout: c.MayDuration("TIMEOUT", 5*time.Second),
		Migrate: c.MayBool("MIGRATE", true),
	}
}
