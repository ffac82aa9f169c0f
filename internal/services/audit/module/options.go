package module

import (
	"time"

	"listingsync/internal/platform/config"
)

// Options controls the audit sink. Values may also be read from env
type Options struct {
	AppendAttempts int
	AppendBackoff  time.Duration
	Migrate        bool
}

// FromConfig reads options using the CORE_AUDIT_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_AUDIT_")
	return Options{
		AppendAttempts: c.MayInt("APPEND_ATTEMPTS", 5),
		AppendBackoff:  c.MayDuration("APPEND_BACKOFF", 200*time.Millisecond),
		Migrate:        c.MayBool("MIGRATE", true),
	}
}
