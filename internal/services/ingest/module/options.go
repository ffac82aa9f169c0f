package module

import (
	"os"
	"time"

	"listingsync/internal/core/resolver"
	"listingsync/internal/platform/config"
)

// Options configures the ingest workers. Values may also be read from env
type Options struct {
	Sources     []string
	Concurrency int
	Consumer    string
	Once        bool
	Idle        time.Duration

	RecordTimeout time.Duration
	MaxAttempts   int
	MaxRecords    int
	ReceiveWait   time.Duration
}

// FromConfig reads options using the CORE_INGEST_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_INGEST_")
	host, _ := os.Hostname()
	if host == "" {
		host = "ingest"
	}
	return Options{
		Sources:       c.MayCSV("SOURCES", nil),
		Concurrency:   c.MayInt("CONCURRENCY", 4),
		Consumer:      c.MayString("CONSUMER", host),
		Once:          c.MayBool("ONCE", false),
		Idle:          c.MayDuration("IDLE", time.Second),
		RecordTimeout: c.MayDuration("RECORD_TIMEOUT", 15*time.Second),
		MaxAttempts:   c.MayInt("MAX_ATTEMPTS", 3),
		MaxRecords:    c.MayInt("MAX_RECORDS", 0),
		ReceiveWait:   c.MayDuration("RECEIVE_WAIT", time.Second),
	}
}

func (o Options) merge(over Options) Options {
	if len(over.Sources) > 0 {
		o.Sources = over.Sources
	}
	if over.Concurrency > 0 {
		o.Concurrency = over.Concurrency
	}
	if over.Consumer != "" {
		o.Consumer = over.Consumer
	}
	if over.Once {
		o.Once = true
	}
	if over.Idle > 0 {
		o.Idle = over.Idle
	}
	if over.RecordTimeout > 0 {
		o.RecordTimeout = over.RecordTimeout
	}
	if over.MaxAttempts > 0 {
		o.MaxAttempts = over.MaxAttempts
	}
	if over.MaxRecords > 0 {
		o.MaxRecords = over.MaxRecords
	}
	if over.ReceiveWait > 0 {
		o.ReceiveWait = over.ReceiveWait
	}
	return o
}

// ResolverConfig reads the matching weights and tolerances from CORE_RESOLVE_
func ResolverConfig(cfg config.Conf) resolver.Config {
	c := cfg.Prefix("CORE_RESOLVE_")
	d := resolver.DefaultConfig()
	return resolver.Config{
		TitleWeight:    c.MayFloat64("TITLE_WEIGHT", d.TitleWeight),
		GeoWeight:      c.MayFloat64("GEO_WEIGHT", d.GeoWeight),
		PriceWeight:    c.MayFloat64("PRICE_WEIGHT", d.PriceWeight),
		MileageWeight:  c.MayFloat64("MILEAGE_WEIGHT", d.MileageWeight),
		YearWeight:     c.MayFloat64("YEAR_WEIGHT", d.YearWeight),
		Threshold:      c.MayFloat64("THRESHOLD", d.Threshold),
		GeoToleranceKm: c.MayFloat64("GEO_TOLERANCE_KM", d.GeoToleranceKm),
		PriceBand:      c.MayFloat64("PRICE_BAND", d.PriceBand),
		MileageBand:    c.MayFloat64("MILEAGE_BAND", d.MileageBand),
		YearTolerance:  c.MayInt("YEAR_TOLERANCE", d.YearTolerance),
		UnknownCredit:  c.MayFloat64("UNKNOWN_CREDIT", d.UnknownCredit),
		CandidateLimit: c.MayInt("CANDIDATE_LIMIT", d.CandidateLimit),
	}
}
