package module

import (
	"context"
	"testing"
	"time"

	"listingsync/internal/modkit"
	"listingsync/internal/modkit/module"
	"listingsync/internal/platform/config"
	auditmod "listingsync/internal/services/audit/module"
	catalogmod "listingsync/internal/services/catalog/module"
	"listingsync/internal/services/ingest/domain"
	searchmod "listingsync/internal/services/search/module"
)

func TestFromConfig(t *testing.T) {
	t.Setenv("CORE_INGEST_SOURCES", "lbc, autoscout ,")
	t.Setenv("CORE_INGEST_CONCURRENCY", "8")
	t.Setenv("CORE_INGEST_RECORD_TIMEOUT", "2s")
	t.Setenv("CORE_INGEST_CONSUMER", "node-1")

	o := FromConfig(config.New())
	if len(o.Sources) != 2 || o.Sources[1] != "autoscout" || o.Concurrency != 8 ||
		o.RecordTimeout != 2*time.Second || o.MaxAttempts != 3 || o.Consumer != "node-1" {
		t.Fatalf("options %+v", o)
	}

	o = o.merge(Options{Concurrency: 2, Once: true})
	if o.Concurrency != 2 || !o.Once || o.Consumer != "node-1" {
		t.Fatalf("merged %+v", o)
	}
}

func TestResolverConfig(t *testing.T) {
	t.Setenv("CORE_RESOLVE_THRESHOLD", "0.7")
	t.Setenv("CORE_RESOLVE_YEAR_TOLERANCE", "2")
	c := ResolverConfig(config.New())
	if c.Threshold != 0.7 || c.YearTolerance != 2 || c.TitleWeight != 0.45 {
		t.Fatalf("resolver config %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestModule_Runner(t *testing.T) {
	deps := modkit.Deps{Cfg: config.New()}
	cat := catalogmod.New(deps, catalogmod.Options{})
	search := searchmod.New(deps, searchmod.Options{})
	audit := auditmod.New(deps, auditmod.Options{})

	m := New(deps, Options{Sources: []string{"a"}, Concurrency: 1, Once: true, ReceiveWait: time.Millisecond}, Wiring{
		Catalog: cat.Ports().(catalogmod.Ports).Catalog,
		Indexer: module.MustPortsOf[searchmod.Indexer](search),
		Audit:   audit.Ports().(auditmod.Ports).Audit,
	})
	if m.Memory == nil || m.Name() != "ingest" {
		t.Fatalf("module %+v", m)
	}

	ctx := context.Background()
	if err := m.Memory.Push(ctx, "a", []byte(`{"source":"a","source_id":"1","title":"Skoda Octavia","lat":50.08,"lon":14.43}`)); err != nil {
		t.Fatal(err)
	}
	runner := module.MustPortsOf[domain.RunnerPort](m)
	if err := runner.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if cat.Memory.Len() != 1 || search.Memory.Len() != 1 || len(audit.Memory.All()) != 1 {
		t.Fatalf("catalog %d index %d runs %d", cat.Memory.Len(), search.Memory.Len(), len(audit.Memory.All()))
	}
}
