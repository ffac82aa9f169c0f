//go:build integration_pg

package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"listingsync/internal/core/geo"
	"listingsync/internal/core/listing"
	perr "listingsync/internal/platform/errors"
	"listingsync/internal/platform/store"
	"listingsync/internal/platform/testkit/tcx"
	"listingsync/internal/services/catalog/domain"
	"listingsync/internal/services/catalog/repo"

	"github.com/rs/zerolog"
)

func openPG(t *testing.T) store.TxRunner {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	s, err := store.Open(ctx, store.Config{PG: store.PGConfig{Enabled: true, URL: tcx.Postgres(t), MaxConns: 8}},
		store.WithLogger(zerolog.New(io.Discard)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	if err := repo.Migrate(ctx, s.PG); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s.PG
}

func TestCatalogPG_Integration(t *testing.T) {
	db := openPG(t)
	s := New(db, repo.NewPG(), domain.DefaultRegion(5))
	ctx := context.Background()

	a := listing.Normalized{
		Source: "a", SourceID: "123", Title: "bmw 320d 2018",
		Price: i64(1800000), Year: yr(2018), Coord: &geo.Point{Lat: 48.85, Lon: 2.35},
	}
	id, err := s.CreateEntity(ctx, a)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateEntity(ctx, a); !perr.IsCode(err, perr.ErrorCodeRaced) {
		t.Fatalf("second create of the same link: want raced, got %v", err)
	}

	if err := s.LinkDuplicateSource(ctx, id, "b", "x9"); err != nil {
		t.Fatalf("link: %v", err)
	}
	e, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(e.Sources) != 2 || e.Coord == nil || *e.Price != 1800000 {
		t.Fatalf("entry %+v", e)
	}

	upd := a
	upd.Price = i64(1750000)
	if err := s.UpdateEntity(ctx, id, upd); err != nil {
		t.Fatalf("update: %v", err)
	}

	b := listing.Normalized{Source: "b", SourceID: "x9", Title: "bmw 320 d, 2018", Coord: &geo.Point{Lat: 48.86, Lon: 2.34}}
	cands, err := s.Candidates(ctx, b, 10)
	if err != nil || len(cands) != 1 || cands[0].ID != id {
		t.Fatalf("candidates %+v, %v", cands, err)
	}

	other, err := s.CreateEntity(ctx, listing.Normalized{Source: "c", SourceID: "1", Title: "audi a4"})
	if err != nil {
		t.Fatalf("create other: %v", err)
	}
	if err := s.LinkDuplicateSource(ctx, other, "b", "x9"); !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("want conflict, got %v", err)
	}
}

func TestCatalogPG_ConcurrentCreateOneWinner(t *testing.T) {
	db := openPG(t)
	s := New(db, repo.NewPG(), domain.DefaultRegion(5))
	ctx := context.Background()
	l := listing.Normalized{Source: "a", SourceID: "race", Title: "vw golf"}

	const n = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		won    int
		raced  int
		others []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateEntity(ctx, l)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case perr.IsCode(err, perr.ErrorCodeRaced):
				raced++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()
	if won != 1 || raced != n-1 || len(others) > 0 {
		t.Fatalf("won=%d raced=%d others=%v", won, raced, others)
	}
	n64, err := store.Scalar[int64](ctx, db, `select count(*) from catalog_entities`)
	if err != nil || n64 != 1 {
		t.Fatalf("entities=%d err=%v", n64, err)
	}
}

func TestCatalogPG_CandidatesAcrossAntimeridian(t *testing.T) {
	db := openPG(t)
	s := New(db, repo.NewPG(), domain.DefaultRegion(5))
	ctx := context.Background()

	id, err := s.CreateEntity(ctx, listing.Normalized{Source: "a", SourceID: "fj-1", Title: "toyota hilux", Coord: &geo.Point{Lat: -17, Lon: 179.99}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateEntity(ctx, listing.Normalized{Source: "a", SourceID: "far", Title: "toyota hilux", Coord: &geo.Point{Lat: -17, Lon: 0}}); err != nil {
		t.Fatalf("create far: %v", err)
	}

	cands, err := s.Candidates(ctx, listing.Normalized{Source: "b", SourceID: "fj-9", Title: "toyota hilux", Coord: &geo.Point{Lat: -17, Lon: -179.99}}, 10)
	if err != nil || len(cands) != 1 || cands[0].ID != id {
		t.Fatalf("candidates %+v, %v", cands, err)
	}
}
