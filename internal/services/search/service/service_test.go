package service

import (
	"context"
	"errors"
	"testing"
	"time"

	perr "listingsync/internal/platform/errors"
	catalog "listingsync/internal/services/catalog/domain"
	"listingsync/internal/services/search/domain"
	"listingsync/internal/services/search/memindex"

	"github.com/google/uuid"
)

type slowIndexer struct{}

func (slowIndexer) Upsert(ctx context.Context, _ uuid.UUID, _ domain.Document) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestIndex(t *testing.T) {
	idx := memindex.New()
	s := New(idx, time.Second)
	e := catalog.Entry{ID: uuid.New(), Title: "golf", Active: true, LastUpdated: time.Unix(10, 0)}

	if err := s.Index(context.Background(), e); err != nil {
		t.Fatalf("index: %v", err)
	}
	d, ok := idx.Get(e.ID)
	if !ok || d.Version != 10_000_000 {
		t.Fatalf("doc %+v", d)
	}
}

func TestIndex_Errors(t *testing.T) {
	e := catalog.Entry{ID: uuid.New()}

	err := New(slowIndexer{}, 10*time.Millisecond).Index(context.Background(), e)
	if !perr.IsCode(err, perr.ErrorCodeTimeout) {
		t.Fatalf("want timeout, got %v", err)
	}

	idx := memindex.New()
	idx.Err = perr.Unavailablef("clickhouse down")
	if err := New(idx, 0).Index(context.Background(), e); !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("classified error lost its code: %v", err)
	}

	idx.Err = errors.New("plain")
	if err := New(idx, 0).Index(context.Background(), e); err == nil {
		t.Fatal("expected error")
	}
}
