package ch

import (
	"context"
	"strings"
	"testing"
)

func TestOpen_BadDSN(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), Config{URL: "://nope"}); err == nil {
		t.Fatalf("expected dsn error")
	}
}

func TestInsert_GuardsBeforeTouchingConn(t *testing.T) {
	t.Parallel()

	c := &CH{} // nil conn: both paths must return before using it
	if err := c.Insert(context.Background(), "listing_search", nil); err != nil {
		t.Fatalf("empty insert should be a no-op, got %v", err)
	}
	err := c.Insert(context.Background(), "x; DROP TABLE y", [][]any{{1}})
	if err == nil || !strings.Contains(err.Error(), "invalid table name") {
		t.Fatalf("expected table name rejection, got %v", err)
	}
}

func TestBuildClientInfo(t *testing.T) {
	t.Parallel()

	ci := BuildClientInfo(" listingsync-ingest ", "v1")
	if len(ci.Products) != 5 {
		t.Fatalf("products = %d", len(ci.Products))
	}
	if ci.Products[0].Name != "listingsync" || ci.Products[0].Version != "v1" {
		t.Fatalf("first product = %+v", ci.Products[0])
	}
	if ci.Products[1].Version != "listingsync-ingest" {
		t.Fatalf("role should be trimmed, got %q", ci.Products[1].Version)
	}
}
