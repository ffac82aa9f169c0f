// Package repo writes search documents to clickhouse
package repo

import (
	"context"
	_ "embed"
	"strings"

	perr "listingsync/internal/platform/errors"
	"listingsync/internal/platform/store"
	"listingsync/internal/services/search/domain"

	"github.com/google/uuid"
)

// Table is the search projection table
const Table = "listing_search"

// Schema creates Table when missing
//
//go:embed schema.sql
var Schema string

// CH is the clickhouse indexer and searcher
type CH struct {
	db store.Clickhouse
}

var (
	_ domain.Indexer  = (*CH)(nil)
	_ domain.Searcher = (*CH)(nil)
)

// NewCH returns the clickhouse repo
func NewCH(db store.Clickhouse) *CH { return &CH{db: db} }

// Migrate applies Schema
func (r *CH) Migrate(ctx context.Context) error {
	return classify(r.db.Exec(ctx, Schema), "create "+Table)
}

// Upsert appends doc; ReplacingMergeTree keeps the highest version per id
func (r *CH) Upsert(ctx context.Context, id uuid.UUID, d domain.Document) error {
	sources := d.Sources
	if sources == nil {
		sources = []string{}
	}
	row := []any{
		id, d.Title, d.Description, d.Price, d.Mileage, d.Year, d.Lat, d.Lon,
		d.Active, sources, d.FirstSeen, d.LastSeen, d.LastUpdated, d.Version,
	}
	return classify(r.db.Insert(ctx, Table, [][]any{row}), "index "+id.String())
}

// Search returns active documents whose title holds every query token, newest first
func (r *CH) Search(ctx context.Context, query string, limit int) ([]domain.Hit, error) {
	toks := strings.Fields(strings.ToLower(query))
	if len(toks) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	var (
		sb   strings.Builder
		args = make([]any, 0, len(toks)+1)
	)
	sb.WriteString("SELECT id FROM " + Table + " FINAL WHERE active")
	for _, t := range toks {
		sb.WriteString(" AND positionCaseInsensitiveUTF8(title, ?) > 0")
		args = append(args, t)
	}
	sb.WriteString(" ORDER BY last_seen DESC LIMIT ?")
	args = append(args, limit)

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, classify(err, "search")
	}
	defer rows.Close()

	var out []domain.Hit
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, classify(err, "search scan")
		}
		out = append(out, domain.Hit{ID: id, Score: 1})
	}
	return out, classify(rows.Err(), "search rows")
}

func classify(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case perr.IsConnectionFailure(err):
		return perr.Wrap(err, perr.ErrorCodeUnavailable, msg)
	}
	return perr.Wrap(err, perr.ErrorCodeDB, msg)
}
