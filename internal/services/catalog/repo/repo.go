// Package repo provides postgres access for the catalog
package repo

import (
	"context"
	_ "embed"
	"time"

	"listingsync/internal/core/geo"
	"listingsync/internal/modkit/repokit"
	perr "listingsync/internal/platform/errors"
	"listingsync/internal/platform/store"
	"listingsync/internal/services/catalog/domain"

	"github.com/google/uuid"
)

// Schema creates the catalog tables when missing
//
//go:embed schema.sql
var Schema string

// Repo is the persistence surface the catalog service composes inside one tx
type Repo interface {
	InsertEntity(ctx context.Context, e domain.Entry) error
	// LockEntity reads one entry without sources and holds its row lock until the tx ends
	LockEntity(ctx context.Context, id uuid.UUID) (domain.Entry, error)
	SaveEntity(ctx context.Context, e domain.Entry) error
	// UpsertLink links ref to id; owned is false when another entity holds the link
	UpsertLink(ctx context.Context, id uuid.UUID, ref domain.SourceRef) (owned bool, err error)
	Entity(ctx context.Context, id uuid.UUID) (domain.Entry, error)
	Candidates(ctx context.Context, source, sourceID string, b domain.Bounds, limit int) ([]domain.Entry, error)
}

type (
	// PG binds the repo to a Queryer or TxRunner
	PG struct{}
	// queries implements Repo on a Queryer
	queries struct{ q repokit.Queryer }
)

// NewPG returns the postgres binder
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// Migrate applies Schema; tables are created once and never altered here
func Migrate(ctx context.Context, q repokit.Queryer) error {
	_, err := q.Exec(ctx, Schema)
	return perr.FromPostgres(err, "migrate catalog")
}

const entityCols = `e.id, e.title, e.description, e.price, e.mileage, e.year, e.lat, e.lon,
	e.active, e.first_seen, e.last_seen, e.last_updated`

func (r *queries) InsertEntity(ctx context.Context, e domain.Entry) error {
	lat, lon := coordArgs(e.Coord)
	_, err := r.q.Exec(ctx, `
insert into catalog_entities
	(id, title, description, price, mileage, year, lat, lon, active, first_seen, last_seen, last_updated)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.Title, e.Description, e.Price, e.Mileage, e.Year, lat, lon,
		e.Active, e.FirstSeen, e.LastSeen, e.LastUpdated)
	return perr.FromPostgresf(err, "insert entity %s", e.ID)
}

func (r *queries) LockEntity(ctx context.Context, id uuid.UUID) (domain.Entry, error) {
	e, err := store.One(ctx, r.q, scanEntity,
		`select `+entityCols+` from catalog_entities e where e.id = $1 for update`, id)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.Entry{}, perr.NotFoundf("catalog entity %s not found", id)
		}
		return domain.Entry{}, perr.FromPostgresf(err, "lock entity %s", id)
	}
	return e, nil
}

func (r *queries) SaveEntity(ctx context.Context, e domain.Entry) error {
	lat, lon := coordArgs(e.Coord)
	err := store.ExecOne(ctx, r.q, `
update catalog_entities set
	title = $2, description = $3, price = $4, mileage = $5, year = $6, lat = $7, lon = $8,
	active = $9, last_seen = $10, last_updated = $11
where id = $1`,
		e.ID, e.Title, e.Description, e.Price, e.Mileage, e.Year, lat, lon,
		e.Active, e.LastSeen, e.LastUpdated)
	return perr.FromPostgresf(err, "save entity %s", e.ID)
}

func (r *queries) UpsertLink(ctx context.Context, id uuid.UUID, ref domain.SourceRef) (bool, error) {
	// the WHERE keeps a link owned by another entity untouched and reports 0 rows
	tag, err := r.q.Exec(ctx, `
insert into catalog_sources (source, source_native_id, entity_id, first_seen, last_seen)
values ($1, $2, $3, $4, $5)
on conflict (source, source_native_id) do update
	set last_seen = greatest(catalog_sources.last_seen, excluded.last_seen)
	where catalog_sources.entity_id = excluded.entity_id`,
		ref.Source, ref.SourceID, id, ref.FirstSeen, ref.LastSeen)
	if err != nil {
		return false, perr.FromPostgresf(err, "link %s/%s", ref.Source, ref.SourceID)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *queries) Entity(ctx context.Context, id uuid.UUID) (domain.Entry, error) {
	e, err := store.One(ctx, r.q, scanEntity,
		`select `+entityCols+` from catalog_entities e where e.id = $1`, id)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.Entry{}, perr.NotFoundf("catalog entity %s not found", id)
		}
		return domain.Entry{}, perr.FromPostgresf(err, "get entity %s", id)
	}
	es := []domain.Entry{e}
	if err := r.attachSources(ctx, es); err != nil {
		return domain.Entry{}, err
	}
	return es[0], nil
}

func (r *queries) Candidates(ctx context.Context, source, sourceID string, b domain.Bounds, limit int) ([]domain.Entry, error) {
	// exact link matches sort first so the limit never drops them
	const sql = `
with linked as (
	select entity_id from catalog_sources where source = $1 and source_native_id = $2
)
select ` + entityCols + `
from catalog_entities e
where e.id in (select entity_id from linked)
or (
	e.active
	and ($3::float8 is null or e.lat is null or (e.lat between $3 and $4 and
		case when $5::float8 <= $6::float8 then e.lon between $5 and $6 else (e.lon >= $5 or e.lon <= $6) end))
	and ($7::int is null or e.year is null or e.year between $7 and $8)
	and ($9::bigint is null or e.price is null or e.price between $9 and $10)
)
order by (e.id in (select entity_id from linked)) desc, e.last_seen desc, e.id
limit $11`
	es, err := store.Many(ctx, r.q, scanEntity, sql,
		source, sourceID,
		b.MinLat, b.MaxLat, b.MinLon, b.MaxLon,
		b.MinYear, b.MaxYear,
		b.MinPrice, b.MaxPrice,
		limit)
	if err != nil {
		return nil, perr.FromPostgresf(err, "candidates for %s/%s", source, sourceID)
	}
	if err := r.attachSources(ctx, es); err != nil {
		return nil, err
	}
	return es, nil
}

func (r *queries) attachSources(ctx context.Context, es []domain.Entry) error {
	if len(es) == 0 {
		return nil
	}
	ids := make([]string, len(es))
	at := make(map[uuid.UUID]int, len(es))
	for i, e := range es {
		ids[i] = e.ID.String()
		at[e.ID] = i
	}
	type link struct {
		id  uuid.UUID
		ref domain.SourceRef
	}
	links, err := store.Many(ctx, r.q, func(row store.Row) (link, error) {
		var l link
		err := row.Scan(&l.id, &l.ref.Source, &l.ref.SourceID, &l.ref.FirstSeen, &l.ref.LastSeen)
		return l, err
	}, `
select entity_id, source, source_native_id, first_seen, last_seen
from catalog_sources
where entity_id = any($1::uuid[])
order by first_seen, source, source_native_id`, ids)
	if err != nil {
		return perr.FromPostgresf(err, "load sources")
	}
	for _, l := range links {
		i := at[l.id]
		es[i].Sources = append(es[i].Sources, l.ref)
	}
	return nil
}

func scanEntity(row store.Row) (domain.Entry, error) {
	var (
		e        domain.Entry
		lat, lon *float64
	)
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Price, &e.Mileage, &e.Year, &lat, &lon,
		&e.Active, &e.FirstSeen, &e.LastSeen, &e.LastUpdated)
	if err != nil {
		return e, err
	}
	if lat != nil && lon != nil {
		e.Coord = &geo.Point{Lat: *lat, Lon: *lon}
	}
	e.FirstSeen, e.LastSeen, e.LastUpdated = utc(e.FirstSeen), utc(e.LastSeen), utc(e.LastUpdated)
	return e, nil
}

func coordArgs(c *geo.Point) (lat, lon *float64) {
	if c == nil {
		return nil, nil
	}
	return &c.Lat, &c.Lon
}

func utc(t time.Time) time.Time { return t.UTC() }
