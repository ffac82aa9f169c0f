package listing

import (
	"encoding/json"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"time"

	"listingsync/internal/core/normalize"
	perr "listingsync/internal/platform/errors"
)

// SyntheticPrefix marks source ids derived from content rather than sent by the source
const SyntheticPrefix = "syn-"

// Normalizer turns raw queue records into Normalized listings
// It is pure and safe for concurrent use
type Normalizer struct {
	sources map[string]struct{}
	now     func() time.Time
}

// NewNormalizer builds a normalizer accepting the given source slugs
// With no sources every well-formed slug is accepted
func NewNormalizer(sources ...string) *Normalizer {
	n := &Normalizer{now: time.Now}
	for _, s := range sources {
		if slug := normalize.Slug(s); slug != "" {
			if n.sources == nil {
				n.sources = map[string]struct{}{}
			}
			n.sources[slug] = struct{}{}
		}
	}
	return n
}

// Decode parses a queue payload and normalizes it
func (n *Normalizer) Decode(payload []byte) (Normalized, error) {
	var raw Raw
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Normalized{}, perr.Malformed("payload", "payload is not a listing object: %v", err)
	}
	return n.Normalize(raw)
}

// Normalize maps raw into canonical form
// Unparseable numeric fields become absent; the record fails only when the source is
// unrecognized or when it has no title, no source id and no coordinates at once
func (n *Normalizer) Normalize(raw Raw) (Normalized, error) {
	src := normalize.Slug(raw.Source)
	if src == "" {
		return Normalized{}, perr.Malformed("source", "missing source")
	}
	if n.sources != nil {
		if _, ok := n.sources[src]; !ok {
			return Normalized{}, perr.Malformed("source", "unrecognized source %q", raw.Source)
		}
	}

	now := n.now().UTC()
	out := Normalized{
		Source:      src,
		SourceID:    strings.TrimSpace(string(raw.SourceID)),
		Title:       normalize.Title(raw.Title),
		Price:       ParsePrice(string(raw.Price)),
		Mileage:     ParseMileage(string(raw.Mileage)),
		Year:        ParseYear(string(raw.Year), now),
		Coord:       ParseCoord(string(raw.Lat), string(raw.Lon)),
		Description: normalize.Text(raw.Description),
		ObservedAt:  now,
	}
	if t, ok := ParseObservedAt(string(raw.ObservedAt)); ok {
		out.ObservedAt = t
	}

	if out.Title == "" && out.SourceID == "" && out.Coord == nil {
		return Normalized{}, perr.Malformed("title", "record has no title, source id or coordinates")
	}

	if out.SourceID == "" {
		out.SourceID = SyntheticID(out)
		out.SyntheticID = true
	}
	return out, nil
}

// SyntheticID derives a stable source id from the listing content so that
// re-delivering an id-less record maps onto the same catalog link
// Coordinates are rounded to ~100m and ObservedAt is ignored
func SyntheticID(n Normalized) string {
	h := fnv.New64a()
	write := func(s string) {
		_, _ = h.Write([]byte(s))
		_, _ = h.Write([]byte{0})
	}
	write(n.Source)
	write(n.Title)
	write(optInt64(n.Price))
	write(optInt64(n.Mileage))
	if n.Year != nil {
		write(strconv.Itoa(*n.Year))
	} else {
		write("")
	}
	if n.Coord != nil {
		write(strconv.FormatFloat(math.Round(n.Coord.Lat*1000)/1000, 'f', 3, 64))
		write(strconv.FormatFloat(math.Round(n.Coord.Lon*1000)/1000, 'f', 3, 64))
	}
	return SyntheticPrefix + strconv.FormatUint(h.Sum64(), 16)
}

func optInt64(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}
