package listing

import (
	"strings"
	"testing"
	"time"

	perr "listingsync/internal/platform/errors"
	"listingsync/internal/platform/testkit"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestNormalizer(t *testing.T, sources ...string) *Normalizer {
	t.Helper()
	n := NewNormalizer(sources...)
	n.now = func() time.Time { return fixedNow }
	return n
}

func TestDecode_ScenarioRecords(t *testing.T) {
	n := newTestNormalizer(t)

	a, err := n.Decode([]byte(`{"source":"A","source_id":"123","title":"BMW 320d 2018","price":18000,"lat":48.85,"lon":2.35}`))
	if err != nil {
		t.Fatalf("decode A: %v", err)
	}
	if a.Source != "a" || a.SourceID != "123" || a.Title != "bmw 320d 2018" {
		t.Fatalf("unexpected A: %+v", a)
	}
	if a.Price == nil || *a.Price != 1800000 {
		t.Fatalf("price minor units = %v", a.Price)
	}
	if a.Coord == nil || a.Coord.Lat != 48.85 || a.Coord.Lon != 2.35 {
		t.Fatalf("coord = %+v", a.Coord)
	}
	if a.Year != nil || a.Mileage != nil {
		t.Fatalf("absent fields should stay nil: year=%v mileage=%v", a.Year, a.Mileage)
	}

	b, err := n.Decode([]byte(`{"source":"B","source_id":"x9","title":"BMW 320 d, 2018","price":"18 200 €","lat":"48.86","lon":"2.34"}`))
	if err != nil {
		t.Fatalf("decode B: %v", err)
	}
	if b.Title != "bmw 320 d, 2018" || b.Price == nil || *b.Price != 1820000 {
		t.Fatalf("unexpected B: %+v", b)
	}
}

func TestNormalize_UnparseablePriceIsAbsent(t *testing.T) {
	n := newTestNormalizer(t)
	got, err := n.Normalize(Raw{Source: "a", SourceID: "7", Title: "Audi A4", Price: "N/A", Lat: "48.1", Lon: "11.5"})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.Price != nil {
		t.Fatalf("price should be absent, got %d", *got.Price)
	}
	if got.Coord == nil {
		t.Fatalf("coordinates should survive")
	}
}

func TestNormalize_Fields(t *testing.T) {
	n := newTestNormalizer(t)
	got, err := n.Normalize(Raw{
		Source:      "site_b",
		SourceID:    "  991 ",
		Title:       "  VW  Golf\tVII ",
		Price:       "€12.500",
		Mileage:     "45,000 miles",
		Year:        "03/2017",
		Lat:         "52,52",
		Lon:         "13.40",
		Description: "One owner.\n\nGarage kept",
		ObservedAt:  "2026-02-27T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.SourceID != "991" || got.Title != "vw golf vii" {
		t.Fatalf("ids/title: %+v", got)
	}
	if *got.Price != 1250000 {
		t.Fatalf("price = %d", *got.Price)
	}
	if *got.Mileage != 72420 {
		t.Fatalf("mileage km = %d", *got.Mileage)
	}
	if *got.Year != 2017 {
		t.Fatalf("year = %d", *got.Year)
	}
	if got.Coord.Lat != 52.52 {
		t.Fatalf("comma decimal lat = %v", got.Coord.Lat)
	}
	if got.Description != "one owner.\ngarage kept" {
		t.Fatalf("description = %q", got.Description)
	}
	if !got.ObservedAt.Equal(time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("observed_at = %v", got.ObservedAt)
	}
	if got.Completeness() != 6 {
		t.Fatalf("completeness = %d", got.Completeness())
	}
}

func TestNormalize_InvalidValuesBecomeAbsent(t *testing.T) {
	n := newTestNormalizer(t)
	got, err := n.Normalize(Raw{
		Source: "a", SourceID: "1", Title: "x",
		Price: "-100", Mileage: "lots", Year: "1700", Lat: "0", Lon: "0",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.Price != nil || got.Mileage != nil || got.Year != nil || got.Coord != nil {
		t.Fatalf("expected all absent, got %+v", got)
	}
	if !got.ObservedAt.Equal(fixedNow) {
		t.Fatalf("missing observed_at should default to now")
	}

	future := ParseYear("2031", fixedNow)
	if future != nil {
		t.Fatalf("year beyond next model year should be absent")
	}
	if y := ParseYear("2027", fixedNow); y == nil || *y != 2027 {
		t.Fatalf("next model year should parse")
	}
}

func TestParse_OverflowingNumbersAreAbsent(t *testing.T) {
	tests := []struct {
		name  string
		parse func(string) *int64
		in    string
	}{
		{"price digits", ParsePrice, "99999999999999999999"},
		{"price separators and currency", ParsePrice, "99 999 999 999 999 999 999 €"},
		{"price just over cap", ParsePrice, "10000000001"},
		{"mileage km", ParseMileage, "99999999999999999999 km"},
		{"mileage miles", ParseMileage, "99,999,999,999,999,999,999 miles"},
		{"mileage just over cap", ParseMileage, "5000001"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.parse(tc.in); got != nil {
				t.Fatalf("%q = %d, want absent", tc.in, *got)
			}
		})
	}

	if p := ParsePrice("10000000000"); p == nil || *p != int64(1e12) {
		t.Fatalf("price at cap should parse, got %v", p)
	}
	if m := ParseMileage("5000000 km"); m == nil || *m != 5000000 {
		t.Fatalf("mileage at cap should parse, got %v", m)
	}
}

func TestNormalize_Malformed(t *testing.T) {
	n := newTestNormalizer(t, "a", "b")
	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{"not json", `{"source":`, "payload"},
		{"missing source", `{"title":"bmw"}`, "source"},
		{"unknown source", `{"source":"zz","title":"bmw"}`, "source"},
		{"nothing to identify", `{"source":"a","price":"100"}`, "title"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := n.Decode([]byte(tc.payload))
			if !perr.IsCode(err, perr.ErrorCodeMalformed) {
				t.Fatalf("want malformed, got %v", err)
			}
			if f := perr.FieldOf(err); f != tc.field {
				t.Fatalf("field = %q, want %q", f, tc.field)
			}
		})
	}
}

func TestNormalize_TitleOptionalWhenIdentifiable(t *testing.T) {
	n := newTestNormalizer(t)
	if _, err := n.Normalize(Raw{Source: "a", SourceID: "55"}); err != nil {
		t.Fatalf("source id alone should be enough: %v", err)
	}
	got, err := n.Normalize(Raw{Source: "a", Lat: "48.85", Lon: "2.35"})
	if err != nil {
		t.Fatalf("coordinates alone should be enough: %v", err)
	}
	if !got.SyntheticID || !strings.HasPrefix(got.SourceID, SyntheticPrefix) {
		t.Fatalf("expected synthetic id, got %q", got.SourceID)
	}
}

func TestSyntheticID_Stable(t *testing.T) {
	n := newTestNormalizer(t)
	raw := Raw{Source: "c", Title: "Renault Clio", Price: "9 900", Lat: "45.7640", Lon: "4.8357"}
	a, _ := n.Normalize(raw)

	raw.ObservedAt = "2026-01-01T00:00:00Z"
	raw.Lat = "45.76401"
	b, _ := n.Normalize(raw)
	if a.SourceID != b.SourceID {
		t.Fatalf("synthetic id should ignore observed_at and sub-100m jitter: %q vs %q", a.SourceID, b.SourceID)
	}

	raw.Price = "9 500"
	c, _ := n.Normalize(raw)
	if c.SourceID == a.SourceID {
		t.Fatalf("different price should change the synthetic id")
	}
}

func TestLoose_Unmarshal(t *testing.T) {
	n := newTestNormalizer(t)
	got, err := n.Decode([]byte(`{"source":"a","source_id":123456,"title":"t","price":{"amount":1},"year":true,"mileage":null}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SourceID != "123456" {
		t.Fatalf("numeric id = %q", got.SourceID)
	}
	if got.Price != nil || got.Year != nil || got.Mileage != nil {
		t.Fatalf("non scalar values should read as absent: %+v", got)
	}
}

func TestNormalizer_ConcurrentUse(t *testing.T) {
	n := newTestNormalizer(t)
	testkit.MustNotPanic(t, func() {
		done := make(chan struct{})
		for i := 0; i < 8; i++ {
			go func() {
				defer func() { done <- struct{}{} }()
				for j := 0; j < 100; j++ {
					_, _ = n.Normalize(Raw{Source: "a", SourceID: "1", Title: "Škoda Octavia"})
				}
			}()
		}
		for i := 0; i < 8; i++ {
			<-done
		}
	})
}
