package http

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	phttp "listingsync/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

type envelope struct {
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
}

func serve(t *testing.T, d Deps, path string) (int, json.RawMessage) {
	t.Helper()
	mux := chi.NewRouter()
	phttp.AdaptChi(mux).Route("/meta", func(r phttp.Router) { Register(r, d) })

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(stdhttp.MethodGet, path, nil))
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return rr.Code, env.Data
}

func TestHealthAndService(t *testing.T) {
	d := Deps{ServiceName: "listingsync-api", StartedAt: time.Now().Add(-90 * time.Second)}

	code, raw := serve(t, d, "/meta/health")
	var h HealthResponse
	if err := json.Unmarshal(raw, &h); err != nil || code != 200 {
		t.Fatalf("health %d %v", code, err)
	}
	if !h.OK || h.Service != "listingsync-api" {
		t.Fatalf("health %+v", h)
	}

	_, raw = serve(t, d, "/meta/service")
	var s ServiceResponse
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatal(err)
	}
	if s.Uptime < 89 {
		t.Fatalf("uptime %d", s.Uptime)
	}
}

func TestReady(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name   string
		checks []Check
		want   string
	}{
		{"all ok", []Check{{Name: "pg", Ping: ok}, {Name: "redis", Ping: ok}}, "ok"},
		{"skipped does not fail", []Check{{Name: "pg", Ping: ok}, {Name: "ch"}}, "ok"},
		{"one down", []Check{{Name: "pg", Ping: ok}, {Name: "redis", Ping: down}}, "fail"},
		{"nothing configured", nil, "ok"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, raw := serve(t, Deps{Checks: tc.checks}, "/meta/ready")
			var r ReadyResponse
			if err := json.Unmarshal(raw, &r); err != nil {
				t.Fatal(err)
			}
			if r.Status != tc.want || len(r.Checks) != len(tc.checks) {
				t.Fatalf("ready %+v", r)
			}
			for i, c := range r.Checks {
				if c.Name != tc.checks[i].Name {
					t.Fatalf("order %+v", r.Checks)
				}
				if c.Status == "fail" && c.Error == "" {
					t.Fatalf("failed check without error %+v", c)
				}
			}
		})
	}
}

func TestReady_HonoursTimeout(t *testing.T) {
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	start := time.Now()
	_, raw := serve(t, Deps{Checks: []Check{{Name: "pg", Ping: slow}}, Timeout: 20 * time.Millisecond}, "/meta/ready")
	if time.Since(start) > time.Second {
		t.Fatal("ready ignored its timeout")
	}
	var r ReadyResponse
	_ = json.Unmarshal(raw, &r)
	if r.Status != "fail" {
		t.Fatalf("ready %+v", r)
	}
}

func TestVersion(t *testing.T) {
	_, raw := serve(t, Deps{}, "/meta/version")
	var v struct {
		Service string `json:"service"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatal(err)
	}
	if v.Service == "" || v.Version == "" {
		t.Fatalf("version %+v", v)
	}
}
