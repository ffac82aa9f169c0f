package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"listingsync/internal/modkit"
	"listingsync/internal/modkit/module"
	"listingsync/internal/platform/config"
	"listingsync/internal/platform/metrics"
	phttp "listingsync/internal/platform/net/http"
	"listingsync/internal/platform/testkit"
	auditdomain "listingsync/internal/services/audit/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMount_ServesRunsAndAdmin(t *testing.T) {
	mux := chi.NewRouter()
	m := metrics.New()
	out := Mount(phttp.AdaptChi(mux), Options{Config: config.New(), Metrics: m})
	if out.Audit == nil || out.Meta == nil {
		t.Fatal("modules not returned")
	}

	sink := module.MustPortsOf[auditdomain.Sink](out.Audit)
	id := uuid.New()
	now := time.Now().UTC()
	run := auditdomain.RunOutcome{ID: id, Source: "autoscout", Status: auditdomain.StatusWarning, StartedAt: now, CompletedAt: now}
	if err := sink.AppendRun(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	m.Run("autoscout", "warning")

	rr := do(t, mux, http.MethodPost, "/api/v1/runs/query", `{"source":"autoscout"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("query %d %s", rr.Code, rr.Body.String())
	}
	testkit.MustContain(t, rr.Body.String(), id.String())

	rr = do(t, mux, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("health %d %q", rr.Code, rr.Body.String())
	}

	rr = do(t, mux, http.MethodGet, "/metrics", "")
	testkit.MustContain(t, rr.Body.String(), "autoscout")

	rr = do(t, mux, http.MethodGet, "/api/v1/meta/ready", "")
	testkit.MustContain(t, rr.Body.String(), `"skipped"`)
}

func TestMountAdmin_NoRunsAPI(t *testing.T) {
	mux := chi.NewRouter()
	MountAdmin(phttp.AdaptChi(mux), modkit.Deps{Cfg: config.New()})

	if rr := do(t, mux, http.MethodGet, "/api/v1/meta/health", ""); rr.Code != http.StatusOK {
		t.Fatalf("meta health %d", rr.Code)
	}
	if rr := do(t, mux, http.MethodPost, "/api/v1/runs/query", `{}`); rr.Code != http.StatusNotFound {
		t.Fatalf("runs api should not be mounted, got %d", rr.Code)
	}
}
