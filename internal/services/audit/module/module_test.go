package module

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"listingsync/internal/modkit"
	"listingsync/internal/modkit/httpkit"
	"listingsync/internal/modkit/module"
	"listingsync/internal/platform/config"
	phttp "listingsync/internal/platform/net/http"
	"listingsync/internal/services/audit/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func TestFromConfig(t *testing.T) {
	t.Setenv("CORE_AUDIT_APPEND_ATTEMPTS", "9")
	t.Setenv("CORE_AUDIT_APPEND_BACKOFF", "1s")
	o := FromConfig(config.New())
	if o.AppendAttempts != 9 || o.AppendBackoff != time.Second || !o.Migrate {
		t.Fatalf("options %+v", o)
	}
}

func TestModule_MountsRunsAPI(t *testing.T) {
	m := New(modkit.Deps{Cfg: config.New()}, Options{})
	if m.Memory == nil || m.Name() != "audit" || m.Prefix() != "/runs" {
		t.Fatalf("module %+v", m)
	}
	if err := m.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}

	sink := module.MustPortsOf[domain.Sink](m)
	id := uuid.New()
	now := time.Now().UTC()
	if err := sink.AppendRun(context.Background(), domain.RunOutcome{ID: id, Source: "a", Status: domain.StatusSuccess, StartedAt: now, CompletedAt: now}); err != nil {
		t.Fatal(err)
	}

	mux := chi.NewRouter()
	httpkit.MountAPIV1(phttp.AdaptChi(mux), nil, m.MountRoutes)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+id.String(), nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), id.String()) {
		t.Fatalf("get run: %d %s", rr.Code, rr.Body.String())
	}
}
