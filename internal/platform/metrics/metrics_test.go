package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	kit "listingsync/internal/platform/testkit"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counts(t *testing.T) {
	m := New()
	m.Record("autoscout", "new", 20*time.Millisecond)
	m.Record("autoscout", "new", 10*time.Millisecond)
	m.Record("autoscout", "skipped", time.Millisecond)
	m.Run("autoscout", "warning")
	m.IndexFailure("autoscout")
	m.QueueDepth("autoscout", 17)
	m.DeadLettered("autoscout")

	if got := testutil.ToFloat64(m.records.WithLabelValues("autoscout", "new")); got != 2 {
		t.Fatalf("records new = %v", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("autoscout", "warning")); got != 1 {
		t.Fatalf("runs = %v", got)
	}
	if got := testutil.ToFloat64(m.queueDepth.WithLabelValues("autoscout")); got != 17 {
		t.Fatalf("depth = %v", got)
	}
	if got := testutil.CollectAndCount(m.recordSeconds); got != 1 {
		t.Fatalf("histogram series = %d", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	kit.MustNotPanic(t, func() {
		m.Record("s", "new", time.Second)
		m.Run("s", "success")
		m.IndexFailure("s")
		m.QueueDepth("s", 1)
		m.DeadLettered("s")
		_ = m.Registry()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Run("mobile", "error")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	kit.MustContain(t, string(body), `listingsync_runs_total{source="mobile",status="error"} 1`)
}
