package service

import (
	"context"
	"testing"
	"time"

	perr "listingsync/internal/platform/errors"
	"listingsync/internal/platform/testkit"
	"listingsync/internal/services/audit/domain"
	"listingsync/internal/services/audit/repo"

	"github.com/google/uuid"
)

var t0 = time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

func run(source string, status domain.Status, started time.Time) domain.RunOutcome {
	return domain.RunOutcome{ID: uuid.New(), Source: source, Status: status, StartedAt: started, CompletedAt: started.Add(time.Second)}
}

func noSleep(t *testing.T) *[]time.Duration {
	var waits []time.Duration
	testkit.Serial(t)
	testkit.Swap(t, &sleep, func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	})
	return &waits
}

func TestAppendRun_RetriesTransientFailures(t *testing.T) {
	waits := noSleep(t)
	m := repo.NewMemory()
	m.FailRuns = 2
	s := New(m, Config{AppendAttempts: 4, AppendBackoff: 100 * time.Millisecond})

	if err := s.AppendRun(context.Background(), run("a", domain.StatusSuccess, t0)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(m.All()) != 1 {
		t.Fatalf("runs %d", len(m.All()))
	}
	if len(*waits) != 2 || (*waits)[0] != 100*time.Millisecond || (*waits)[1] != 200*time.Millisecond {
		t.Fatalf("backoff %v", *waits)
	}
}

func TestAppendRun_GivesUp(t *testing.T) {
	noSleep(t)
	m := repo.NewMemory()
	m.Down = true
	s := New(m, Config{AppendAttempts: 3})
	err := s.AppendRun(context.Background(), run("a", domain.StatusError, t0))
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("want unavailable, got %v", err)
	}
}

func TestAppendRun_DuplicateIsDone(t *testing.T) {
	noSleep(t)
	m := repo.NewMemory()
	s := New(m, Config{})
	o := run("a", domain.StatusSuccess, t0)
	for i := 0; i < 2; i++ {
		if err := s.AppendRun(context.Background(), o); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if len(m.All()) != 1 {
		t.Fatalf("duplicate stored")
	}
}

func TestAppendRun_Validates(t *testing.T) {
	s := New(repo.NewMemory(), Config{})
	bad := run("a", domain.Status("done"), t0)
	if err := s.AppendRun(context.Background(), bad); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("want invalid argument, got %v", err)
	}
}

func TestQuery(t *testing.T) {
	m := repo.NewMemory()
	s := New(m, Config{})
	ctx := context.Background()
	for _, o := range []domain.RunOutcome{
		run("a", domain.StatusSuccess, t0),
		run("a", domain.StatusWarning, t0.Add(time.Hour)),
		run("b", domain.StatusError, t0.Add(2*time.Hour)),
	} {
		if err := s.AppendRun(ctx, o); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Query(ctx, domain.Filter{Source: "a"})
	if err != nil || len(got) != 2 || got[0].Status != domain.StatusWarning {
		t.Fatalf("by source %+v %v", got, err)
	}
	got, _ = s.Query(ctx, domain.Filter{From: t0.Add(30 * time.Minute), To: t0.Add(2 * time.Hour)})
	if len(got) != 1 || got[0].Source != "a" {
		t.Fatalf("by range %+v", got)
	}
	got, _ = s.Query(ctx, domain.Filter{Status: domain.StatusError})
	if len(got) != 1 || got[0].Source != "b" {
		t.Fatalf("by status %+v", got)
	}
	got, _ = s.Query(ctx, domain.Filter{Source: "zzz"})
	if got == nil || len(got) != 0 {
		t.Fatalf("empty result should be an empty slice")
	}

	if _, err := s.Query(ctx, domain.Filter{From: t0, To: t0}); perr.FieldOf(err) != "to" {
		t.Fatalf("want to field error, got %v", err)
	}
	if _, err := s.Query(ctx, domain.Filter{Status: "nope"}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("status: %v", err)
	}
}

func TestFailures(t *testing.T) {
	m := repo.NewMemory()
	s := New(m, Config{})
	s.now = func() time.Time { return t0 }
	runID := uuid.New()
	ctx := context.Background()

	if err := s.AppendFailure(ctx, domain.RecordFailure{RunID: runID, Source: "a", Kind: "malformed", Field: "title", Payload: []byte(`{}`)}); err != nil {
		t.Fatal(err)
	}
	_ = s.AppendFailure(ctx, domain.RecordFailure{RunID: uuid.New(), Source: "a", Kind: "conflict"})

	got, err := s.Failures(ctx, runID)
	if err != nil || len(got) != 1 {
		t.Fatalf("failures %+v %v", got, err)
	}
	if got[0].ID == uuid.Nil || !got[0].CreatedAt.Equal(t0) || string(got[0].Payload) != "{}" {
		t.Fatalf("failure %+v", got[0])
	}
	if _, err := s.Run(ctx, uuid.New()); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("run: %v", err)
	}
}
