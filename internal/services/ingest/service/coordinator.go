// Package service runs ingestion: one coordinator per run, a worker pool across sources
package service

import (
	"context"
	"encoding/json"
	stderrs "errors"
	"fmt"
	"time"

	"listingsync/internal/adapters/queue"
	"listingsync/internal/core/listing"
	"listingsync/internal/core/resolver"
	perr "listingsync/internal/platform/errors"
	"listingsync/internal/platform/logger"
	"listingsync/internal/platform/metrics"
	auditdomain "listingsync/internal/services/audit/domain"
	catalog "listingsync/internal/services/catalog/domain"
	"listingsync/internal/services/ingest/domain"
	"listingsync/internal/services/ingest/guardrails"

	"github.com/google/uuid"
)

// Config holds the run limits
type Config struct {
	RecordTimeout  time.Duration // per record; <=0 -> 15s
	MaxAttempts    int           // retryable attempts per record per run; <=0 -> 3
	MaxRecords     int           // receives per run; 0 = until the queue is empty
	ReceiveWait    time.Duration // blocking receive wait; <=0 -> 1s
	CandidateLimit int           // <=0 -> 50
	AppendTimeout  time.Duration // run outcome write; <=0 -> 30s
}

func (c Config) withDefaults() Config {
	if c.RecordTimeout <= 0 {
		c.RecordTimeout = 15 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.MaxRecords < 0 {
		c.MaxRecords = 0
	}
	if c.ReceiveWait <= 0 {
		c.ReceiveWait = time.Second
	}
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = 50
	}
	if c.AppendTimeout <= 0 {
		c.AppendTimeout = 30 * time.Second
	}
	return c
}

// Deps are the ports a coordinator drives
type Deps struct {
	Queue    domain.Queue
	Norm     domain.Normalizer
	Resolver domain.Resolver
	Catalog  catalog.Port
	Index    domain.Indexer
	Audit    auditdomain.Sink
	Metrics  *metrics.Metrics // optional
}

// Coordinator pulls one source queue through normalize, resolve, write and index
// A coordinator is reused across runs; runs on the same coordinator must not overlap
type Coordinator struct {
	d   Deps
	cfg Config
	to  guardrails.Timeouts

	now   func() time.Time
	newID func() uuid.UUID
}

// New constructs a coordinator; every port except Metrics is required
func New(d Deps, cfg Config) *Coordinator {
	if d.Queue == nil || d.Norm == nil || d.Resolver == nil || d.Catalog == nil || d.Index == nil || d.Audit == nil {
		panic("ingest.Coordinator requires queue, normalizer, resolver, catalog, indexer and audit ports")
	}
	cfg = cfg.withDefaults()
	return &Coordinator{
		d:   d,
		cfg: cfg,
		to: guardrails.Timeouts{
			Record: cfg.RecordTimeout,
			Settle: cfg.RecordTimeout,
			Append: cfg.AppendTimeout,
		},
		now:   time.Now,
		newID: uuid.New,
	}
}

// WithQueue returns a copy bound to q; the pool gives each worker its own consumer
func (c *Coordinator) WithQueue(q domain.Queue) *Coordinator {
	cp := *c
	cp.d.Queue = q
	return &cp
}

// Config returns the effective run limits
func (c *Coordinator) Config() Config { return c.cfg }

type runState struct {
	id       uuid.UUID
	source   string
	counts   auditdomain.Counts
	attempts map[string]int
	received int

	fatal     error
	fatalKind domain.FailureKind
}

// Run drains source until the queue is empty, MaxRecords is reached, ctx is done or the
// run hits a fatal error, then appends exactly one RunOutcome
// The returned error carries the fatal cause and any failure to append the outcome
func (c *Coordinator) Run(ctx context.Context, source string) (auditdomain.RunOutcome, error) {
	st := &runState{id: c.newID(), source: source, attempts: map[string]int{}}
	ctx = logger.WithRun(ctx, st.id.String(), source)
	started := c.now().UTC()

	logger.C(ctx).Debug().Msg("ingest: run started")

	for ctx.Err() == nil {
		if c.cfg.MaxRecords > 0 && st.received >= c.cfg.MaxRecords {
			break
		}
		msg, ok, err := c.d.Queue.Receive(ctx, source, c.cfg.ReceiveWait)
		if err != nil {
			if ctx.Err() != nil {
				break // drain: the blocking receive was interrupted
			}
			st.abort(domain.KindStoreUnavailable, perr.Wrap(err, perr.ErrorCodeUnavailable, "queue unreachable"))
			break
		}
		if !ok {
			break
		}
		st.received++

		took := time.Now()
		res := c.process(ctx, msg)
		c.settle(ctx, st, msg, res)
		c.d.Metrics.Record(source, outcomeLabel(res), time.Since(took))
		if st.fatal != nil {
			break
		}
	}

	return c.finish(ctx, st, started)
}

// process runs one record on a context detached from the run
func (c *Coordinator) process(run context.Context, msg queue.Message) (res domain.Result) {
	ctx, cancel := guardrails.ForRecord(run, c.to)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			res = domain.Result{Kind: domain.KindInternal, Err: perr.PanicErrf("panic while processing record: %v", p), Listing: res.Listing}
		}
	}()

	l, err := c.d.Norm.Decode(msg.Body)
	if err != nil {
		return domain.Fail(domain.StageNormalize, err)
	}

	var (
		dec resolver.Decision
		id  uuid.UUID
	)
	for attempt := 0; ; attempt++ {
		var stage domain.Stage
		dec, id, stage, err = c.resolveAndWrite(ctx, l)
		if err == nil {
			break
		}
		// one re-resolve turns a lost create race into an update of the winner
		if attempt == 0 && perr.IsCode(err, perr.ErrorCodeRaced) {
			logger.C(ctx).Debug().Str("source_id", l.SourceID).Msg("ingest: create raced, re-resolving")
			continue
		}
		res = domain.Fail(stage, err)
		res.Listing = l
		return res
	}

	res = domain.Result{Kind: domain.KindNone, Listing: l, Decision: dec, EntityID: id}

	e, err := c.d.Catalog.Get(ctx, id)
	if err == nil {
		err = c.d.Index.Index(ctx, e)
	}
	if err != nil {
		res.Kind = domain.Classify(domain.StageIndex, err)
		res.Err = err
	}
	return res
}

func (c *Coordinator) resolveAndWrite(ctx context.Context, l listing.Normalized) (resolver.Decision, uuid.UUID, domain.Stage, error) {
	cands, err := c.d.Catalog.Candidates(ctx, l, c.cfg.CandidateLimit)
	if err != nil {
		return resolver.Decision{}, uuid.Nil, domain.StageCandidates, err
	}
	dec := c.d.Resolver.Resolve(l, catalog.Candidates(cands))

	switch dec.Kind {
	case resolver.NewEntity:
		id, err := c.d.Catalog.CreateEntity(ctx, l)
		return dec, id, domain.StageWrite, err
	case resolver.UpdateEntity:
		return dec, dec.EntityID, domain.StageWrite, c.d.Catalog.UpdateEntity(ctx, dec.EntityID, l)
	default:
		if err := c.d.Catalog.LinkObserved(ctx, dec.EntityID, l); err != nil {
			return dec, dec.EntityID, domain.StageWrite, err
		}
		return dec, dec.EntityID, domain.StageWrite, c.d.Catalog.Enrich(ctx, dec.EntityID, l)
	}
}

// settle makes the record outcome durable before the message leaves the processing list
func (c *Coordinator) settle(run context.Context, st *runState, msg queue.Message, res domain.Result) {
	ctx, cancel := guardrails.ForSettle(run, c.to)
	defer cancel()
	log := logger.C(run)

	switch {
	case res.Written():
		st.counts.Found++
		if res.Decision.Kind == resolver.NewEntity {
			st.counts.New++
		} else {
			st.counts.Updated++
		}
		ev := log.Info()
		if res.Kind == domain.KindIndexing {
			st.counts.IndexFailures++
			c.d.Metrics.IndexFailure(st.source)
			ev = log.Warn().Err(res.Err)
		}
		ev.Str("source_id", res.Listing.SourceID).
			Str("decision", res.Decision.Kind.String()).
			Float64("score", res.Decision.Score).
			Str("entity_id", res.EntityID.String()).
			Bool("indexed", res.Kind == domain.KindNone).
			Msg("ingest: record written")
		c.queueOp(ctx, st, "ack", c.d.Queue.Ack, msg)

	case res.Kind.Fatal():
		log.Error().Err(res.Err).Str("source_id", res.Listing.SourceID).Msg("ingest: store unavailable, aborting run")
		st.abort(res.Kind, res.Err)
		c.queueOp(ctx, st, "nack", c.d.Queue.Nack, msg)

	case res.Kind.Retryable():
		key := string(msg.Body)
		st.attempts[key]++
		if st.attempts[key] < c.cfg.MaxAttempts {
			st.counts.Retried++
			log.Warn().Err(res.Err).Str("kind", res.Kind.String()).Int("attempt", st.attempts[key]).
				Str("source_id", res.Listing.SourceID).Msg("ingest: record retried")
			c.queueOp(ctx, st, "nack", c.d.Queue.Nack, msg)
			return
		}
		delete(st.attempts, key)
		if !c.recordFailure(ctx, st, msg, res, true) {
			return
		}
		st.counts.Found++
		st.counts.Skipped++
		c.d.Metrics.DeadLettered(st.source)
		log.Warn().Err(res.Err).Str("kind", res.Kind.String()).Str("source_id", res.Listing.SourceID).
			Msg("ingest: record dead-lettered")
		c.queueOp(ctx, st, "dead-letter", c.d.Queue.DeadLetter, msg)

	default:
		if !c.recordFailure(ctx, st, msg, res, false) {
			return
		}
		st.counts.Found++
		st.counts.Skipped++
		log.Warn().Err(res.Err).Str("kind", res.Kind.String()).Str("field", res.Field).
			Str("source_id", res.Listing.SourceID).Msg("ingest: record skipped")
		c.queueOp(ctx, st, "ack", c.d.Queue.Ack, msg)
	}
}

// recordFailure appends the RecordFailure; when that fails the message goes back to pending
func (c *Coordinator) recordFailure(ctx context.Context, st *runState, msg queue.Message, res domain.Result, dead bool) bool {
	kind := res.Kind.String()
	if dead {
		kind = "dead_letter:" + kind
	}
	errText := ""
	if res.Err != nil {
		errText = res.Err.Error()
	}
	err := c.d.Audit.AppendFailure(ctx, auditdomain.RecordFailure{
		RunID:       st.id,
		Source:      st.source,
		Kind:        kind,
		Field:       res.Field,
		Error:       errText,
		Payload:     msg.Body,
		NeedsReview: dead || res.Kind.NeedsReview(),
	})
	if err == nil {
		return true
	}

	logger.C(ctx).Error().Err(err).Str("kind", kind).Msg("ingest: record failure not durable, requeueing")
	if perr.IsCode(err, perr.ErrorCodeUnavailable) {
		st.abort(domain.KindStoreUnavailable, err)
	} else {
		st.counts.Retried++
	}
	c.queueOp(ctx, st, "nack", c.d.Queue.Nack, msg)
	return false
}

// queueOp runs a settle step; an unreachable queue aborts the run and the message stays
// in the processing list until the worker recovers it
func (c *Coordinator) queueOp(ctx context.Context, st *runState, op string, fn func(context.Context, queue.Message) error, msg queue.Message) {
	if err := fn(ctx, msg); err != nil {
		logger.C(ctx).Error().Err(err).Str("op", op).Msg("ingest: queue settle failed")
		st.abort(domain.KindStoreUnavailable, perr.Wrapf(err, perr.ErrorCodeUnavailable, "queue %s", op))
	}
}

func (s *runState) abort(kind domain.FailureKind, err error) {
	if s.fatal == nil {
		s.fatal, s.fatalKind = err, kind
	}
}

// runDetail is the structured cause stored with an aborted run
type runDetail struct {
	Kind     string `json:"kind"`
	CodeName string `json:"code_name"`
	perr.Wire
	Cause string `json:"cause,omitempty"`
}

func (c *Coordinator) finish(run context.Context, st *runState, started time.Time) (auditdomain.RunOutcome, error) {
	done := c.now().UTC()
	aborted := st.fatal != nil
	out := auditdomain.RunOutcome{
		ID:          st.id,
		Source:      st.source,
		Counts:      st.counts,
		Status:      st.counts.Status(aborted),
		Duration:    done.Sub(started),
		StartedAt:   started,
		CompletedAt: done,
	}
	out.Message = summary(out, st.fatal)
	if aborted {
		d := runDetail{Kind: st.fatalKind.String(), CodeName: perr.CodeOf(st.fatal).String(), Wire: perr.WireFrom(st.fatal)}
		if root := perr.Root(st.fatal); root != nil {
			d.Cause = root.Error()
		}
		if b, err := json.Marshal(d); err == nil {
			out.Detail = b
		}
	}

	ctx, cancel := guardrails.ForAppend(run, c.to)
	defer cancel()
	appendErr := c.d.Audit.AppendRun(ctx, out)

	if n, err := c.d.Queue.Depth(ctx, st.source); err == nil {
		c.d.Metrics.QueueDepth(st.source, n)
	}
	c.d.Metrics.Run(st.source, string(out.Status))

	log := logger.C(run)
	ev := log.Info()
	switch {
	case appendErr != nil:
		ev = log.Error().Err(appendErr)
	case aborted:
		ev = log.Error().Err(st.fatal)
	case out.Status == auditdomain.StatusWarning:
		ev = log.Warn()
	}
	ev.Str("status", string(out.Status)).
		Int("found", out.Counts.Found).
		Int("new", out.Counts.New).
		Int("updated", out.Counts.Updated).
		Int("skipped", out.Counts.Skipped).
		Int("retried", out.Counts.Retried).
		Int("index_failures", out.Counts.IndexFailures).
		Dur("duration", out.Duration).
		Msg("ingest: run completed")

	if appendErr != nil {
		appendErr = perr.Wrap(appendErr, perr.CodeOf(appendErr), "append run outcome")
	}
	return out, stderrs.Join(st.fatal, appendErr)
}

func summary(o auditdomain.RunOutcome, fatal error) string {
	switch o.Status {
	case auditdomain.StatusError:
		return fmt.Sprintf("run aborted after %d records: %v", o.Counts.Found, fatal)
	case auditdomain.StatusWarning:
		return fmt.Sprintf("%d records, %d skipped, %d retried, %d index failures",
			o.Counts.Found, o.Counts.Skipped, o.Counts.Retried, o.Counts.IndexFailures)
	default:
		return fmt.Sprintf("%d records, %d new, %d updated", o.Counts.Found, o.Counts.New, o.Counts.Updated)
	}
}

func outcomeLabel(r domain.Result) string {
	if r.Kind == domain.KindNone {
		return r.Decision.Kind.String()
	}
	return r.Kind.String()
}
