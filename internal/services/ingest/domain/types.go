// Package domain holds the ingest failure taxonomy and the ports the coordinator drives
package domain

import (
	"listingsync/internal/core/listing"
	"listingsync/internal/core/resolver"
	perr "listingsync/internal/platform/errors"

	"github.com/google/uuid"
)

// FailureKind tags how a record left the pipeline
type FailureKind uint8

const (
	// KindNone is a record that was written and indexed
	KindNone FailureKind = iota
	// KindMalformed is a record the normalizer rejected
	KindMalformed
	// KindCandidateQuery is a failed catalog candidate lookup
	KindCandidateQuery
	// KindConflict is a link owned by another entity after re-resolution
	KindConflict
	// KindIndexing is a durable catalog write whose search projection failed
	KindIndexing
	// KindTimeout is a record that ran past its budget or waited out a lock
	KindTimeout
	// KindStoreUnavailable is a catalog, audit or queue backend that cannot be reached
	KindStoreUnavailable
	// KindInternal is a panic or an unclassified write failure
	KindInternal
)

var kindNames = [...]string{
	KindNone:             "ok",
	KindMalformed:        "malformed",
	KindCandidateQuery:   "candidate_query",
	KindConflict:         "conflict",
	KindIndexing:         "indexing",
	KindTimeout:          "timeout",
	KindStoreUnavailable: "store_unavailable",
	KindInternal:         "internal",
}

func (k FailureKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Retryable kinds are nacked and tried again later in the run
func (k FailureKind) Retryable() bool {
	return k == KindCandidateQuery || k == KindTimeout
}

// Fatal kinds abort the run
func (k FailureKind) Fatal() bool { return k == KindStoreUnavailable }

// Skipped kinds are recorded, acked and never retried
func (k FailureKind) Skipped() bool {
	return k == KindMalformed || k == KindConflict || k == KindInternal
}

// NeedsReview marks failures an operator should look at
func (k FailureKind) NeedsReview() bool { return k == KindConflict || k == KindInternal }

// Stage names the pipeline step an error came from
type Stage uint8

const (
	StageNormalize Stage = iota
	StageCandidates
	StageWrite
	StageIndex
)

// Classify maps a stage error onto the taxonomy
// connection failures are fatal wherever they happen; a raced write that reaches
// this point already lost its second attempt and counts as a conflict
func Classify(stage Stage, err error) FailureKind {
	if err == nil {
		return KindNone
	}
	switch perr.CodeOf(err) {
	case perr.ErrorCodeUnavailable:
		if stage == StageIndex {
			return KindIndexing
		}
		return KindStoreUnavailable
	case perr.ErrorCodeTimeout:
		if stage == StageIndex {
			return KindIndexing
		}
		return KindTimeout
	case perr.ErrorCodeMalformed:
		return KindMalformed
	case perr.ErrorCodeConflict, perr.ErrorCodeRaced, perr.ErrorCodeDuplicateKey:
		if stage == StageWrite {
			return KindConflict
		}
	case perr.ErrorCodePanic:
		return KindInternal
	}

	switch stage {
	case StageNormalize:
		return KindMalformed
	case StageCandidates:
		return KindCandidateQuery
	case StageIndex:
		return KindIndexing
	}
	if perr.Retryable(err) {
		return KindTimeout
	}
	return KindInternal
}

// Result is the tagged outcome of one record
// Decision and EntityID are set once the catalog write is durable, including on KindIndexing
type Result struct {
	Kind  FailureKind
	Err   error
	Field string

	Listing  listing.Normalized
	Decision resolver.Decision
	EntityID uuid.UUID
}

// Fail builds a failed result for stage
func Fail(stage Stage, err error) Result {
	return Result{Kind: Classify(stage, err), Err: err, Field: perr.FieldOf(err)}
}

// Written reports whether the catalog write landed
func (r Result) Written() bool { return r.Kind == KindNone || r.Kind == KindIndexing }
