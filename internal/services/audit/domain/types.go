// Package domain holds the ingestion audit trail: one immutable outcome per run plus
// one row per record a run had to skip
package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the terminal state of a run
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusWarning, StatusError:
		return true
	}
	return false
}

// Counts are the per-run record tallies
// Found counts records that reached a terminal outcome; Updated includes duplicates linked
type Counts struct {
	Found         int `json:"found"`
	New           int `json:"new"`
	Updated       int `json:"updated"`
	Skipped       int `json:"skipped"`
	Retried       int `json:"retried"`
	IndexFailures int `json:"index_failures"`
}

// Status derives the run status; an aborted run is always an error
func (c Counts) Status(aborted bool) Status {
	switch {
	case aborted:
		return StatusError
	case c.Skipped+c.Retried+c.IndexFailures > 0:
		return StatusWarning
	}
	return StatusSuccess
}

// RunOutcome is written once when a run completes and never changes afterwards
type RunOutcome struct {
	ID          uuid.UUID       `json:"id"`
	Source      string          `json:"source"`
	Status      Status          `json:"status"`
	Message     string          `json:"message,omitempty"`
	Duration    time.Duration   `json:"duration_ns"`
	Counts      Counts          `json:"counts"`
	Detail      json.RawMessage `json:"detail,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
}

// RecordFailure is the durable trace of one skipped or dead-lettered record
type RecordFailure struct {
	ID     uuid.UUID `json:"id"`
	RunID  uuid.UUID `json:"run_id"`
	Source string    `json:"source"`
	Kind   string    `json:"kind"`
	Field  string    `json:"field,omitempty"`
	Error  string    `json:"error"`
	// Payload is the queue message exactly as received
	Payload     []byte    `json:"payload,omitempty"`
	NeedsReview bool      `json:"needs_review"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filter selects runs; zero fields match everything
type Filter struct {
	Source string
	Status Status
	From   time.Time // inclusive, on StartedAt
	To     time.Time // exclusive
	Limit  int
}

// Sink is the write side the ingest coordinator uses
type Sink interface {
	AppendRun(ctx context.Context, o RunOutcome) error
	AppendFailure(ctx context.Context, f RecordFailure) error
}

// Reader is the dashboard side
type Reader interface {
	Query(ctx context.Context, f Filter) ([]RunOutcome, error)
	Run(ctx context.Context, id uuid.UUID) (RunOutcome, error)
	Failures(ctx context.Context, runID uuid.UUID) ([]RecordFailure, error)
}

// Port is the full audit surface
type Port interface {
	Sink
	Reader
}
