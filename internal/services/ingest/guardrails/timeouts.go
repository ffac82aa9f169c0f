// Package guardrails bounds per-record and completion work for ingest runs
package guardrails

import (
	"context"
	"time"
)

// Timeouts is the budget bundle for one run
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Record caps one record from decode to index
	Record time.Duration

	// Settle caps the ack, nack or failure append after a record
	Settle time.Duration

	// Append caps the final run outcome write including its retries
	Append time.Duration
}

// ForRecord detaches from run cancellation so an in-flight record finishes during a drain,
// then applies the record budget
func ForRecord(run context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(context.WithoutCancel(run), t.Record)
}

// ForSettle is the detached context for queue and audit bookkeeping of one record
func ForSettle(run context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(context.WithoutCancel(run), t.Settle)
}

// ForAppend is the detached context for the run outcome append
func ForAppend(run context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(context.WithoutCancel(run), t.Append)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout chooses the tighter of d and any parent remainder and never extends the parent
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
