package domain

import (
	"context"
	"time"

	"listingsync/internal/adapters/queue"
	"listingsync/internal/core/listing"
	"listingsync/internal/core/resolver"
	catalog "listingsync/internal/services/catalog/domain"
)

// Queue is the per-worker view of the work queue; redisq and memq implement it
type Queue interface {
	Receive(ctx context.Context, source string, wait time.Duration) (queue.Message, bool, error)
	Ack(ctx context.Context, m queue.Message) error
	Nack(ctx context.Context, m queue.Message) error
	DeadLetter(ctx context.Context, m queue.Message) error
	Depth(ctx context.Context, source string) (int64, error)
	Recover(ctx context.Context, source string) (int, error)
}

// Normalizer turns a queue payload into a listing
type Normalizer interface {
	Decode(payload []byte) (listing.Normalized, error)
}

// Resolver decides what a listing is relative to its candidates
type Resolver interface {
	Resolve(l listing.Normalized, candidates []resolver.Candidate) resolver.Decision
}

// Indexer writes one catalog entry into the search projection
type Indexer interface {
	Index(ctx context.Context, e catalog.Entry) error
}

// RunnerPort runs the ingest worker pool until ctx is done or, in once mode, the queues drain
type RunnerPort interface {
	Run(ctx context.Context) error
}
