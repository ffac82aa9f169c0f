// Package redisq is a reliable list queue on redis
//
// Receive moves a message from the pending list into a per-consumer processing
// list with BLMOVE, so a crash between receive and ack leaves the message parked
// where Recover can find it again.
package redisq

import (
	"context"
	"errors"
	"time"

	"listingsync/internal/adapters/queue"
	perr "listingsync/internal/platform/errors"

	"github.com/redis/go-redis/v9"
)

// Queue is bound to one consumer id
type Queue struct {
	rdb      redis.UniversalClient
	consumer string
}

// New binds rdb to consumer; consumer ids should be stable across restarts
func New(rdb redis.UniversalClient, consumer string) *Queue {
	if rdb == nil {
		panic("redisq: nil redis client")
	}
	if consumer == "" {
		panic("redisq: empty consumer id")
	}
	return &Queue{rdb: rdb, consumer: consumer}
}

// Consumer returns the bound consumer id
func (q *Queue) Consumer() string { return q.consumer }

// Receive waits up to wait for the oldest pending message
// ok is false when the queue stayed empty
func (q *Queue) Receive(ctx context.Context, source string, wait time.Duration) (queue.Message, bool, error) {
	body, err := q.rdb.BLMove(ctx, queue.Pending(source), queue.Processing(source, q.consumer), "RIGHT", "LEFT", wait).Bytes()
	if errors.Is(err, redis.Nil) {
		return queue.Message{}, false, nil
	}
	if err != nil {
		return queue.Message{}, false, unavailable(err, "receive")
	}
	return queue.Message{Source: source, Body: body}, true, nil
}

// Ack drops m from the processing list
func (q *Queue) Ack(ctx context.Context, m queue.Message) error {
	if err := q.rdb.LRem(ctx, queue.Processing(m.Source, q.consumer), 1, m.Body).Err(); err != nil {
		return unavailable(err, "ack")
	}
	return nil
}

// Nack hands m back to the pending list behind everything already waiting
func (q *Queue) Nack(ctx context.Context, m queue.Message) error {
	return q.move(ctx, m, queue.Pending(m.Source), "nack")
}

// DeadLetter parks m on the dead-letter list
func (q *Queue) DeadLetter(ctx context.Context, m queue.Message) error {
	return q.move(ctx, m, queue.Dead(m.Source), "dead-letter")
}

func (q *Queue) move(ctx context.Context, m queue.Message, to, op string) error {
	_, err := q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LRem(ctx, queue.Processing(m.Source, q.consumer), 1, m.Body)
		p.LPush(ctx, to, m.Body)
		return nil
	})
	if err != nil {
		return unavailable(err, op)
	}
	return nil
}

// Depth is the pending length for source
func (q *Queue) Depth(ctx context.Context, source string) (int64, error) {
	n, err := q.rdb.LLen(ctx, queue.Pending(source)).Result()
	if err != nil {
		return 0, unavailable(err, "depth")
	}
	return n, nil
}

// Recover returns everything left in this consumer's processing list to pending
// the oldest in-flight message ends up next in line
func (q *Queue) Recover(ctx context.Context, source string) (int, error) {
	from, to := queue.Processing(source, q.consumer), queue.Pending(source)
	n := 0
	for {
		err := q.rdb.LMove(ctx, from, to, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, unavailable(err, "recover")
		}
		n++
	}
}

// Push is the producer side; scrapers and tests enqueue raw payloads with it
func (q *Queue) Push(ctx context.Context, source string, bodies ...[]byte) error {
	if len(bodies) == 0 {
		return nil
	}
	vals := make([]any, len(bodies))
	for i, b := range bodies {
		vals[i] = b
	}
	if err := q.rdb.LPush(ctx, queue.Pending(source), vals...).Err(); err != nil {
		return unavailable(err, "push")
	}
	return nil
}

func unavailable(err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return perr.WithOp(perr.Wrap(err, perr.ErrorCodeTimeout, "redis "+op), "redisq."+op)
	}
	return perr.WithOp(perr.Wrap(err, perr.ErrorCodeUnavailable, "redis "+op), "redisq."+op)
}
