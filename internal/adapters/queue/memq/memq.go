// Package memq is an in-process queue with the same semantics as redisq
// it backs coordinator tests and local runs without redis
package memq

import (
	"bytes"
	"context"
	"sync"
	"time"

	"listingsync/internal/adapters/queue"
	perr "listingsync/internal/platform/errors"
)

// Queue keeps pending, processing and dead lists per source
// index 0 is the oldest entry in every list
type Queue struct {
	mu         sync.Mutex
	pending    map[string][][]byte
	processing map[string][][]byte
	dead       map[string][][]byte

	// Down makes every call fail as unavailable
	Down bool
}

// New returns an empty queue
func New() *Queue {
	return &Queue{
		pending:    map[string][][]byte{},
		processing: map[string][][]byte{},
		dead:       map[string][][]byte{},
	}
}

// Push enqueues bodies in order
func (q *Queue) Push(_ context.Context, source string, bodies ...[]byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Down {
		return perr.Unavailablef("memq down")
	}
	for _, b := range bodies {
		q.pending[source] = append(q.pending[source], bytes.Clone(b))
	}
	return nil
}

// Receive never blocks; wait is ignored
func (q *Queue) Receive(_ context.Context, source string, _ time.Duration) (queue.Message, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Down {
		return queue.Message{}, false, perr.Unavailablef("memq down")
	}
	p := q.pending[source]
	if len(p) == 0 {
		return queue.Message{}, false, nil
	}
	body := p[0]
	q.pending[source] = p[1:]
	q.processing[source] = append(q.processing[source], body)
	return queue.Message{Source: source, Body: body}, true, nil
}

// Ack drops m from processing
func (q *Queue) Ack(_ context.Context, m queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Down {
		return perr.Unavailablef("memq down")
	}
	q.processing[m.Source] = remove(q.processing[m.Source], m.Body)
	return nil
}

// Nack sends m to the back of pending
func (q *Queue) Nack(_ context.Context, m queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Down {
		return perr.Unavailablef("memq down")
	}
	q.processing[m.Source] = remove(q.processing[m.Source], m.Body)
	q.pending[m.Source] = append(q.pending[m.Source], m.Body)
	return nil
}

// DeadLetter parks m
func (q *Queue) DeadLetter(_ context.Context, m queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Down {
		return perr.Unavailablef("memq down")
	}
	q.processing[m.Source] = remove(q.processing[m.Source], m.Body)
	q.dead[m.Source] = append(q.dead[m.Source], m.Body)
	return nil
}

// Depth is the pending length
func (q *Queue) Depth(_ context.Context, source string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Down {
		return 0, perr.Unavailablef("memq down")
	}
	return int64(len(q.pending[source])), nil
}

// Recover puts in-flight messages back at the front of pending
func (q *Queue) Recover(_ context.Context, source string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	inflight := q.processing[source]
	q.pending[source] = append(append([][]byte{}, inflight...), q.pending[source]...)
	q.processing[source] = nil
	return len(inflight), nil
}

// InFlight is the processing length, for assertions
func (q *Queue) InFlight(source string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.processing[source])
}

// DeadLen is the dead-letter length, for assertions
func (q *Queue) DeadLen(source string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.dead[source])
}

func remove(list [][]byte, body []byte) [][]byte {
	for i, b := range list {
		if bytes.Equal(b, body) {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
