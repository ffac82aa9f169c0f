package service

import (
	"context"
	"fmt"
	"time"

	perr "listingsync/internal/platform/errors"
	"listingsync/internal/platform/logger"
	"listingsync/internal/services/ingest/domain"

	"golang.org/x/sync/errgroup"
)

// PoolConfig sizes the worker pool
type PoolConfig struct {
	Sources     []string
	Concurrency int           // <=0 -> 1
	Consumer    string        // stable prefix for per-worker processing lists
	Idle        time.Duration // sleep when every source is empty; <=0 -> 1s
	ErrBackoff  time.Duration // sleep after an aborted run; <=0 -> 5s
	Once        bool          // one pass over every source per worker, then return
}

// Pool runs N workers, each with its own queue consumer, over every source in turn
type Pool struct {
	Coord    *Coordinator
	NewQueue func(consumer string) domain.Queue
	Cfg      PoolConfig

	sleep func(ctx context.Context, d time.Duration) error
}

// NewPool constructs the pool; newQueue is called once per worker
func NewPool(coord *Coordinator, newQueue func(consumer string) domain.Queue, cfg PoolConfig) *Pool {
	if coord == nil || newQueue == nil {
		panic("ingest.Pool requires a coordinator and a queue factory")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Consumer == "" {
		cfg.Consumer = "ingest"
	}
	if cfg.Idle <= 0 {
		cfg.Idle = time.Second
	}
	if cfg.ErrBackoff <= 0 {
		cfg.ErrBackoff = 5 * time.Second
	}
	return &Pool{Coord: coord, NewQueue: newQueue, Cfg: cfg, sleep: sleepCtx}
}

// Run recovers every worker's processing list, then runs workers until ctx is done
// A cancelled ctx lets in-flight records finish and returns nil; in once mode the last
// failed run of any worker is returned
func (p *Pool) Run(ctx context.Context) error {
	if len(p.Cfg.Sources) == 0 {
		return perr.InvalidArgf("ingest: no sources configured")
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.Cfg.Concurrency; i++ {
		consumer := fmt.Sprintf("%s-%d", p.Cfg.Consumer, i)
		q := p.NewQueue(consumer)
		w := worker{pool: p, name: consumer, queue: q, coord: p.Coord.WithQueue(q)}
		g.Go(func() error { return w.run(gctx) })
	}
	return g.Wait()
}

type worker struct {
	pool  *Pool
	name  string
	queue domain.Queue
	coord *Coordinator
}

func (w worker) run(ctx context.Context) error {
	log := logger.Named("ingest-worker").With().Str("consumer", w.name).Logger()

	// messages a crashed predecessor left in processing go back to pending first
	for _, src := range w.pool.Cfg.Sources {
		n, err := w.queue.Recover(ctx, src)
		if err != nil {
			return perr.Wrapf(err, perr.CodeOf(err), "ingest: recover %s for %s", src, w.name)
		}
		if n > 0 {
			log.Info().Str("source", src).Int("requeued", n).Msg("ingest: recovered processing list")
		}
	}

	var onceErr error
	for ctx.Err() == nil {
		busy := false
		for _, src := range w.pool.Cfg.Sources {
			if ctx.Err() != nil {
				return nil
			}
			if !w.pool.Cfg.Once {
				if n, err := w.queue.Depth(ctx, src); err == nil && n == 0 {
					continue
				}
			}
			busy = true
			out, err := w.coord.Run(ctx, src)
			if err != nil {
				log.Error().Err(err).Str("source", src).Str("run_id", out.ID.String()).Msg("ingest: run failed")
				if w.pool.Cfg.Once {
					onceErr = err
					continue
				}
				if serr := w.pool.sleep(ctx, w.pool.Cfg.ErrBackoff); serr != nil {
					return nil
				}
			}
		}
		if w.pool.Cfg.Once {
			return onceErr
		}
		if !busy {
			if err := w.pool.sleep(ctx, w.pool.Cfg.Idle); err != nil {
				return nil
			}
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
