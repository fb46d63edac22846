package worker

import (
	"context"
	"fmt"
	"hash/fnv"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

const (
	shardBuffer         = 64
	poolShutdownTimeout = 30 * time.Second
)

// Change abstracts what workers read off the queue.
type Change = model.Change

// Source yields changes to process.
type Source interface {
	Dequeue(ctx context.Context) <-chan Change
}

// BoardReader returns the ranked board of a game type.
type BoardReader interface {
	Leaderboard(ctx context.Context, gameType string) ([]model.LeaderboardEntry, error)
}

// Broadcaster delivers a board to the subscribers of its game type.
type Broadcaster interface {
	Broadcast(gameType string, entries []model.LeaderboardEntry) error
}

// Worker processes changes until its source closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for it to exit.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker re-reads and broadcasts the board named by each change.
type InMemoryWorker struct {
	source Source
	boards BoardReader
	out    Broadcaster
	name   string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(source Source, boards BoardReader, out Broadcaster, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		source:   source,
		boards:   boards,
		out:      out,
		name:     "notifier",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("notifier"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "notifier" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run consumes changes until the source closes, ctx is canceled or Shutdown
// is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	changes := w.source.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			if err := w.process(ctx, c); err != nil {
				w.logger.Error(ctx, "broadcast failed",
					logger.String("game_type", c.GameType),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown signals the worker to stop and waits for it.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, c Change) error {
	start := time.Now()
	defer func() {
		metrics.RecordNotifyLatency(float64(time.Since(start).Milliseconds()))
	}()

	entries, err := w.boards.Leaderboard(ctx, c.GameType)
	if err != nil {
		return fmt.Errorf("read leaderboard %q: %w", c.GameType, err)
	}
	if err := w.out.Broadcast(c.GameType, entries); err != nil {
		return fmt.Errorf("broadcast %q: %w", c.GameType, err)
	}
	metrics.RecordNotifyBroadcast(c.GameType)
	return nil
}

// shard is the Source of one worker: the changes of the game types hashed to it.
type shard chan Change

func (s shard) Dequeue(ctx context.Context) <-chan Change {
	return s
}

// Pool fans changes out to workers by game type, so a game type's broadcasts
// leave in the order its changes arrived.
type Pool struct {
	workers []*InMemoryWorker
	shards  []shard
	source  Source

	wg     sync.WaitGroup
	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one uses the
// number of CPUs.
func NewPool(workerCount int, source Source, boards BoardReader, out Broadcaster) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		shards:  make([]shard, workerCount),
		source:  source,
		logger:  logger.Get().Named("notifier-pool"),
	}
	for i := range p.workers {
		p.shards[i] = make(shard, shardBuffer)
		p.workers[i] = NewInMemoryWorker(p.shards[i], boards, out, WithName("notifier-"+strconv.Itoa(i)))
	}

	metrics.UpdateNotifierWorkers(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

func (p *Pool) shardFor(gameType string) shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(gameType))
	return p.shards[h.Sum32()%uint32(len(p.shards))]
}

// Run starts the workers and dispatches changes until the source closes or
// ctx is canceled. It returns after every worker has exited.
func (p *Pool) Run(ctx context.Context) error {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}

	p.logger.Info(ctx, "notifier pool started", logger.Int("workers", len(p.workers)))
	p.dispatch(ctx)

	for _, s := range p.shards {
		close(s)
	}
	p.wg.Wait()
	p.logger.Info(context.Background(), "notifier pool stopped")
	return nil
}

func (p *Pool) dispatch(ctx context.Context) {
	changes := p.source.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			select {
			case p.shardFor(c.GameType) <- c:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Shutdown stops every worker, waiting up to the pool timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
