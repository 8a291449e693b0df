package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/harrisonrobin/tarefas/pkg/model"
)

// Pusher writes a full collection to the remote side.
type Pusher interface {
	Push(ctx context.Context, tasks []model.Task) error
}

// SaveResult describes one completed push.
type SaveResult struct {
	Seq   uint64
	Count int
	Err   error
}

// SaveQueue pushes collection snapshots one at a time on a worker
// goroutine. Snapshots submitted while a push is in flight are coalesced:
// only the newest one is sent next, so an older write can never land after
// a newer one.
type SaveQueue struct {
	pusher Pusher
	logger *slog.Logger
	onDone func(SaveResult)

	mu      sync.Mutex
	cond    *sync.Cond
	pending []model.Task
	hasNext bool
	seq     uint64 // last submitted
	done    uint64 // last pushed
	lastErr error
	closed  bool

	wake   chan struct{}
	exited chan struct{}
}

func NewSaveQueue(p Pusher, logger *slog.Logger, onDone func(SaveResult)) *SaveQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &SaveQueue{
		pusher: p,
		logger: logger,
		onDone: onDone,
		wake:   make(chan struct{}, 1),
		exited: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Submit schedules tasks to be pushed and returns its sequence number. It
// never blocks on the network.
func (q *SaveQueue) Submit(tasks []model.Task) uint64 {
	snapshot := append([]model.Task(nil), tasks...)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("save queue closed, dropping snapshot", "count", len(tasks))
		return 0
	}
	q.seq++
	seq := q.seq
	q.pending = snapshot
	q.hasNext = true
	select {
	case q.wake <- struct{}{}:
	default:
	}
	q.mu.Unlock()
	return seq
}

func (q *SaveQueue) run() {
	defer close(q.exited)
	for range q.wake {
		for {
			q.mu.Lock()
			if !q.hasNext {
				closed := q.closed
				q.mu.Unlock()
				if closed {
					return
				}
				break
			}
			tasks, seq := q.pending, q.seq
			q.pending, q.hasNext = nil, false
			q.mu.Unlock()

			err := q.pusher.Push(context.Background(), tasks)
			if err != nil {
				q.logger.Debug("queued save failed", "seq", seq, "error", err)
			}

			if q.onDone != nil {
				q.onDone(SaveResult{Seq: seq, Count: len(tasks), Err: err})
			}

			q.mu.Lock()
			q.done = seq
			q.lastErr = err
			q.cond.Broadcast()
			q.mu.Unlock()
		}
	}
}

// Flush blocks until every snapshot submitted before the call has been
// pushed, or ctx is done.
func (q *SaveQueue) Flush(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	target := q.seq
	for q.done < target && !q.closedAndIdleLocked() {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.cond.Wait()
	}
	return nil
}

// Submitted returns the sequence number of the newest snapshot.
func (q *SaveQueue) Submitted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.seq
}

// LastErr is the outcome of the most recent push; nil before the first.
func (q *SaveQueue) LastErr() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastErr
}

func (q *SaveQueue) closedAndIdleLocked() bool {
	return q.closed && !q.hasNext && q.done == q.seq
}

// Close drains pending snapshots and stops the worker.
func (q *SaveQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.wake)
	q.mu.Unlock()

	select {
	case <-q.exited:
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
