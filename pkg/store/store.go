// Package store is the in-memory view of the task collection. Reads come
// from the local cache; every mutation rewrites the cache and queues a
// remote save.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harrisonrobin/tarefas/pkg/cache"
	"github.com/harrisonrobin/tarefas/pkg/model"
)

type Store struct {
	cache  *cache.TaskCache
	queue  *SaveQueue
	logger *slog.Logger

	// mu orders a local write against its queue submission, so Refresh can
	// tell whether the cache moved while it was fetching.
	mu sync.Mutex
}

// New wires a store over c. Saves go to p through a SaveQueue; onSave, if
// set, is told about each completed save.
func New(c *cache.TaskCache, p Pusher, logger *slog.Logger, onSave func(SaveResult)) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		cache:  c,
		queue:  NewSaveQueue(p, logger, onSave),
		logger: logger,
	}
}

// All returns the full collection; never nil.
func (s *Store) All() []model.Task {
	return s.cache.Tasks()
}

func (s *Store) Get(id string) (model.Task, bool) {
	for _, t := range s.cache.Tasks() {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// Upsert replaces the task with the same id, or appends it.
func (s *Store) Upsert(t model.Task) error {
	model.Normalize(&t)
	if err := model.Validate(t); err != nil {
		return err
	}
	return s.mutate(func(tasks []model.Task) []model.Task {
		for i := range tasks {
			if tasks[i].ID == t.ID {
				tasks[i] = t
				return tasks
			}
		}
		return append(tasks, t)
	})
}

// Remove deletes the task with id and reports whether it existed.
func (s *Store) Remove(id string) (bool, error) {
	n, err := s.RemoveWhere(func(t model.Task) bool { return t.ID == id })
	return n > 0, err
}

// RemoveWhere deletes every task matching pred and returns how many went.
// Nothing is saved when nothing matches.
func (s *Store) RemoveWhere(pred func(model.Task) bool) (int, error) {
	removed := 0
	err := s.mutate(func(tasks []model.Task) []model.Task {
		kept := tasks[:0]
		for _, t := range tasks {
			if pred(t) {
				removed++
				continue
			}
			kept = append(kept, t)
		}
		if removed == 0 {
			return nil
		}
		return kept
	})
	return removed, err
}

// mutate applies fn as one cache replace and queues the result for the
// remote. fn returning nil means "no change".
func (s *Store) mutate(fn func([]model.Task) []model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed bool
	written, err := s.cache.Update(func(tasks []model.Task) []model.Task {
		next := fn(tasks)
		if next == nil {
			return tasks
		}
		changed = true
		return next
	})
	if err != nil {
		return fmt.Errorf("write local cache: %w", err)
	}
	if changed {
		seq := s.queue.Submit(written)
		s.logger.Debug("queued save", "seq", seq, "count", len(written))
	}
	return nil
}

// Refresh replaces the collection with what fetch returns, once every
// queued save has reached the remote. If the last save failed, the cache is
// pushed again first and Refresh stops with that error when it fails again.
// A mutation made while fetch runs wins over the fetched copy; the returned
// bool reports whether the cache was replaced.
func (s *Store) Refresh(ctx context.Context, fetch func(context.Context) ([]model.Task, error)) (bool, error) {
	before := s.queue.Submitted()
	if err := s.queue.Flush(ctx); err != nil {
		return false, fmt.Errorf("wait for queued saves: %w", err)
	}
	if s.queue.LastErr() != nil {
		s.mu.Lock()
		before = s.queue.Submit(s.cache.Tasks())
		s.mu.Unlock()
		s.logger.Debug("resending local collection", "seq", before)
		if err := s.queue.Flush(ctx); err != nil {
			return false, fmt.Errorf("wait for queued saves: %w", err)
		}
		if err := s.queue.LastErr(); err != nil {
			return false, err
		}
	}

	tasks, err := fetch(ctx)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq := s.queue.Submitted(); seq != before {
		s.logger.Debug("local change during fetch, keeping cache", "seq", seq)
		return false, nil
	}
	if err := s.cache.Replace(tasks); err != nil {
		return false, fmt.Errorf("write local cache: %w", err)
	}
	return true, nil
}

// Flush waits for queued saves to finish.
func (s *Store) Flush(ctx context.Context) error {
	return s.queue.Flush(ctx)
}

// Close drains the save queue.
func (s *Store) Close(ctx context.Context) error {
	return s.queue.Close(ctx)
}
