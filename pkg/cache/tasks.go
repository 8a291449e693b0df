package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harrisonrobin/tarefas/pkg/model"
)

// TasksKey is the slot key holding the serialized task list.
const TasksKey = "todoTasks"

// TaskCache is the Local Cache: the last known full task collection.
type TaskCache struct {
	mu     sync.Mutex
	slot   Slot
	logger *slog.Logger
}

func NewTaskCache(slot Slot, logger *slog.Logger) *TaskCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskCache{slot: slot, logger: logger}
}

// Tasks returns the cached collection, normalized. A missing or unreadable
// value yields an empty list.
func (c *TaskCache) Tasks() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readLocked()
}

func (c *TaskCache) readLocked() []model.Task {
	b, ok, err := c.slot.Get(TasksKey)
	if err != nil {
		c.logger.Warn("local cache read failed", "error", err)
		return []model.Task{}
	}
	if !ok || len(b) == 0 {
		return []model.Task{}
	}
	var tasks []model.Task
	if err := json.Unmarshal(b, &tasks); err != nil {
		c.logger.Warn("local cache is corrupt, ignoring it", "error", err)
		return []model.Task{}
	}
	if tasks == nil {
		return []model.Task{}
	}
	return model.NormalizeAll(tasks)
}

// Replace overwrites the cached collection with tasks.
func (c *TaskCache) Replace(tasks []model.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(tasks)
}

func (c *TaskCache) writeLocked(tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	b, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	return c.slot.Put(TasksKey, b)
}

// Update runs fn over the cached collection and stores its result as one
// replace. The returned slice is what was written.
func (c *TaskCache) Update(fn func([]model.Task) []model.Task) ([]model.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := fn(c.readLocked())
	if err := c.writeLocked(next); err != nil {
		return nil, err
	}
	return next, nil
}
