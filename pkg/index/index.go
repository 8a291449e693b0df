// Package index remembers which calendar event mirrors which task.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const FileName = "events.json"

// EventIndex maps task ids to calendar event ids. It is saved only when it
// changed.
type EventIndex struct {
	path     string
	mu       sync.RWMutex
	mappings map[string]string
	dirty    bool
}

// Open loads the index at path; a missing file gives an empty index.
func Open(path string) (*EventIndex, error) {
	idx := &EventIndex{path: path, mappings: make(map[string]string)}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&idx.mappings); err != nil {
		return nil, fmt.Errorf("decode event index %s: %w", path, err)
	}
	if idx.mappings == nil {
		idx.mappings = make(map[string]string)
	}
	return idx, nil
}

func (idx *EventIndex) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(idx.path), 0700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(idx.mappings, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(idx.path, b, 0600); err != nil {
		return err
	}
	idx.dirty = false
	return nil
}

func (idx *EventIndex) Get(taskID string) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.mappings[taskID]
}

func (idx *EventIndex) Set(taskID, eventID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.mappings[taskID] != eventID {
		idx.mappings[taskID] = eventID
		idx.dirty = true
	}
}

func (idx *EventIndex) Remove(taskID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.mappings[taskID]; ok {
		delete(idx.mappings, taskID)
		idx.dirty = true
	}
}

// TaskIDs lists every indexed task, sorted.
func (idx *EventIndex) TaskIDs() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]string, 0, len(idx.mappings))
	for id := range idx.mappings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
